package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestValidateContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, validateContext(nil), ErrNilContext)
	assert.NoError(t, validateContext(context.Background()))
}

func TestValidateCollection(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{path: model.GlobalCollection},
		{path: model.RubroCollection("bodega")},
		{path: model.TenantCollection("acme")},
		{path: "", wantErr: true},
		{path: "rules_by_rubro/bodega", wantErr: true},
		{path: "tenants//rules", wantErr: true},
		{path: "tenants/acme/products", wantErr: true},
		{path: "rules_by_rubro/a/b/rules", wantErr: true},
		{path: "tenants/../rules", wantErr: true},
		{path: "rules_by_rubro/./rules", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := validateCollection(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidCollection)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFeedback(t *testing.T) {
	assert.NoError(t, validateFeedback(model.Feedback{RuleID: "r", Accepted: true}))
	assert.NoError(t, validateFeedback(model.Feedback{RuleID: "r", Categoria: "A", Subcategoria: "B"}))
	assert.ErrorIs(t, validateFeedback(model.Feedback{RuleID: " ", Accepted: true}), ErrInvalidFeedback)
	assert.ErrorIs(t, validateFeedback(model.Feedback{RuleID: "r", Categoria: "A"}), ErrInvalidFeedback)
}
