// Package storage provides the data persistence layer for the catalogo application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/catalogo/internal/common"
	"github.com/Veraticus/catalogo/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidFeedback = errors.New("invalid feedback")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCollection ensures path names one of the rule collections.
func validateCollection(path string) error {
	if _, ok := model.CollectionTier(path); !ok {
		return fmt.Errorf("%w: %q", common.ErrInvalidCollection, path)
	}
	return nil
}

// validateDocument ensures a document can be stored.
func validateDocument(doc model.RuleDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	return nil
}

// validateFeedback ensures feedback names a rule and, for corrections, the right labels.
func validateFeedback(fb model.Feedback) error {
	if strings.TrimSpace(fb.RuleID) == "" {
		return fmt.Errorf("%w: missing rule ID", ErrInvalidFeedback)
	}
	if !fb.Accepted && (strings.TrimSpace(fb.Categoria) == "" || strings.TrimSpace(fb.Subcategoria) == "") {
		return fmt.Errorf("%w: a correction needs categoria and subcategoria", ErrInvalidFeedback)
	}
	return nil
}
