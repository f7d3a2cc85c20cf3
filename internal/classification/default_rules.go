package classification

import "github.com/Veraticus/catalogo/internal/model"

// seedRule describes one compiled-in global rule.
type seedRule struct {
	ID           string
	Categoria    string
	Subcategoria string
	Patterns     []string
}

// Rules that name a product family come before brand-only rules so that
// "yogurt gloria" lands in Yogurt rather than Leche.
var defaultRules = []seedRule{
	// Bebidas
	{ID: "seed-bebidas-gaseosas", Categoria: "Bebidas", Subcategoria: "Gaseosas",
		Patterns: []string{"gaseosa", "coca-cola", "coca cola", "inca kola", "pepsi", "sprite", "fanta", "7up"}},
	{ID: "seed-bebidas-cervezas", Categoria: "Bebidas", Subcategoria: "Cervezas",
		Patterns: []string{"cerveza", "pilsen", "cusque(n|ñ)a", "cristal", "corona"}},
	{ID: "seed-bebidas-jugos", Categoria: "Bebidas", Subcategoria: "Jugos",
		Patterns: []string{"jugo", "n(e|é)ctar", "frugos", "refresco"}},
	{ID: "seed-bebidas-aguas", Categoria: "Bebidas", Subcategoria: "Aguas",
		Patterns: []string{`\bagua\b`, "san luis", "san mateo"}},
	{ID: "seed-bebidas-energizantes", Categoria: "Bebidas", Subcategoria: "Energizantes",
		Patterns: []string{"energizante", "red bull", "volt", "monster"}},

	// Lácteos
	{ID: "seed-lacteos-yogurt", Categoria: "Lácteos", Subcategoria: "Yogurt",
		Patterns: []string{"yogur"}},
	{ID: "seed-lacteos-quesos", Categoria: "Lácteos", Subcategoria: "Quesos",
		Patterns: []string{"queso", "mozzarella", "parmesano"}},
	{ID: "seed-lacteos-mantequilla", Categoria: "Lácteos", Subcategoria: "Mantequilla",
		Patterns: []string{"mantequilla", "margarina"}},
	{ID: "seed-lacteos-leche", Categoria: "Lácteos", Subcategoria: "Leche",
		Patterns: []string{"leche", "gloria", "laive", "pura vida"}},

	// Panadería
	{ID: "seed-panaderia-pan", Categoria: "Panadería", Subcategoria: "Pan",
		Patterns: []string{`\bpan\b`, "baguette", "ciabatta", "pan de molde"}},
	{ID: "seed-panaderia-pasteles", Categoria: "Panadería", Subcategoria: "Pasteles",
		Patterns: []string{"torta", "pastel", "keke", "queque", "alfajor"}},

	// Abarrotes
	{ID: "seed-abarrotes-arroz", Categoria: "Abarrotes", Subcategoria: "Arroz",
		Patterns: []string{"arroz"}},
	{ID: "seed-abarrotes-aceites", Categoria: "Abarrotes", Subcategoria: "Aceites",
		Patterns: []string{"aceite"}},
	{ID: "seed-abarrotes-azucar", Categoria: "Abarrotes", Subcategoria: "Azúcar",
		Patterns: []string{"az(u|ú)car", "endulzante", "stevia"}},
	{ID: "seed-abarrotes-fideos", Categoria: "Abarrotes", Subcategoria: "Fideos",
		Patterns: []string{"fideo", "spaghetti", "tallar(i|í)n", "canuto", "macarr(o|ó)n"}},
	{ID: "seed-abarrotes-menestras", Categoria: "Abarrotes", Subcategoria: "Menestras",
		Patterns: []string{"lenteja", "frejol", "frijol", "garbanzo", "pallar"}},
	{ID: "seed-abarrotes-conservas", Categoria: "Abarrotes", Subcategoria: "Conservas",
		Patterns: []string{"at(u|ú)n", "conserva", "sardina", "filete de caballa"}},

	// Limpieza
	{ID: "seed-limpieza-detergentes", Categoria: "Limpieza", Subcategoria: "Detergentes",
		Patterns: []string{"detergente", `\bace\b`, "ariel", "bol(i|í)var", "opal"}},
	{ID: "seed-limpieza-desinfectantes", Categoria: "Limpieza", Subcategoria: "Desinfectantes",
		Patterns: []string{"lej(i|í)a", "clorox", "desinfectante", "poett"}},
	{ID: "seed-limpieza-lavavajillas", Categoria: "Limpieza", Subcategoria: "Lavavajillas",
		Patterns: []string{"lavavajilla", "sapolio", "ayud(i|í)n"}},

	// Cuidado personal
	{ID: "seed-cuidado-cabello", Categoria: "Cuidado Personal", Subcategoria: "Cabello",
		Patterns: []string{"shampoo", "champ(u|ú)", "acondicionador", "head ?& ?shoulders"}},
	{ID: "seed-cuidado-higiene", Categoria: "Cuidado Personal", Subcategoria: "Higiene",
		Patterns: []string{"jab(o|ó)n", "pasta dental", "cepillo dental", "papel higi(e|é)nico", "desodorante"}},

	// Snacks
	{ID: "seed-snacks-galletas", Categoria: "Snacks", Subcategoria: "Galletas",
		Patterns: []string{"galleta", "oreo", "soda field", "casino"}},
	{ID: "seed-snacks-golosinas", Categoria: "Snacks", Subcategoria: "Golosinas",
		Patterns: []string{"chocolate", "caramelo", "chicle", "sublime", "chupet(i|í)n"}},
	{ID: "seed-snacks-piqueos", Categoria: "Snacks", Subcategoria: "Piqueos",
		Patterns: []string{"papas fritas", "chips", "doritos", "cheetos", "piqueo", "canchita"}},
}

// SeedDocuments returns the compiled-in global rules as raw documents.
// A fresh slice is returned on every call.
func SeedDocuments() []model.RuleDocument {
	docs := make([]model.RuleDocument, 0, len(defaultRules))
	for _, r := range defaultRules {
		doc := model.NewRuleDocument(r.Categoria, r.Subcategoria, r.Patterns...)
		doc[model.FieldID] = r.ID
		docs = append(docs, doc)
	}
	return docs
}
