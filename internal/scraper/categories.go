package scraper

// Category is a top-level VitiBrasil data domain.
type Category string

// Categories served by the API.
const (
	CategoryProduction        Category = "production"
	CategoryProcessing        Category = "processing"
	CategoryCommercialization Category = "commercialization"
	CategoryImports           Category = "imports"
	CategoryExports           Category = "exports"
)

// Subcategory narrows a category to one product line.
type Subcategory struct {
	Name     string
	Subopcao string
}

// categorySpec maps a category onto the upstream query scheme. Combined
// marks categories whose aggregate endpoint is unreliable enough that
// the pipeline stitches sub-category fetches together instead. This is
// a per-category opt-in, not default behavior.
type categorySpec struct {
	Opcao         string
	Subcategories []Subcategory
	Combined      bool
}

// Option codes observed on the VitiBrasil index page.
var categorySpecs = map[Category]categorySpec{
	CategoryProduction: {Opcao: "opt_02"},
	CategoryProcessing: {
		Opcao: "opt_03",
		Subcategories: []Subcategory{
			{Name: "vinifera", Subopcao: "subopt_01"},
			{Name: "american", Subopcao: "subopt_02"},
			{Name: "table", Subopcao: "subopt_03"},
			{Name: "unclassified", Subopcao: "subopt_04"},
		},
	},
	CategoryCommercialization: {Opcao: "opt_04"},
	CategoryImports: {
		Opcao: "opt_05",
		Subcategories: []Subcategory{
			{Name: "wine", Subopcao: "subopt_01"},
			{Name: "sparkling", Subopcao: "subopt_02"},
			{Name: "fresh", Subopcao: "subopt_03"},
			{Name: "raisins", Subopcao: "subopt_04"},
			{Name: "juice", Subopcao: "subopt_05"},
		},
		// The consolidated imports endpoint frequently serves empty or
		// truncated tables; stitch the sub-categories instead.
		Combined: true,
	},
	CategoryExports: {
		Opcao: "opt_06",
		Subcategories: []Subcategory{
			{Name: "wine", Subopcao: "subopt_01"},
			{Name: "sparkling", Subopcao: "subopt_02"},
			{Name: "grape", Subopcao: "subopt_03"},
			{Name: "juice", Subopcao: "subopt_04"},
		},
	},
}

// Subcategories returns the configured sub-categories of c, nil when it
// has none.
func Subcategories(c Category) []Subcategory {
	return categorySpecs[c].Subcategories
}

// SubcategoryByName looks up one sub-category of c.
func SubcategoryByName(c Category, name string) (Subcategory, bool) {
	for _, sub := range categorySpecs[c].Subcategories {
		if sub.Name == name {
			return sub, true
		}
	}
	return Subcategory{}, false
}
