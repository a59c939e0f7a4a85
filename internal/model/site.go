package model

// DefaultCurrency is applied to packages created without one.
const DefaultCurrency = "Tsh"

// TreePackage is a tree-planting offer sold on /packages.
type TreePackage struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TreeCount   int      `json:"treeCount"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Features    []string `json:"features"`
	IsPopular   bool     `json:"isPopular"`
	Order       int      `json:"order"`
}

// EntityID implements Entity.
func (p TreePackage) EntityID() string { return p.ID }

func (p TreePackage) Validate() error {
	if err := required("name", p.Name); err != nil {
		return err
	}
	if p.TreeCount <= 0 {
		return invalid("treeCount", "must be positive")
	}
	if p.Price < 0 {
		return invalid("price", "must not be negative")
	}
	return nil
}

// Button variants understood by the page templates.
const (
	VariantPrimary   = "primary"
	VariantSecondary = "secondary"
	VariantOutline   = "outline"
)

// Button is a configurable call-to-action looked up by section.
type Button struct {
	ID       string `json:"id"`
	Section  string `json:"section"`
	Project  string `json:"project,omitempty"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	Variant  string `json:"variant"`
	Order    int    `json:"order"`
	IsActive bool   `json:"isActive"`
}

// EntityID implements Entity.
func (b Button) EntityID() string { return b.ID }

func (b Button) Validate() error {
	if err := required("section", b.Section); err != nil {
		return err
	}
	if err := required("text", b.Text); err != nil {
		return err
	}
	return required("url", b.URL)
}
