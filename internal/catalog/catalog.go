// Package catalog lets a display surface browse the labeled corpus: filter by
// brand and primary category, pick a product by name and render its card.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"hype-classifier/internal/dataset"
)

// All disables a filter.
const All = "All"

// UnknownName stands in for products without a name.
const UnknownName = "Unknown"

var (
	// ErrNoCandidates is returned when a filter matches no product.
	ErrNoCandidates = errors.New("no candidates")
	// ErrProductNotFound is returned when no filtered product has the
	// requested name.
	ErrProductNotFound = errors.New("product not found")
)

// Filter narrows the catalog. Empty fields and All match everything.
type Filter struct {
	Brand    string `form:"brand" json:"brand,omitempty"`
	Category string `form:"category" json:"category,omitempty"`
}

func (f Filter) matches(r dataset.Record) bool {
	return matchField(f.Brand, r, dataset.ColBrandName) &&
		matchField(f.Category, r, dataset.ColPrimaryCategory)
}

func matchField(want string, r dataset.Record, col string) bool {
	if want == "" || want == All {
		return true
	}
	v, ok := r.Value(col)
	return ok && v == want
}

// Catalog is a read-only view over a product table. Safe for concurrent use.
type Catalog struct {
	records    []dataset.Record
	brands     []string
	categories []string
}

// New indexes t. The table must not be modified afterwards.
func New(t *dataset.Table) *Catalog {
	c := &Catalog{records: t.Records}
	c.brands = distinct(t.Records, dataset.ColBrandName)
	c.categories = distinct(t.Records, dataset.ColPrimaryCategory)
	return c
}

// distinct returns the sorted non-missing values of col.
func distinct(records []dataset.Record, col string) []string {
	var out []string
	for _, r := range records {
		if v, ok := r.Value(col); ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.records) }

// Brands returns the distinct brand names in sorted order.
func (c *Catalog) Brands() []string { return slices.Clone(c.brands) }

// Categories returns the distinct primary categories in sorted order.
func (c *Catalog) Categories() []string { return slices.Clone(c.categories) }

// Filter returns the products matching f in corpus order.
func (c *Catalog) Filter(f Filter) []dataset.Record {
	var out []dataset.Record
	for _, r := range c.records {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Names returns the distinct product names matching f in first-seen order.
// Products without a name are listed as UnknownName.
func (c *Catalog) Names(f Filter) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range c.Filter(f) {
		n := productName(r)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Select returns the first product matching f whose name equals name. When
// several products share a name, the earliest one in corpus order wins. An
// empty name selects the first candidate.
func (c *Catalog) Select(f Filter, name string) (dataset.Record, error) {
	candidates := c.Filter(f)
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if name == "" {
		return candidates[0], nil
	}
	for _, r := range candidates {
		if productName(r) == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrProductNotFound, name)
}

func productName(r dataset.Record) string {
	if v, ok := r.Value(dataset.ColProductName); ok {
		return v
	}
	return UnknownName
}

// Field is one row of a product card.
type Field struct {
	Name  string `json:"field"`
	Value string `json:"value"`
}

var cardColumns = []string{
	dataset.ColProductName, dataset.ColBrandName,
	dataset.ColPrimaryCategory, dataset.ColSecondaryCategory, dataset.ColTertiaryCategory,
	dataset.ColPrice, dataset.ColSalePrice,
	dataset.ColExclusive, dataset.ColLimitedEdition, dataset.ColNew, dataset.ColOnlineOnly, dataset.ColOutOfStock,
}

// Card returns the presentable metadata of r. Missing values are skipped and
// flags render as Yes/No.
func Card(r dataset.Record) []Field {
	var out []Field
	for _, col := range cardColumns {
		v, ok := r.Value(col)
		if !ok {
			continue
		}
		if slices.Contains(dataset.FlagColumns, col) {
			v = yesNo(v)
		}
		out = append(out, Field{Name: col, Value: v})
	}
	return out
}

func yesNo(v string) string {
	switch strings.ToLower(v) {
	case "1", "1.0", "true", "yes":
		return "Yes"
	}
	return "No"
}

// PriceText formats the list price, e.g. "$24.00", or "N/A".
func PriceText(r dataset.Record) string {
	p, ok := r.Float(dataset.ColPrice)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", p)
}

// CategoryText returns the primary category or "N/A".
func CategoryText(r dataset.Record) string {
	if v, ok := r.Value(dataset.ColPrimaryCategory); ok {
		return v
	}
	return "N/A"
}

// ConfidenceText renders a confidence as a truncated percentage, e.g. "87%".
func ConfidenceText(confidence float64) string {
	return fmt.Sprintf("%d%%", int(confidence*100))
}
