// Package dataset provides the tabular product corpus used by every stage of the
// hype pipeline. Rows are kept as raw cell strings keyed by column name so that
// each stage decides for itself how a column is interpreted.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Standard column names of the product corpus.
const (
	ColProductName       = "product_name"
	ColBrandName         = "brand_name"
	ColPrimaryCategory   = "primary_category"
	ColSecondaryCategory = "secondary_category"
	ColTertiaryCategory  = "tertiary_category"
	ColPrice             = "price_usd"
	ColSalePrice         = "sale_price_usd"
	ColValuePrice        = "value_price_usd"
	ColExclusive         = "sephora_exclusive"
	ColLimitedEdition    = "limited_edition"
	ColNew               = "new"
	ColOnlineOnly        = "online_only"
	ColOutOfStock        = "out_of_stock"
	ColRating            = "rating"
	ColReviews           = "reviews"
	ColLoves             = "loves_count"
	ColHypeLabel         = "hype_label"
)

// FlagColumns lists the boolean product flags.
var FlagColumns = []string{ColExclusive, ColLimitedEdition, ColNew, ColOnlineOnly, ColOutOfStock}

// Record is a single product row: column name -> raw cell value.
type Record map[string]string

// IsMissing reports whether a raw cell denotes an absent value.
func IsMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "null", "na", "n/a", "none", "<na>":
		return true
	}
	return false
}

// ParseFloat parses a numeric or boolean cell. Booleans map to 1/0.
// Missing, NaN and infinite values report ok=false.
func ParseFloat(v string) (float64, bool) {
	if IsMissing(v) {
		return 0, false
	}
	s := strings.TrimSpace(v)
	switch strings.ToLower(s) {
	case "true", "yes":
		return 1, true
	case "false", "no":
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Value returns the trimmed cell for col, or ok=false if absent or missing.
func (r Record) Value(col string) (string, bool) {
	v, ok := r[col]
	if !ok || IsMissing(v) {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Float returns the numeric value of col.
func (r Record) Float(col string) (float64, bool) {
	v, ok := r[col]
	if !ok {
		return 0, false
	}
	return ParseFloat(v)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a copy of the record with the given columns removed.
func (r Record) Without(cols ...string) Record {
	out := r.Clone()
	for _, c := range cols {
		delete(out, c)
	}
	return out
}

// RecordFromValues converts decoded JSON values into a Record.
func RecordFromValues(values map[string]any) Record {
	r := make(Record, len(values))
	for k, v := range values {
		switch t := v.(type) {
		case nil:
			r[k] = ""
		case string:
			r[k] = t
		case bool:
			r[k] = strconv.FormatBool(t)
		case float64:
			r[k] = strconv.FormatFloat(t, 'g', -1, 64)
		case float32:
			r[k] = strconv.FormatFloat(float64(t), 'g', -1, 32)
		case int:
			r[k] = strconv.Itoa(t)
		case int64:
			r[k] = strconv.FormatInt(t, 10)
		default:
			continue
		}
	}
	return r
}

// Values converts a record into JSON friendly values, parsing numbers where possible.
func (r Record) Values() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if IsMissing(v) {
			out[k] = nil
			continue
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			out[k] = f
			continue
		}
		out[k] = v
	}
	return out
}
