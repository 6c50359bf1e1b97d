// Package label derives hype labels for products from their outcome signals
// (rating, review count and popularity) relative to corpus-wide quantile
// thresholds.
package label

import (
	"fmt"
	"strings"
)

// Label is the hype category assigned to a product.
type Label int

const (
	WorthIt Label = iota
	Underrated
	Overrated
	// Neutral is computed for the ambiguous middle of the popularity
	// distribution and discarded before training.
	Neutral
)

// Retained lists the labels kept in a labeled dataset, in reporting order.
var Retained = []Label{WorthIt, Underrated, Overrated}

var names = map[Label]string{
	WorthIt:    "worth_it",
	Underrated: "underrated",
	Overrated:  "overrated",
	Neutral:    "neutral",
}

var titles = map[Label]string{
	WorthIt:    "Worth It",
	Underrated: "Underrated",
	Overrated:  "Overrated",
	Neutral:    "Neutral",
}

// Style is the presentation palette a display surface uses for a label.
type Style struct {
	Background string `json:"bg"`
	Foreground string `json:"fg"`
	Border     string `json:"border"`
}

var styles = map[Label]Style{
	WorthIt:    {Background: "#EEDFCF", Foreground: "#5C3A21", Border: "#DDBFA5"},
	Underrated: {Background: "#F7EEDF", Foreground: "#4B3B2A", Border: "#D9C7AE"},
	Overrated:  {Background: "#EAD7C5", Foreground: "#5A3E2B", Border: "#D9BFA9"},
	Neutral:    {Background: "#F2F2F2", Foreground: "#333333", Border: "#DDDDDD"},
}

// String returns the wire name of the label.
func (l Label) String() string {
	if n, ok := names[l]; ok {
		return n
	}
	return fmt.Sprintf("label(%d)", int(l))
}

// Title returns a human readable name, e.g. "Worth It".
func (l Label) Title() string {
	return titles[l]
}

// Style returns the display palette for the label.
func (l Label) Style() Style {
	return styles[l]
}

// Valid reports whether l is one of the defined labels.
func (l Label) Valid() bool {
	_, ok := names[l]
	return ok
}

// Parse converts a wire name into a Label.
func Parse(s string) (Label, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for l, n := range names {
		if n == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown hype label %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid hype label %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
