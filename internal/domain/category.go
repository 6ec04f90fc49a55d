package domain

import "fmt"

// RiskCategory is the ordinal heat-illness risk class derived from a heat index.
type RiskCategory int

const (
	Caution RiskCategory = iota
	ExtremeCaution
	Danger
	ExtremeDanger
)

// NumCategories is the number of risk classes and the width of a one-hot label.
const NumCategories = 4

// Lower bounds (inclusive) of each category above Caution.
const (
	ExtremeCautionThreshold = 90.0
	DangerThreshold         = 103.0
	ExtremeDangerThreshold  = 125.0
)

var categoryNames = [NumCategories]string{
	"caution",
	"extreme_caution",
	"danger",
	"extreme_danger",
}

var categoryLabels = [NumCategories]string{
	"Caution (HI < 90F)",
	"Extreme Caution (90-103F)",
	"Danger (103-125F)",
	"Extreme Danger (HI > 125F)",
}

// Categories lists every risk class in enum (and one-hot column) order.
func Categories() []RiskCategory {
	return []RiskCategory{Caution, ExtremeCaution, Danger, ExtremeDanger}
}

// Categorize maps a heat index to its risk category. Bounds are inclusive, so
// a tie resolves to the more severe class. NaN falls through to Caution.
func Categorize(hi float64) RiskCategory {
	switch {
	case hi >= ExtremeDangerThreshold:
		return ExtremeDanger
	case hi >= DangerThreshold:
		return Danger
	case hi >= ExtremeCautionThreshold:
		return ExtremeCaution
	default:
		return Caution
	}
}

// Valid reports whether c is one of the four defined categories.
func (c RiskCategory) Valid() bool {
	return c >= Caution && c <= ExtremeDanger
}

// String returns the machine-friendly name used in metrics labels and headers.
func (c RiskCategory) String() string {
	if !c.Valid() {
		return fmt.Sprintf("RiskCategory(%d)", int(c))
	}
	return categoryNames[c]
}

// Label returns the human-readable name with its heat index range.
func (c RiskCategory) Label() string {
	if !c.Valid() {
		return c.String()
	}
	return categoryLabels[c]
}

// ParseRiskCategory is the inverse of String.
func ParseRiskCategory(s string) (RiskCategory, error) {
	for i, name := range categoryNames {
		if name == s {
			return RiskCategory(i), nil
		}
	}
	return Caution, fmt.Errorf("unknown risk category %q", s)
}

// MarshalText encodes the category by name so JSON payloads stay readable.
func (c RiskCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid risk category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name produced by MarshalText.
func (c *RiskCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
