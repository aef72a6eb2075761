package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit indicates a unit string outside the alias table.
var ErrUnknownUnit = errors.New("unknown price unit")

// PriceUnit is the canonical unit a price applies to.
type PriceUnit string

const (
	UnitEach  PriceUnit = "each"
	UnitPair  PriceUnit = "pair"
	UnitDozen PriceUnit = "dozen"
	UnitCase  PriceUnit = "case"
)

// unitAliases maps historical spellings found in supplier feeds onto the
// canonical set. Alias resolution is the only coercion the engine performs;
// a genuine product/variant disagreement is never repaired here.
var unitAliases = map[string]PriceUnit{
	"each":  UnitEach,
	"ea":    UnitEach,
	"pair":  UnitPair,
	"pr":    UnitPair,
	"dozen": UnitDozen,
	"dz":    UnitDozen,
	"case":  UnitCase,
	"cs":    UnitCase,
}

// ParseUnit resolves a raw unit string to its canonical form.
func ParseUnit(raw string) (PriceUnit, error) {
	unit, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownUnit, raw)
	}
	return unit, nil
}

// UnitMismatchError reports a variant whose unit disagrees with its parent
// product. Callers decide whether to repair or reject; the engine never
// guesses.
type UnitMismatchError struct {
	ProductID   int64
	VariantID   int64
	ProductUnit string
	VariantUnit string
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("price unit mismatch: product %d has %q, variant %d has %q",
		e.ProductID, e.ProductUnit, e.VariantID, e.VariantUnit)
}

// NormalizeUnit reconciles a product's unit with an optional variant unit and
// returns the single canonical unit for the line item. An empty variantUnit
// inherits the product unit. Units that resolve to different canonical values
// yield a *UnitMismatchError.
func NormalizeUnit(productID, variantID int64, productUnit, variantUnit string) (PriceUnit, error) {
	canonical, err := ParseUnit(productUnit)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(variantUnit) == "" {
		return canonical, nil
	}
	variantCanonical, err := ParseUnit(variantUnit)
	if err != nil {
		return "", err
	}
	if variantCanonical != canonical {
		return "", &UnitMismatchError{
			ProductID:   productID,
			VariantID:   variantID,
			ProductUnit: productUnit,
			VariantUnit: variantUnit,
		}
	}
	return canonical, nil
}
