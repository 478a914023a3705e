// Package services implements the estimate computation engine: the document
// model, derived-field and totals calculation, default templates, and the
// conversion between the sectioned and legacy flat-row representations.
package services

import "math"

// Estimate categories. Work and supplemental estimates aggregate into the
// work totals bucket, materials estimates into the materials bucket. The
// category on the document is the only partition source; items are never
// classified individually.
const (
	CategoryWork         = "work"
	CategorySupplemental = "supplemental"
	CategoryMaterials    = "materials"
)

// Categories lists every valid estimate category.
var Categories = []string{CategoryWork, CategorySupplemental, CategoryMaterials}

// ValidCategory reports whether c names a known estimate category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// CalcPolicy carries the rounding and defaulting rules shared by every
// calculation call site, so the editor save path, exports and amount
// resolution all agree on the same numbers.
type CalcPolicy struct {
	// Decimals is the precision derived monetary fields are rounded to,
	// half away from zero.
	Decimals int
	// DefaultMarkupPercent and DefaultDiscountPercent apply to newly
	// created rows only; existing rows always keep their own values.
	DefaultMarkupPercent   float64
	DefaultDiscountPercent float64
}

// DefaultCalcPolicy returns kopeck precision with a 20% markup default.
func DefaultCalcPolicy() CalcPolicy {
	return CalcPolicy{
		Decimals:             2,
		DefaultMarkupPercent: 20,
	}
}

// Round applies the policy precision, half away from zero.
func (p CalcPolicy) Round(v float64) float64 {
	factor := math.Pow(10, float64(p.Decimals))
	return math.Round(v*factor) / factor
}

// LineItemCalc holds the derived monetary fields of a single line item.
type LineItemCalc struct {
	Cost        float64 // Quantity * Price
	ClientPrice float64 // Price with markup and discount applied
	ClientCost  float64 // Quantity * ClientPrice
}

// CalcLineItem computes the derived fields for one line item. Negative
// quantity and price are clamped to zero before computing, and a client
// price driven negative by an extreme markup/discount combination is
// clamped to zero as well, so no derived field is ever negative. Header
// rows always yield all-zero derived fields.
func CalcLineItem(item LineItem, policy CalcPolicy) LineItemCalc {
	if item.IsHeader {
		return LineItemCalc{}
	}

	qty := item.Quantity
	if qty < 0 {
		qty = 0
	}
	price := item.Price
	if price < 0 {
		price = 0
	}

	clientPrice := price * (1 + item.MarkupPercent/100) * (1 - item.DiscountPercent/100)
	if clientPrice < 0 {
		clientPrice = 0
	}
	clientPrice = policy.Round(clientPrice)

	return LineItemCalc{
		Cost:        policy.Round(qty * price),
		ClientPrice: clientPrice,
		ClientCost:  policy.Round(qty * clientPrice),
	}
}

// CalcTotals computes the aggregate totals of a document from its sections.
// Header rows and legacy grand-total marker rows never contribute. The
// work/materials split follows the document category alone: a materials
// estimate sums into the materials bucket, work and supplemental estimates
// into the work bucket. The document-level markup/discount defaults are
// carried through unchanged.
//
// The function is pure and idempotent: calling it twice on an unmodified
// document yields identical totals.
func CalcTotals(doc *Document, policy CalcPolicy) Totals {
	var sumCost, sumClientCost float64

	for _, section := range doc.Sections {
		for _, item := range section.Items {
			if item.IsHeader || item.IsTotal {
				continue
			}
			calc := CalcLineItem(item, policy)
			sumCost += calc.Cost
			sumClientCost += calc.ClientCost
		}
	}

	sumCost = policy.Round(sumCost)
	sumClientCost = policy.Round(sumClientCost)

	totals := Totals{
		MarkupPercentDefault:   doc.Totals.MarkupPercentDefault,
		DiscountPercentDefault: doc.Totals.DiscountPercentDefault,
	}

	if doc.Category == CategoryMaterials {
		totals.MaterialsTotal = sumCost
		totals.ClientMaterialsTotal = sumClientCost
	} else {
		totals.WorkTotal = sumCost
		totals.ClientWorkTotal = sumClientCost
	}

	totals.GrandTotal = policy.Round(totals.WorkTotal + totals.MaterialsTotal)
	totals.ClientGrandTotal = policy.Round(totals.ClientWorkTotal + totals.ClientMaterialsTotal)
	return totals
}

// ResolveAmount returns the best available client-facing amount for a
// document, including partially populated ones loaded from degraded or
// legacy sources. It tries, in order: the cached client grand total, the
// cached grand total, a manual walk over the items, and finally a legacy
// grand-total marker row. The first non-zero result wins; a document with
// nothing to offer resolves to zero.
//
// This is a best-effort compatibility lookup for report collaborators, not
// part of the canonical totals computation. New documents always resolve
// through the cached totals.
func ResolveAmount(doc *Document) float64 {
	if doc == nil {
		return 0
	}
	if doc.Totals.ClientGrandTotal != 0 {
		return doc.Totals.ClientGrandTotal
	}
	if doc.Totals.GrandTotal != 0 {
		return doc.Totals.GrandTotal
	}

	var sumCost, sumClientCost float64
	for _, section := range doc.Sections {
		for _, item := range section.Items {
			if item.IsHeader || item.IsTotal {
				continue
			}
			sumCost += item.Cost
			sumClientCost += item.ClientCost
		}
	}
	if sumClientCost != 0 {
		return sumClientCost
	}
	if sumCost != 0 {
		return sumCost
	}

	// Hand-authored spreadsheets sometimes carry their own total line; new
	// documents never produce such rows.
	for _, section := range doc.Sections {
		for _, item := range section.Items {
			if !item.IsTotal {
				continue
			}
			switch {
			case item.ClientCost != 0:
				return item.ClientCost
			case item.Cost != 0:
				return item.Cost
			case item.Price != 0:
				return item.Price
			}
		}
	}

	return 0
}
