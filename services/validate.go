package services

import (
	"fmt"
	"math"
)

// Warning codes reported by validation and permissive parsing. Warnings are
// always non-fatal: the operation that produced them still yields a usable
// result.
const (
	WarnDuplicateSectionID = "duplicate_section_id"
	WarnMissingHeaderFlag  = "missing_header_flag"
	WarnStaleTotals        = "stale_totals"
	WarnUnknownFormula     = "unknown_formula"
	WarnUnknownColumn      = "unknown_column"
	WarnNonNumeric         = "non_numeric_value"
)

// Warning describes a recoverable defect found in a document or a legacy
// payload, for the caller to log or surface.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateStructure checks a document for structural defects that the
// engine tolerates but callers should know about, currently duplicate
// section ids. It never mutates the document.
func ValidateStructure(doc *Document) []Warning {
	var warnings []Warning

	seen := make(map[string]bool, len(doc.Sections))
	for _, section := range doc.Sections {
		if seen[section.ID] {
			warnings = append(warnings, Warning{
				Code:    WarnDuplicateSectionID,
				Message: fmt.Sprintf("section id %q appears more than once", section.ID),
			})
			continue
		}
		seen[section.ID] = true
	}

	return warnings
}

// ValidateTotals compares the cached totals against a fresh recomputation
// and reports a warning when they disagree. The document is never modified:
// the caller chooses whether to trust the stored value or force a
// recomputation.
func ValidateTotals(doc *Document, policy CalcPolicy) []Warning {
	fresh := CalcTotals(doc, policy)

	if totalsEqual(doc.Totals, fresh, policy) {
		return nil
	}
	return []Warning{{
		Code: WarnStaleTotals,
		Message: fmt.Sprintf("cached grand total %v does not match recomputed %v",
			doc.Totals.GrandTotal, fresh.GrandTotal),
	}}
}

func totalsEqual(a, b Totals, policy CalcPolicy) bool {
	eps := math.Pow(10, -float64(policy.Decimals)) / 2
	close := func(x, y float64) bool { return math.Abs(x-y) < eps }
	return close(a.WorkTotal, b.WorkTotal) &&
		close(a.MaterialsTotal, b.MaterialsTotal) &&
		close(a.GrandTotal, b.GrandTotal) &&
		close(a.ClientWorkTotal, b.ClientWorkTotal) &&
		close(a.ClientMaterialsTotal, b.ClientMaterialsTotal) &&
		close(a.ClientGrandTotal, b.ClientGrandTotal)
}
