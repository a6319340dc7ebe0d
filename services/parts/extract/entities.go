// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package extract turns free-text part queries into structured entities.
//
// The primary path asks an LLM to extract fields; a deterministic
// regex-and-alias path serves as the fallback. Both paths obey the same
// rule: a manufacturer value exists only when the query names one
// explicitly. Nothing is ever inferred from a part-number prefix.
package extract

import "strings"

// Entities holds the structured fields extracted from a query.
//
// Description:
//
//	Empty string means "not present in the query". Manufacturer may carry
//	a normalized canonical name (e.g. "Texas Instruments" for "ti");
//	OriginalManufacturer preserves the exact surface form the user typed
//	after a "by"/"from" clause, for use as a validation retry value.
type Entities struct {
	// PartNumber is the uppercased part number, e.g. "LM317-W".
	PartNumber string `json:"part_number"`

	// Manufacturer is the (possibly normalized) manufacturer name.
	Manufacturer string `json:"manufacturer"`

	// OriginalManufacturer is the verbatim surface string captured from an
	// explicit "by <X>" or "from <X>" clause. Kept separately from any
	// normalized value so part validation can retry with the exact string
	// the user typed.
	OriginalManufacturer string `json:"original_manufacturer"`

	// CompanyName is the company for litigation/company-profile queries.
	CompanyName string `json:"company_name"`

	// HasManufacturer is true only when a manufacturer was found by an
	// explicit mechanism (alias table hit or by/from clause). Defaults to
	// false. Several dispatch decisions gate on this flag.
	HasManufacturer bool `json:"has_manufacturer"`
}

// Company returns the best available company value: the explicit company
// name when present, otherwise the manufacturer (queries often name a
// company colloquially as a manufacturer).
func (e Entities) Company() string {
	if e.CompanyName != "" {
		return e.CompanyName
	}
	return e.Manufacturer
}

// Classification is the richer analysis used by the deliberative dispatch
// tier: the extracted entities plus coarse intent flags.
type Classification struct {
	Entities

	IsPartSearch          bool `json:"is_part_search"`
	IsMarketQuery         bool `json:"is_market_query"`
	IsBOMQuery            bool `json:"is_bom_query"`
	IsEnrichmentQuery     bool `json:"is_enrichment_query"`
	IsLitigationQuery     bool `json:"is_litigation_query"`
	IsCompanyQuery        bool `json:"is_company_query"`
	IsCrossReferenceQuery bool `json:"is_cross_reference_query"`
}

// truncate shortens a string for span attributes and log previews.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// containsAny reports whether any of the phrases occurs in the lowered text.
func containsAny(lower string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
