// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package extract

import (
	"regexp"
	"strings"
)

// partNumberPattern matches alphanumeric tokens resembling a part number:
// a letter run followed by digits, with optional dash-suffixed segments
// (e.g. LM317, BAV99, TPS62840, LM317-W).
var partNumberPattern = regexp.MustCompile(`(?i)\b([A-Za-z]{2,}[0-9]+(?:-[A-Za-z0-9]+)*)\b`)

// byFromPattern locates an explicit "<part> by <manufacturer>" or
// "<part> from <manufacturer>" clause. The capture after the separator is
// the manufacturer surface form, taken verbatim.
var byFromPattern = regexp.MustCompile(`(?i)\s(?:by|from)\s+(.+)$`)

// RuleExtractor is the deterministic extraction path.
//
// Description:
//
//	Finds part numbers by regex and manufacturers only through exact
//	evidence: an alias-table hit or an explicit by/from clause. Litigation
//	and legal queries bind the matched name to CompanyName instead of
//	Manufacturer.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type RuleExtractor struct {
	// aliases maps lowercase manufacturer abbreviations/names to their
	// canonical form. Single-word keys match whole tokens only; multi-word
	// keys match as substrings.
	aliases map[string]string
}

// NewRuleExtractor creates a deterministic extractor over an alias table.
//
// Inputs:
//
//	aliases - Lowercase alias -> canonical manufacturer name. May be empty.
//
// Outputs:
//
//	*RuleExtractor - The configured extractor.
func NewRuleExtractor(aliases map[string]string) *RuleExtractor {
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &RuleExtractor{aliases: aliases}
}

// Extract runs the deterministic path over a query.
//
// Description:
//
//	Part numbers come from partNumberPattern (uppercased). A manufacturer
//	is set only from the alias table or a by/from clause; the clause text
//	is preserved verbatim in OriginalManufacturer. Queries with litigation
//	or legal phrasing bind the matched name to CompanyName.
//
// Inputs:
//
//	query - The raw user query. May be empty.
//
// Outputs:
//
//	Entities - The extracted fields. Zero value when nothing matched.
func (r *RuleExtractor) Extract(query string) Entities {
	var ents Entities
	lower := strings.ToLower(query)

	if m := partNumberPattern.FindStringSubmatch(query); m != nil {
		ents.PartNumber = strings.ToUpper(m[1])
	}

	// Verbatim by/from clause beats the alias table for the surface form.
	// Only honored when a part number precedes it, so "events from last
	// month" never manufactures a manufacturer.
	if m := byFromPattern.FindStringSubmatch(query); m != nil && ents.PartNumber != "" {
		surface := strings.TrimSpace(m[1])
		if surface != "" {
			ents.OriginalManufacturer = surface
			if canonical := r.lookupAlias(strings.ToLower(surface)); canonical != "" {
				ents.Manufacturer = canonical
			} else {
				ents.Manufacturer = surface
			}
			ents.HasManufacturer = true
		}
	}

	if ents.Manufacturer == "" {
		if canonical := r.lookupAlias(lower); canonical != "" {
			ents.Manufacturer = canonical
			ents.HasManufacturer = true
		}
	}

	// Litigation and legal intent binds the name to the company slot.
	if containsAny(lower, "litigation", "lawsuit", "legal") && ents.Manufacturer != "" {
		ents.CompanyName = ents.Manufacturer
		ents.Manufacturer = ""
		ents.OriginalManufacturer = ""
		ents.HasManufacturer = false
	}

	return ents
}

// Classify runs Extract and derives the coarse intent flags from fixed
// keyword sets.
func (r *RuleExtractor) Classify(query string) Classification {
	lower := strings.ToLower(query)
	cls := Classification{Entities: r.Extract(query)}

	cls.IsMarketQuery = containsAny(lower, "market", "price", "pricing", "availability", "stock", "cost")
	cls.IsBOMQuery = containsAny(lower, "bom", "bill of materials")
	cls.IsEnrichmentQuery = containsAny(lower, "enrich", "enhance", "augment")
	cls.IsLitigationQuery = containsAny(lower, "litigation", "lawsuit", "legal")
	cls.IsCompanyQuery = containsAny(lower, "company details", "company info", "supply chain")
	cls.IsCrossReferenceQuery = containsAny(lower, "cross reference", "alternative", "replacement")
	cls.IsPartSearch = containsAny(lower, "search", "find", "part") || len(strings.TrimSpace(query)) <= 20

	return cls
}

// lookupAlias resolves a lowercase text fragment against the alias table.
// Multi-word aliases match as substrings; single-word aliases match whole
// tokens only, so "st" never fires inside "stock". When several aliases
// occur in the text the earliest occurrence wins, then the longest alias,
// so repeated calls over the same text always resolve the same name.
func (r *RuleExtractor) lookupAlias(lower string) string {
	tokens := strings.FieldsFunc(lower, func(c rune) bool {
		return c == ' ' || c == ',' || c == '\t'
	})
	for _, tok := range tokens {
		if canonical, ok := r.aliases[tok]; ok {
			return canonical
		}
	}

	best := ""
	bestAlias := ""
	bestIdx := -1
	for alias, canonical := range r.aliases {
		if !strings.Contains(alias, " ") {
			continue
		}
		idx := strings.Index(lower, alias)
		if idx < 0 {
			continue
		}
		switch {
		case bestIdx == -1 || idx < bestIdx:
		case idx == bestIdx && len(alias) > len(bestAlias):
		case idx == bestIdx && len(alias) == len(bestAlias) && alias < bestAlias:
		default:
			continue
		}
		best, bestAlias, bestIdx = canonical, alias, idx
	}
	return best
}
