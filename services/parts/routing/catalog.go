// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package routing resolves free-text queries to tool selections and
// dispatches them against the parts intelligence gateway.
//
// Resolution runs in two tiers: a fast scored path over the tool catalog,
// and a deliberative ordered rule list for queries the scorer is not
// confident about.
package routing

import "github.com/partsignal/partsignal/services/parts/extract"

// Slot names an entity a tool needs before it can run.
type Slot string

const (
	SlotPartNumber   Slot = "part_number"
	SlotManufacturer Slot = "manufacturer"
	SlotCompany      Slot = "company"
)

// Tool identifiers. These match the tool names in the scoring rules config.
const (
	ToolPartDetails          = "part_details"
	ToolPartSearch           = "part_search"
	ToolMarketAvailability   = "market_availability"
	ToolCrossReferences      = "cross_references"
	ToolCompanyLitigations   = "company_litigations"
	ToolCompanyDetails       = "company_details"
	ToolSupplyChainLocations = "supply_chain_locations"
	ToolSupplyChainEvents    = "supply_chain_events"
	ToolDigikeyStock         = "digikey_stock"
	ToolComplianceData       = "compliance_data"
)

// ToolSpec describes one catalog entry: a named capability bound to a
// gateway operation, gated by required entity slots.
type ToolSpec struct {
	Name        string
	Description string

	// Keywords are matched as lowercase substrings of the query. Each
	// match contributes the configured keyword weight to the score.
	Keywords []string

	// Requires lists the slots that must be filled for this tool to
	// score at all. A company requirement is satisfiable by either a
	// company name or a manufacturer.
	Requires []Slot

	// Optional lists slots the bound operation uses when present.
	Optional []Slot
}

// Catalog returns the full tool catalog in registration order.
//
// Description:
//
//	Order matters: the scorer breaks ties by first registration, so the
//	more specific part tools come before the company tools. The returned
//	slice is freshly allocated; callers may not mutate shared state
//	through it.
func Catalog() []ToolSpec {
	return []ToolSpec{
		{
			Name:        ToolPartDetails,
			Description: "Detailed part information when both part number and manufacturer are known",
			Keywords:    []string{"part details", "specifications", "datasheet", "parameters", "features"},
			Requires:    []Slot{SlotPartNumber, SlotManufacturer},
		},
		{
			Name:        ToolPartSearch,
			Description: "Search for parts when only a part number is known",
			Keywords:    []string{"search", "find", "lookup", "part number"},
			Requires:    []Slot{SlotPartNumber},
		},
		{
			Name:        ToolMarketAvailability,
			Description: "Market availability, pricing, lead times, and distributor stock",
			Keywords:    []string{"market", "availability", "price", "pricing", "stock", "inventory", "distributor", "lead time"},
			Requires:    []Slot{SlotPartNumber},
			Optional:    []Slot{SlotManufacturer},
		},
		{
			Name:        ToolCrossReferences,
			Description: "Alternative or replacement parts",
			Keywords:    []string{"cross reference", "alternative", "replacement", "substitute", "equivalent", "crosses"},
			Requires:    []Slot{SlotPartNumber, SlotManufacturer},
		},
		{
			Name:        ToolCompanyLitigations,
			Description: "Litigation history and legal cases for a company",
			Keywords:    []string{"litigation", "lawsuit", "legal", "court", "case", "litigations"},
			Requires:    []Slot{SlotCompany},
		},
		{
			Name:        ToolCompanyDetails,
			Description: "Company information, revenue, employees, and business details",
			Keywords:    []string{"company details", "company info", "business", "revenue", "employees"},
			Requires:    []Slot{SlotCompany},
		},
		{
			Name:        ToolSupplyChainLocations,
			Description: "Supply chain and factory locations for a company",
			Keywords:    []string{"supply chain", "factory", "location", "manufacturing", "facility"},
			Requires:    []Slot{SlotCompany},
		},
		{
			Name:        ToolSupplyChainEvents,
			Description: "Supply chain events, disruptions, and news",
			Keywords:    []string{"supply chain event", "disruption", "shortage", "supply news"},
		},
		{
			Name:        ToolDigikeyStock,
			Description: "DigiKey specific stock and pricing information",
			Keywords:    []string{"digikey", "digi-key", "digikey stock", "digikey price"},
			Requires:    []Slot{SlotPartNumber},
			Optional:    []Slot{SlotManufacturer},
		},
		{
			Name:        ToolComplianceData,
			Description: "Environmental compliance information (RoHS, REACH)",
			Keywords:    []string{"rohs", "reach", "compliance", "environmental", "restriction", "hazardous"},
			Requires:    []Slot{SlotPartNumber},
			Optional:    []Slot{SlotManufacturer},
		},
	}
}

// hasRequiredSlots reports whether every required slot of spec is filled
// by the extracted entities. A company slot accepts a manufacturer.
func hasRequiredSlots(spec ToolSpec, ents extract.Entities) bool {
	for _, slot := range spec.Requires {
		switch slot {
		case SlotPartNumber:
			if ents.PartNumber == "" {
				return false
			}
		case SlotManufacturer:
			if ents.Manufacturer == "" {
				return false
			}
		case SlotCompany:
			if ents.Company() == "" {
				return false
			}
		}
	}
	return true
}
