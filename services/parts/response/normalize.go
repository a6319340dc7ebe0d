// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package response

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/partsignal/partsignal/services/parts/z2"
)

// maxDescriptionLen truncates long free-text cells.
const maxDescriptionLen = 50

// =============================================================================
// Error Normalization
// =============================================================================

// NormalizeError maps a client failure onto the Error variant.
//
// Description:
//
//	Typed gateway errors keep their kind tag so callers can distinguish a
//	miss from an outage. Anything else is reported as "internal".
func NormalizeError(err error) Response {
	if e, ok := z2.AsError(err); ok {
		msg := e.Message
		if e.MatchReason != "" {
			msg = fmt.Sprintf("%s (reason: %s)", msg, e.MatchReason)
		}
		if e.HTTPStatus != 0 {
			msg = fmt.Sprintf("%s (HTTP %d)", msg, e.HTTPStatus)
		}
		return NewError(msg, string(e.Kind))
	}
	return NewError(err.Error(), "internal")
}

// =============================================================================
// Part Details
// =============================================================================

// preferredSectionOrder lists the detail sections rendered first, in this
// order. Remaining sections follow alphabetically.
var preferredSectionOrder = []string{"MPNSummary", "Summary", "Lifecycle", "ComplianceDetails"}

// NormalizePartDetails renders a part detail payload as a Detail response.
//
// Description:
//
//	One section per named subsection of the payload. Known sections come
//	first in a fixed order, the rest alphabetically; scalar fields within
//	a section sort by key. Nested structures are skipped (they belong to
//	dedicated operations like cross references).
func NormalizePartDetails(d *z2.PartDetails) Response {
	title := "Part Details: " + d.PartNumber
	if d.ValidatedManufacturer != "" {
		title += " - " + d.ValidatedManufacturer
	}

	sections := sectionsFromMap(d.Sections, preferredSectionOrder)
	if len(sections) == 0 {
		return NewDetail("No details found for "+d.PartNumber, nil)
	}
	return NewDetail(title, sections)
}

// sectionsFromMap renders named subsections in preferred-then-alphabetical
// order with sorted scalar fields.
func sectionsFromMap(raw map[string]any, preferred []string) []Section {
	var names []string
	seen := map[string]bool{}
	for _, name := range preferred {
		if _, ok := raw[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range raw {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	var sections []Section
	for _, name := range names {
		fields, ok := raw[name].(map[string]any)
		if !ok {
			continue
		}
		section := Section{Heading: name, Fields: fieldsFromMap(fields)}
		if len(section.Fields) > 0 {
			sections = append(sections, section)
		}
	}
	return sections
}

// fieldsFromMap renders the scalar entries of a map as sorted Fields.
func fieldsFromMap(fields map[string]any) []Field {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if isScalar(fields[key]) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make([]Field, 0, len(keys))
	for _, key := range keys {
		out = append(out, Field{Key: key, Value: stringify(fields[key])})
	}
	return out
}

// =============================================================================
// Part Search
// =============================================================================

var searchColumns = []string{"Part Number", "Manufacturer", "Description", "Lifecycle"}

// NormalizeSearch renders search results as a Table, or delegates to the
// detail normalizer for a manufacturer-guided lookup.
func NormalizeSearch(d *z2.SearchData) Response {
	if d.Details != nil {
		return NormalizePartDetails(d.Details)
	}

	if len(d.Rows) == 0 {
		return NewTable(fmt.Sprintf("No parts found for %q", d.PartNumber), searchColumns, nil)
	}

	rows := make([]map[string]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		rows = append(rows, map[string]string{
			"Part Number":  cell(row, "MPN", "partNumber", "PartNumber", "Z2MPN"),
			"Manufacturer": cell(row, "Supplier", "companyName", "CompanyName", "Manufacturer"),
			"Description":  shorten(cell(row, "Description", "partDescription", "PartDescription")),
			"Lifecycle":    cell(row, "Lifecycle", "partLifecycle", "LifecycleStatus"),
		})
	}

	title := fmt.Sprintf("Found %d matching parts for %q", len(d.Rows), d.PartNumber)
	return NewTable(title, searchColumns, rows)
}

// =============================================================================
// Market Availability
// =============================================================================

var marketColumns = []string{"Distributor", "Stock", "Price (USD)", "MOQ", "Lead Time"}

// NormalizeMarket renders market availability rows as a Table.
func NormalizeMarket(d *z2.MarketData) Response {
	if len(d.Rows) == 0 {
		return NewTable("No market availability found for "+d.PartNumber, marketColumns, nil)
	}

	rows := make([]map[string]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		rows = append(rows, marketRow(row))
	}
	return NewTable("Market Availability: "+d.PartNumber, marketColumns, rows)
}

func marketRow(row map[string]any) map[string]string {
	return map[string]string{
		"Distributor": cell(row, "DistributorName", "Distributor", "Seller"),
		"Stock":       cell(row, "Stock", "StockQty", "Quantity"),
		"Price (USD)": cell(row, "UnitPrice", "Price"),
		"MOQ":         cell(row, "MOQ", "MinimumOrderQty"),
		"Lead Time":   cell(row, "LeadTime", "LeadTimeWeeks"),
	}
}

// NormalizeDistributorStock renders distributor-filtered market rows.
func NormalizeDistributorStock(d *z2.DistributorStockData) Response {
	title := fmt.Sprintf("%s Stock: %s", d.Distributor, d.PartNumber)
	if len(d.Rows) == 0 {
		return NewTable(fmt.Sprintf("No %s stock found for %s", d.Distributor, d.PartNumber), marketColumns, nil)
	}

	rows := make([]map[string]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		rows = append(rows, marketRow(row))
	}
	return NewTable(title, marketColumns, rows)
}

// =============================================================================
// Cross References
// =============================================================================

var crossColumns = []string{"Part Number", "Manufacturer", "Lifecycle", "RoHS", "Package", "Description", "Cross Type", "Comment"}

// originalPartCrossType marks the reference part's row in the cross table.
const originalPartCrossType = "ORIGINAL PART"

// NormalizeCrossReferences renders the reference part and its alternatives
// as one Table, original part first.
func NormalizeCrossReferences(d *z2.CrossReferenceData) Response {
	title := fmt.Sprintf("Cross References for %s - %s (%d alternatives found)",
		orPlaceholder(d.Original.PartNumber), orPlaceholder(d.Original.CompanyName), len(d.Crosses))

	rows := []map[string]string{crossRow(d.Original, originalPartCrossType, "Reference part for cross comparison")}
	for _, cross := range d.Crosses {
		rows = append(rows, crossRow(cross, cross.CrossType, cross.CrossComment))
	}

	return NewTable(title, crossColumns, rows)
}

func crossRow(c z2.CrossReference, crossType, comment string) map[string]string {
	return map[string]string{
		"Part Number":  orPlaceholder(c.PartNumber),
		"Manufacturer": orPlaceholder(c.CompanyName),
		"Lifecycle":    orPlaceholder(c.PartLifecycle),
		"RoHS":         orPlaceholder(c.RoHSFlag),
		"Package":      orPlaceholder(c.Package),
		"Description":  shorten(orPlaceholder(c.PartDescription)),
		"Cross Type":   orPlaceholder(crossType),
		"Comment":      orPlaceholder(comment),
	}
}

// =============================================================================
// Company Operations
// =============================================================================

var litigationColumns = []string{"Case Name", "Court", "Filing Date", "Status"}

// NormalizeLitigations renders litigation rows as a Table.
func NormalizeLitigations(d *z2.LitigationData) Response {
	company := d.ValidatedName
	if company == "" {
		company = d.CompanyName
	}

	if len(d.Rows) == 0 {
		return NewTable("No litigation records found for "+company, litigationColumns, nil)
	}

	rows := make([]map[string]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		rows = append(rows, map[string]string{
			"Case Name":   cell(row, "CaseName", "Title", "caseName"),
			"Court":       cell(row, "Court", "court"),
			"Filing Date": cell(row, "FilingDate", "FiledDate", "Date"),
			"Status":      cell(row, "Status", "CaseStatus"),
		})
	}
	return NewTable("Litigation History for "+company, litigationColumns, rows)
}

var companySectionOrder = []string{"CompanySummary", "Summary", "Financials"}

// NormalizeCompanyDetails renders the company profile as a Detail.
func NormalizeCompanyDetails(d *z2.CompanyDetails) Response {
	company := d.ValidatedName
	if company == "" {
		company = d.CompanyName
	}

	sections := sectionsFromMap(d.Sections, companySectionOrder)
	if len(sections) == 0 {
		return NewDetail("No company details found for "+company, nil)
	}
	return NewDetail("Company Details: "+company, sections)
}

var locationColumns = []string{"Site", "City", "Country", "Type"}

// NormalizeSupplyChain renders facility locations as a Table.
//
// Description:
//
//	The supply chain payload nests its site list under a key that varies
//	by account tier, so the first list-of-records value found in the
//	payload is taken as the site list.
func NormalizeSupplyChain(d *z2.SupplyChainData) Response {
	company := d.ValidatedName
	if company == "" {
		company = d.CompanyName
	}

	sites := firstRecordList(d.Sections)
	if len(sites) == 0 {
		return NewTable("No supply chain locations found for "+company, locationColumns, nil)
	}

	rows := make([]map[string]string, 0, len(sites))
	for _, site := range sites {
		rows = append(rows, map[string]string{
			"Site":    cell(site, "name", "Name", "SiteName", "FacilityName"),
			"City":    cell(site, "city", "City"),
			"Country": cell(site, "country", "Country"),
			"Type":    cell(site, "type", "Type", "SiteType"),
		})
	}
	return NewTable("Supply Chain Locations for "+company, locationColumns, rows)
}

// firstRecordList finds the first list-of-objects value in a payload map,
// probing keys in sorted order for determinism.
func firstRecordList(sections map[string]any) []map[string]any {
	keys := make([]string, 0, len(sections))
	for key := range sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		list, ok := sections[key].([]any)
		if !ok {
			continue
		}
		var rows []map[string]any
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				rows = append(rows, m)
			}
		}
		if len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// =============================================================================
// Supply Chain Events
// =============================================================================

var eventColumns = []string{"Event Type", "Date", "Description", "Impact"}

// NormalizeEvents renders grouped disruption events as a Table.
func NormalizeEvents(d *z2.EventsData) Response {
	period := fmt.Sprintf("%s to %s", d.DateFrom, d.DateTo)
	if len(d.Rows) == 0 {
		return NewTable("No supply chain events found ("+period+")", eventColumns, nil)
	}

	rows := make([]map[string]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		rows = append(rows, map[string]string{
			"Event Type":  cell(row, "EventType", "Type"),
			"Date":        cell(row, "EventDate", "Date"),
			"Description": shorten(cell(row, "Description", "EventDescription")),
			"Impact":      cell(row, "Impact", "Severity"),
		})
	}
	return NewTable("Supply Chain Events ("+period+")", eventColumns, rows)
}

// =============================================================================
// Compliance
// =============================================================================

// NormalizeCompliance renders environmental compliance data as a Detail.
//
// Description:
//
//	RoHS and REACH status always appear, placeholdered when the gateway
//	omits them; remaining scalar fields follow sorted.
func NormalizeCompliance(d *z2.ComplianceData) Response {
	title := "Compliance Information: " + d.PartNumber

	fields := []Field{
		{Key: "RoHS", Value: cell(d.Fields, "RoHSStatus", "RoHS", "roHsFlag")},
		{Key: "REACH", Value: cell(d.Fields, "REACHStatus", "REACH")},
	}
	for _, f := range fieldsFromMap(d.Fields) {
		switch f.Key {
		case "RoHSStatus", "RoHS", "roHsFlag", "REACHStatus", "REACH":
			continue
		}
		fields = append(fields, f)
	}

	return NewDetail(title, []Section{{Heading: "Compliance", Fields: fields}})
}

// =============================================================================
// Shared Helpers
// =============================================================================

// cell probes a row for the first present key alias and stringifies it.
// Missing or non-scalar values render as the Placeholder.
func cell(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := row[key]; ok && isScalar(value) {
			if s := stringify(value); s != "" {
				return s
			}
		}
	}
	return Placeholder
}

// isScalar reports whether a decoded JSON value renders as a single cell.
func isScalar(v any) bool {
	switch v.(type) {
	case string, float64, bool, int, int64, nil:
		return true
	}
	return false
}

// stringify renders a scalar JSON value. Whole-number floats drop the
// fractional part so IDs and counts read naturally.
func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// orPlaceholder substitutes the Placeholder for empty strings.
func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// shorten truncates long free-text cells.
func shorten(s string) string {
	if len(s) > maxDescriptionLen {
		return s[:maxDescriptionLen] + "..."
	}
	return s
}
