// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package response

import (
	"errors"
	"strings"
	"testing"

	"github.com/partsignal/partsignal/services/parts/z2"
)

func TestNormalizeMarketColumnsAndPlaceholders(t *testing.T) {
	data := &z2.MarketData{
		PartNumber: "LM317T",
		Rows: []map[string]any{
			{"DistributorName": "Digi-Key", "Stock": float64(1200), "UnitPrice": 0.45, "MOQ": float64(1)},
		},
	}

	resp := NormalizeMarket(data)
	if resp.Kind != KindTable {
		t.Fatalf("Kind = %q, want %q", resp.Kind, KindTable)
	}
	if got := len(resp.Table.Columns); got != 5 {
		t.Fatalf("columns = %d, want 5", got)
	}
	row := resp.Table.Rows[0]
	if row["Distributor"] != "Digi-Key" {
		t.Errorf("Distributor = %q", row["Distributor"])
	}
	if row["Stock"] != "1200" {
		t.Errorf("Stock = %q, want whole number rendering", row["Stock"])
	}
	if row["Price (USD)"] != "0.45" {
		t.Errorf("Price (USD) = %q", row["Price (USD)"])
	}
	if row["Lead Time"] != Placeholder {
		t.Errorf("missing field = %q, want %q", row["Lead Time"], Placeholder)
	}
}

func TestNormalizeMarketEmpty(t *testing.T) {
	resp := NormalizeMarket(&z2.MarketData{PartNumber: "BAV99"})
	if resp.Kind != KindTable {
		t.Fatalf("Kind = %q, want table", resp.Kind)
	}
	if len(resp.Table.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(resp.Table.Rows))
	}
	if !strings.Contains(resp.Table.Title, "No market availability found for BAV99") {
		t.Errorf("title = %q", resp.Table.Title)
	}
}

func TestNormalizeMarketKeepsEveryRecord(t *testing.T) {
	data := &z2.MarketData{PartNumber: "LM317T"}
	for i := 0; i < 25; i++ {
		data.Rows = append(data.Rows, map[string]any{"DistributorName": "Mouser"})
	}

	resp := NormalizeMarket(data)
	if len(resp.Table.Rows) != len(data.Rows) {
		t.Errorf("rows = %d, want %d (one table row per record)", len(resp.Table.Rows), len(data.Rows))
	}
}

func TestNormalizeCrossReferencesKeepsEveryCross(t *testing.T) {
	data := &z2.CrossReferenceData{
		Original: z2.CrossReference{PartNumber: "LM317T", CompanyName: "Texas Instruments"},
	}
	for i := 0; i < 15; i++ {
		data.Crosses = append(data.Crosses, z2.CrossReference{PartNumber: "ALT", CompanyName: "onsemi"})
	}

	resp := NormalizeCrossReferences(data)
	if len(resp.Table.Rows) != len(data.Crosses)+1 {
		t.Errorf("rows = %d, want %d (original plus one per cross)", len(resp.Table.Rows), len(data.Crosses)+1)
	}
	if !strings.Contains(resp.Table.Title, "(15 alternatives found)") {
		t.Errorf("title = %q", resp.Table.Title)
	}
}

func TestNormalizeCrossReferencesOriginalFirst(t *testing.T) {
	data := &z2.CrossReferenceData{
		Original: z2.CrossReference{
			PartNumber:    "LM317T",
			CompanyName:   "Texas Instruments",
			PartLifecycle: "Active",
		},
		Crosses: []z2.CrossReference{
			{PartNumber: "LM317BT", CompanyName: "onsemi", CrossType: "Drop-in", CrossComment: "Pin compatible"},
			{PartNumber: "NCP1117", CompanyName: "onsemi", CrossType: "Functional"},
		},
	}

	resp := NormalizeCrossReferences(data)
	want := "Cross References for LM317T - Texas Instruments (2 alternatives found)"
	if resp.Table.Title != want {
		t.Errorf("title = %q, want %q", resp.Table.Title, want)
	}
	if len(resp.Table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(resp.Table.Rows))
	}
	if resp.Table.Rows[0]["Cross Type"] != "ORIGINAL PART" {
		t.Errorf("first row Cross Type = %q, want ORIGINAL PART", resp.Table.Rows[0]["Cross Type"])
	}
	if resp.Table.Rows[1]["Comment"] != "Pin compatible" {
		t.Errorf("cross comment = %q", resp.Table.Rows[1]["Comment"])
	}
	if resp.Table.Rows[2]["Comment"] != Placeholder {
		t.Errorf("empty comment = %q, want placeholder", resp.Table.Rows[2]["Comment"])
	}
}

func TestNormalizePartDetailsSectionOrder(t *testing.T) {
	data := &z2.PartDetails{
		PartNumber:            "LM317T",
		ValidatedManufacturer: "Texas Instruments",
		Sections: map[string]any{
			"ZZExtra":    map[string]any{"Footprint": "TO-220"},
			"Lifecycle":  map[string]any{"LifecycleStatus": "Active", "EstimatedEOL": "2030"},
			"MPNSummary": map[string]any{"Supplier": "Texas Instruments", "Description": "Adjustable regulator"},
		},
	}

	resp := NormalizePartDetails(data)
	if resp.Kind != KindDetail {
		t.Fatalf("Kind = %q, want detail", resp.Kind)
	}
	if resp.Detail.Title != "Part Details: LM317T - Texas Instruments" {
		t.Errorf("title = %q", resp.Detail.Title)
	}
	headings := make([]string, 0, len(resp.Detail.Sections))
	for _, s := range resp.Detail.Sections {
		headings = append(headings, s.Heading)
	}
	if len(headings) != 3 || headings[0] != "MPNSummary" || headings[1] != "Lifecycle" || headings[2] != "ZZExtra" {
		t.Errorf("section order = %v", headings)
	}
	// Fields within a section sort by key.
	lifecycle := resp.Detail.Sections[1]
	if lifecycle.Fields[0].Key != "EstimatedEOL" {
		t.Errorf("first lifecycle field = %q, want EstimatedEOL", lifecycle.Fields[0].Key)
	}
}

func TestNormalizePartDetailsSkipsNestedValues(t *testing.T) {
	data := &z2.PartDetails{
		PartNumber: "BAV99",
		Sections: map[string]any{
			"Summary": map[string]any{
				"Supplier": "Vishay",
				"Crosses":  []any{"ignored"},
			},
		},
	}

	resp := NormalizePartDetails(data)
	fields := resp.Detail.Sections[0].Fields
	if len(fields) != 1 || fields[0].Key != "Supplier" {
		t.Errorf("fields = %v, want only Supplier", fields)
	}
}

func TestNormalizeSearchGuidedDelegatesToDetails(t *testing.T) {
	data := &z2.SearchData{
		PartNumber: "LM317T",
		Details: &z2.PartDetails{
			PartNumber: "LM317T",
			Sections:   map[string]any{"Summary": map[string]any{"Supplier": "TI"}},
		},
	}

	resp := NormalizeSearch(data)
	if resp.Kind != KindDetail {
		t.Errorf("Kind = %q, want detail for guided lookup", resp.Kind)
	}
}

func TestNormalizeSearchTable(t *testing.T) {
	data := &z2.SearchData{
		PartNumber: "LM317",
		Rows: []map[string]any{
			{"partNumber": "LM317T", "companyName": "Texas Instruments", "partLifecycle": "Active"},
			{"partNumber": "LM317LZ", "companyName": "STMicroelectronics"},
		},
	}

	resp := NormalizeSearch(data)
	if !strings.Contains(resp.Table.Title, "Found 2 matching parts") {
		t.Errorf("title = %q", resp.Table.Title)
	}
	if resp.Table.Rows[0]["Part Number"] != "LM317T" {
		t.Errorf("part number = %q", resp.Table.Rows[0]["Part Number"])
	}
	if resp.Table.Rows[1]["Lifecycle"] != Placeholder {
		t.Errorf("missing lifecycle = %q", resp.Table.Rows[1]["Lifecycle"])
	}
}

func TestNormalizeLitigationsEmpty(t *testing.T) {
	resp := NormalizeLitigations(&z2.LitigationData{CompanyName: "toshiba", ValidatedName: "Toshiba Corporation"})
	if resp.Table.Title != "No litigation records found for Toshiba Corporation" {
		t.Errorf("title = %q", resp.Table.Title)
	}
}

func TestNormalizeLitigationsRows(t *testing.T) {
	data := &z2.LitigationData{
		ValidatedName: "Texas Instruments",
		Rows: []map[string]any{
			{"CaseName": "TI v. Acme", "Court": "N.D. Cal.", "FilingDate": "2024-02-01", "Status": "Open"},
		},
	}

	resp := NormalizeLitigations(data)
	if resp.Table.Title != "Litigation History for Texas Instruments" {
		t.Errorf("title = %q", resp.Table.Title)
	}
	if resp.Table.Rows[0]["Court"] != "N.D. Cal." {
		t.Errorf("court = %q", resp.Table.Rows[0]["Court"])
	}
}

func TestNormalizeCompanyDetails(t *testing.T) {
	data := &z2.CompanyDetails{
		ValidatedName: "Murata Manufacturing",
		Sections: map[string]any{
			"Addresses":      map[string]any{"HQ": "Kyoto"},
			"CompanySummary": map[string]any{"Industry": "Passives", "EmployeeCount": float64(77000)},
		},
	}

	resp := NormalizeCompanyDetails(data)
	if resp.Detail.Title != "Company Details: Murata Manufacturing" {
		t.Errorf("title = %q", resp.Detail.Title)
	}
	if resp.Detail.Sections[0].Heading != "CompanySummary" {
		t.Errorf("first section = %q, want CompanySummary", resp.Detail.Sections[0].Heading)
	}
}

func TestNormalizeSupplyChainFindsRecordList(t *testing.T) {
	data := &z2.SupplyChainData{
		ValidatedName: "TDK Corporation",
		Sections: map[string]any{
			"Meta": "ignored",
			"Sites": []any{
				map[string]any{"name": "Akita Plant", "city": "Nikaho", "country": "Japan", "type": "Fab"},
			},
		},
	}

	resp := NormalizeSupplyChain(data)
	if len(resp.Table.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(resp.Table.Rows))
	}
	row := resp.Table.Rows[0]
	if row["Site"] != "Akita Plant" || row["Country"] != "Japan" {
		t.Errorf("row = %v", row)
	}
}

func TestNormalizeSupplyChainEmpty(t *testing.T) {
	resp := NormalizeSupplyChain(&z2.SupplyChainData{CompanyName: "Acme"})
	if !strings.Contains(resp.Table.Title, "No supply chain locations found for Acme") {
		t.Errorf("title = %q", resp.Table.Title)
	}
}

func TestNormalizeEvents(t *testing.T) {
	data := &z2.EventsData{
		DateFrom: "2026-08-01",
		DateTo:   "2026-08-31",
		Rows: []map[string]any{
			{"EventType": "Factory Fire", "EventDate": "2026-08-14", "Description": "Fab line halted", "Impact": "High"},
		},
	}

	resp := NormalizeEvents(data)
	if resp.Table.Title != "Supply Chain Events (2026-08-01 to 2026-08-31)" {
		t.Errorf("title = %q", resp.Table.Title)
	}
	if resp.Table.Rows[0]["Impact"] != "High" {
		t.Errorf("impact = %q", resp.Table.Rows[0]["Impact"])
	}
}

func TestNormalizeComplianceAlwaysHasRoHSAndREACH(t *testing.T) {
	data := &z2.ComplianceData{
		PartNumber: "LM317T",
		Fields:     map[string]any{"RoHSStatus": "Compliant", "HalogenFree": "Yes"},
	}

	resp := NormalizeCompliance(data)
	fields := resp.Detail.Sections[0].Fields
	if fields[0].Key != "RoHS" || fields[0].Value != "Compliant" {
		t.Errorf("RoHS field = %+v", fields[0])
	}
	if fields[1].Key != "REACH" || fields[1].Value != Placeholder {
		t.Errorf("REACH field = %+v, want placeholder", fields[1])
	}
	if fields[2].Key != "HalogenFree" {
		t.Errorf("extra field = %+v", fields[2])
	}
}

func TestNormalizeDistributorStock(t *testing.T) {
	data := &z2.DistributorStockData{
		PartNumber:  "BAV99",
		Distributor: "DigiKey",
		Rows:        []map[string]any{{"DistributorName": "Digi-Key", "Stock": float64(500)}},
	}

	resp := NormalizeDistributorStock(data)
	if resp.Table.Title != "DigiKey Stock: BAV99" {
		t.Errorf("title = %q", resp.Table.Title)
	}
	if resp.Table.Rows[0]["Stock"] != "500" {
		t.Errorf("stock = %q", resp.Table.Rows[0]["Stock"])
	}
}

func TestNormalizeErrorKinds(t *testing.T) {
	notFound := &z2.Error{
		Kind:        z2.KindEntityNotFound,
		Message:     "part LM999 not found",
		MatchStatus: "No Match",
		MatchReason: "Low confidence",
	}
	resp := NormalizeError(notFound)
	if resp.Kind != KindError {
		t.Fatalf("Kind = %q, want error", resp.Kind)
	}
	if resp.Error.Kind != "entity_not_found" {
		t.Errorf("error kind = %q", resp.Error.Kind)
	}
	if !strings.Contains(resp.Error.Message, "Low confidence") {
		t.Errorf("message = %q, want match reason included", resp.Error.Message)
	}

	resp = NormalizeError(errors.New("boom"))
	if resp.Error.Kind != "internal" {
		t.Errorf("plain error kind = %q, want internal", resp.Error.Kind)
	}
}

func TestShorten(t *testing.T) {
	long := strings.Repeat("x", 80)
	if got := shorten(long); len(got) != maxDescriptionLen+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("shorten = %q", got)
	}
	if got := shorten("short"); got != "short" {
		t.Errorf("shorten(short) = %q", got)
	}
}
