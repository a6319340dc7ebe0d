// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/partsignal/partsignal/services/llm"
)

func testAliases() map[string]string {
	return map[string]string{
		"ti":                "Texas Instruments",
		"texas instruments": "Texas Instruments",
		"st":                "STMicroelectronics",
		"toshiba":           "Toshiba",
		"nxp":               "NXP",
		"onsemi":            "onsemi",
	}
}

// =============================================================================
// RuleExtractor Tests
// =============================================================================

func TestRuleExtractor_PartNumberOnly(t *testing.T) {
	r := NewRuleExtractor(testAliases())
	ents := r.Extract("LM317")
	if ents.PartNumber != "LM317" {
		t.Errorf("part_number = %q, want LM317", ents.PartNumber)
	}
	if ents.Manufacturer != "" || ents.HasManufacturer {
		t.Errorf("bare part number must not infer a manufacturer, got %q", ents.Manufacturer)
	}
}

func TestRuleExtractor_UppercasesDashSuffix(t *testing.T) {
	r := NewRuleExtractor(testAliases())
	ents := r.Extract("specifications for lm317-w")
	if ents.PartNumber != "LM317-W" {
		t.Errorf("part_number = %q, want LM317-W", ents.PartNumber)
	}
}

func TestRuleExtractor_MultiAliasResolvesEarliestEveryTime(t *testing.T) {
	aliases := testAliases()
	aliases["analog devices"] = "Analog Devices"
	r := NewRuleExtractor(aliases)

	for i := 0; i < 200; i++ {
		ents := r.Extract("LM317 texas instruments or analog devices")
		if ents.Manufacturer != "Texas Instruments" {
			t.Fatalf("run %d: manufacturer = %q, want Texas Instruments (earliest occurrence)", i, ents.Manufacturer)
		}
	}
}

func TestRuleExtractor_AliasToken(t *testing.T) {
	r := NewRuleExtractor(testAliases())
	ents := r.Extract("lm317 ti")
	if ents.Manufacturer != "Texas Instruments" {
		t.Errorf("manufacturer = %q, want Texas Instruments", ents.Manufacturer)
	}
	if !ents.HasManufacturer {
		t.Error("expected has_manufacturer = true")
	}
}

func TestRuleExtractor_SingleWordAliasNeedsWholeToken(t *testing.T) {
	r := NewRuleExtractor(testAliases())
	// "st" must not fire inside "stock".
	ents := r.Extract("check stock for LM317")
	if ents.Manufacturer != "" {
		t.Errorf("manufacturer = %q, want none (no whole-token alias)", ents.Manufacturer)
	}
}

func TestRuleExtractor_ByClauseVerbatim(t *testing.T) {
	r := NewRuleExtractor(testAliases())
	ents := r.Extract("BAV99 by EVVO Semi")
	if ents.OriginalManufacturer != "EVVO Semi" {
		t.Errorf("original_manufacturer = %q, want EVVO Semi verbatim", ents.OriginalManufacturer)
	}
	if ents.Manufacturer != "EVVO Semi" {
		t.Errorf("manufacturer = %q, want EVVO Semi (unknown alias stays verbatim)", ents.Manufacturer)
	}
	if !ents.HasManufacturer {
		t.Error("expected has_manufacturer = true")
	}
}

func TestRuleExtractor_ByClauseKnownAliasNormalizes(t *testing.T) {
	r := NewRuleExtractor(testAliases())
	ents := r.Extract("LM317 by ti")
	if ents.Manufacturer != "Texas Instruments" {
		t.Errorf("manufacturer = %q, want normalized Texas Instruments", ents.Manufacturer)
	}
	if ents.OriginalManufacturer != "ti" {
		t.Errorf("original_manufacturer = %q, want verbatim ti", ents.OriginalManufacturer)
	}
}

func TestRuleExtractor_FromClauseWithoutPartIgnored(t *testing.T) {
	r := NewRuleExtractor(testAliases())
	ents := r.Extract("supply chain events from last month")
	if ents.Manufacturer != "" || ents.OriginalManufacturer != "" {
		t.Errorf("date-range from clause must not bind a manufacturer, got %q/%q",
			ents.Manufacturer, ents.OriginalManufacturer)
	}
}

func TestRuleExtractor_LitigationBindsCompany(t *testing.T) {
	r := NewRuleExtractor(testAliases())
	ents := r.Extract("toshiba litigations")
	if ents.CompanyName != "Toshiba" {
		t.Errorf("company_name = %q, want Toshiba", ents.CompanyName)
	}
	if ents.Manufacturer != "" || ents.HasManufacturer {
		t.Error("litigation queries must not retain a manufacturer")
	}
}

func TestRuleExtractor_ClassifyFlags(t *testing.T) {
	r := NewRuleExtractor(testAliases())

	tests := []struct {
		query string
		check func(Classification) bool
		name  string
	}{
		{"market availability for LM317", func(c Classification) bool { return c.IsMarketQuery }, "market"},
		{"analyze my bom", func(c Classification) bool { return c.IsBOMQuery }, "bom"},
		{"alternatives for BAV99", func(c Classification) bool { return c.IsCrossReferenceQuery }, "cross-reference"},
		{"toshiba lawsuits", func(c Classification) bool { return c.IsLitigationQuery }, "litigation"},
		{"NXP company details", func(c Classification) bool { return c.IsCompanyQuery }, "company"},
		{"enrich my file", func(c Classification) bool { return c.IsEnrichmentQuery }, "enrichment"},
		{"BAV99", func(c Classification) bool { return c.IsPartSearch }, "short query part search"},
	}

	for _, tt := range tests {
		cls := r.Classify(tt.query)
		if !tt.check(cls) {
			t.Errorf("%s flag not set for %q", tt.name, tt.query)
		}
	}
}

// =============================================================================
// parseClassification Tests
// =============================================================================

func TestParseClassification_MarkdownWrapped(t *testing.T) {
	response := "```json\n{\"part_number\": \"bav99\", \"manufacturer\": \"Toshiba\", \"has_manufacturer\": true, \"is_part_search\": true}\n```"
	cls, err := parseClassification(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.PartNumber != "BAV99" {
		t.Errorf("part_number = %q, want uppercased BAV99", cls.PartNumber)
	}
	if cls.Manufacturer != "Toshiba" || !cls.HasManufacturer {
		t.Errorf("manufacturer = %q has=%v, want Toshiba/true", cls.Manufacturer, cls.HasManufacturer)
	}
}

func TestParseClassification_NullFields(t *testing.T) {
	response := `{"part_number": "LM317", "manufacturer": null, "company_name": null, "has_manufacturer": false}`
	cls, err := parseClassification(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.Manufacturer != "" || cls.HasManufacturer {
		t.Error("null manufacturer must stay empty")
	}
}

func TestParseClassification_HasManufacturerRequiresValue(t *testing.T) {
	// A model claiming has_manufacturer without naming one is overruled.
	response := `{"part_number": "LM317", "manufacturer": null, "has_manufacturer": true}`
	cls, err := parseClassification(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.HasManufacturer {
		t.Error("has_manufacturer must be false when manufacturer is empty")
	}
}

func TestParseClassification_NoJSON(t *testing.T) {
	if _, err := parseClassification("I could not determine the entities."); err == nil {
		t.Fatal("expected error for response without JSON")
	}
}

// =============================================================================
// FallbackExtractor Tests
// =============================================================================

// stubChat returns a canned response or error.
type stubChat struct {
	response string
	err      error
}

func (s *stubChat) Chat(_ context.Context, _ []llm.Message, _ llm.GenerationParams) (string, error) {
	return s.response, s.err
}

func TestFallbackExtractor_UsesRulesOnLLMError(t *testing.T) {
	llmEx, err := NewLLMExtractor(&stubChat{err: errors.New("upstream down")}, DefaultLLMExtractorConfig())
	if err != nil {
		t.Fatalf("NewLLMExtractor: %v", err)
	}
	f := NewFallbackExtractor(llmEx, NewRuleExtractor(testAliases()))

	cls := f.Classify(context.Background(), "lm317 ti")
	if cls.PartNumber != "LM317" {
		t.Errorf("part_number = %q, want LM317 from rules fallback", cls.PartNumber)
	}
	if cls.Manufacturer != "Texas Instruments" {
		t.Errorf("manufacturer = %q, want Texas Instruments from rules fallback", cls.Manufacturer)
	}
}

func TestFallbackExtractor_LLMResultWins(t *testing.T) {
	llmEx, err := NewLLMExtractor(&stubChat{
		response: `{"part_number": "BAV99", "manufacturer": "Toshiba", "has_manufacturer": true, "is_part_search": true}`,
	}, DefaultLLMExtractorConfig())
	if err != nil {
		t.Fatalf("NewLLMExtractor: %v", err)
	}
	f := NewFallbackExtractor(llmEx, NewRuleExtractor(testAliases()))

	cls := f.Classify(context.Background(), "bav99 toshiba")
	if cls.Manufacturer != "Toshiba" || !cls.HasManufacturer {
		t.Errorf("manufacturer = %q has=%v, want Toshiba/true from llm", cls.Manufacturer, cls.HasManufacturer)
	}
}

func TestFallbackExtractor_StampsOriginalManufacturer(t *testing.T) {
	// Model over-normalizes to a canonical name; the verbatim by clause
	// must survive for the validation retry.
	llmEx, err := NewLLMExtractor(&stubChat{
		response: `{"part_number": "BAV99", "manufacturer": "EVVO Semiconductor", "has_manufacturer": true}`,
	}, DefaultLLMExtractorConfig())
	if err != nil {
		t.Fatalf("NewLLMExtractor: %v", err)
	}
	f := NewFallbackExtractor(llmEx, NewRuleExtractor(testAliases()))

	cls := f.Classify(context.Background(), "BAV99 by EVVO Semi")
	if cls.OriginalManufacturer != "EVVO Semi" {
		t.Errorf("original_manufacturer = %q, want verbatim EVVO Semi", cls.OriginalManufacturer)
	}
	if cls.Manufacturer != "EVVO Semiconductor" {
		t.Errorf("manufacturer = %q, want model value preserved", cls.Manufacturer)
	}
}

func TestFallbackExtractor_NilLLMUsesRules(t *testing.T) {
	f := NewFallbackExtractor(nil, NewRuleExtractor(testAliases()))
	cls := f.Classify(context.Background(), "toshiba litigations")
	if cls.CompanyName != "Toshiba" {
		t.Errorf("company_name = %q, want Toshiba", cls.CompanyName)
	}
}

func TestEntities_CompanyFallsBackToManufacturer(t *testing.T) {
	e := Entities{Manufacturer: "NXP"}
	if e.Company() != "NXP" {
		t.Errorf("Company() = %q, want NXP", e.Company())
	}
	e.CompanyName = "Intel"
	if e.Company() != "Intel" {
		t.Errorf("Company() = %q, want Intel", e.Company())
	}
}
