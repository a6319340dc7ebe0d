// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package routing

import (
	"context"
	"testing"

	"github.com/partsignal/partsignal/services/parts/config"
	"github.com/partsignal/partsignal/services/parts/extract"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	cfg, err := config.GetScoringConfig(context.Background())
	if err != nil {
		t.Fatalf("GetScoringConfig: %v", err)
	}
	return NewScorer(cfg, Catalog())
}

func TestAnalyzeCrossReferenceBonusDominates(t *testing.T) {
	s := newTestScorer(t)
	ents := extract.Entities{PartNumber: "LM317", Manufacturer: "Texas Instruments", HasManufacturer: true}

	d := s.Analyze(context.Background(), "cross reference for LM317 Texas Instruments", ents)
	if d.Tool == nil || d.Tool.Name != ToolCrossReferences {
		t.Fatalf("tool = %v, want cross_references", d.Tool)
	}
	// "cross reference" keyword (2.0) + explicit-phrase bonus (15.0).
	if d.Score != 17.0 {
		t.Errorf("score = %v, want 17.0", d.Score)
	}
	if !d.Tier1 {
		t.Error("Tier1 = false, want fast-path dispatch")
	}
}

func TestAnalyzeRequiredSlotGate(t *testing.T) {
	s := newTestScorer(t)

	// No part number and no manufacturer: cross_references may not score
	// at all, despite the strong phrase bonus.
	d := s.Analyze(context.Background(), "cross reference alternatives", extract.Entities{})
	if got := d.Scores[ToolCrossReferences]; got != 0 {
		t.Errorf("cross_references score = %v, want 0 with missing slots", got)
	}
	if d.Tool != nil && d.Tool.Name == ToolCrossReferences {
		t.Error("gated tool won the decision")
	}
}

func TestAnalyzeCompanySlotSatisfiedByManufacturer(t *testing.T) {
	s := newTestScorer(t)
	ents := extract.Entities{Manufacturer: "Toshiba", HasManufacturer: true}

	d := s.Analyze(context.Background(), "toshiba litigations", ents)
	if d.Tool == nil || d.Tool.Name != ToolCompanyLitigations {
		t.Fatalf("tool = %v, want company_litigations", d.Tool)
	}
	// "litigations" keyword includes the "litigation" substring, so both
	// match (4.0), plus the litigation bonus (10.0).
	if d.Score != 14.0 {
		t.Errorf("score = %v, want 14.0", d.Score)
	}
}

func TestAnalyzeLawsuitPhraseFastPaths(t *testing.T) {
	s := newTestScorer(t)
	ents := extract.Entities{CompanyName: "Toshiba"}

	d := s.Analyze(context.Background(), "toshiba lawsuit", ents)
	if d.Tool == nil || d.Tool.Name != ToolCompanyLitigations {
		t.Fatalf("tool = %v, want company_litigations", d.Tool)
	}
	// "lawsuit" keyword (2.0) plus the litigation bonus (10.0).
	if d.Score != 12.0 {
		t.Errorf("score = %v, want 12.0", d.Score)
	}
	if !d.Tier1 {
		t.Error("Tier1 = false, want fast-path dispatch")
	}
}

func TestAnalyzeThresholdIsStrict(t *testing.T) {
	s := newTestScorer(t)

	// A single keyword hit with no entities scores exactly 2.0, which
	// must escalate rather than dispatch.
	d := s.Analyze(context.Background(), "what is the lead time", extract.Entities{PartNumber: "LM317"})
	if got := d.Scores[ToolMarketAvailability]; got != 2.0 {
		t.Fatalf("market score = %v, want exactly 2.0", got)
	}
	if d.Tool != nil && d.Tool.Name == ToolMarketAvailability && d.Tier1 {
		t.Error("score equal to threshold dispatched on the fast path")
	}
}

func TestAnalyzeEntityShapeBonuses(t *testing.T) {
	s := newTestScorer(t)

	both := extract.Entities{PartNumber: "LM317-W", Manufacturer: "Texas Instruments Incorporated", HasManufacturer: true}
	d := s.Analyze(context.Background(), "LM317-W Texas Instruments Incorporated", both)
	if d.Tool == nil || d.Tool.Name != ToolPartDetails {
		t.Fatalf("tool = %v, want part_details for part+manufacturer", d.Tool)
	}
	if d.Score != 3.0 {
		t.Errorf("score = %v, want entity bonus 3.0", d.Score)
	}
	if !d.Tier1 {
		t.Error("part+manufacturer shape should clear the threshold")
	}

	partOnly := extract.Entities{PartNumber: "BAV99"}
	d = s.Analyze(context.Background(), "BAV99", partOnly)
	if d.Tool == nil || d.Tool.Name != ToolPartSearch {
		t.Fatalf("tool = %v, want part_search for bare part", d.Tool)
	}
	if d.Tier1 {
		t.Error("bare part at 2.0 should escalate to Tier 2")
	}
}

func TestAnalyzeDigikeyBonus(t *testing.T) {
	s := newTestScorer(t)
	ents := extract.Entities{PartNumber: "LM317"}

	d := s.Analyze(context.Background(), "DigiKey stock for LM317", ents)
	if d.Tool == nil || d.Tool.Name != ToolDigikeyStock {
		t.Fatalf("tool = %v, want digikey_stock", d.Tool)
	}
	if d.Scores[ToolDigikeyStock] <= d.Scores[ToolMarketAvailability] {
		t.Errorf("digikey %v should outscore market %v",
			d.Scores[ToolDigikeyStock], d.Scores[ToolMarketAvailability])
	}
}

func TestAnalyzeSupplyChainLocationBeatsEvents(t *testing.T) {
	s := newTestScorer(t)
	ents := extract.Entities{CompanyName: "TDK"}

	// Both "location" and "event" present: the events rule is suppressed
	// by its exclude phrase, so locations wins.
	d := s.Analyze(context.Background(), "supply chain location and event data for TDK", ents)
	if d.Tool == nil || d.Tool.Name != ToolSupplyChainLocations {
		t.Fatalf("tool = %v, want supply_chain_locations", d.Tool)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	s := newTestScorer(t)
	ents := extract.Entities{PartNumber: "LM317", Manufacturer: "Texas Instruments", HasManufacturer: true}

	first := s.Analyze(context.Background(), "market price for LM317", ents)
	for i := 0; i < 5; i++ {
		again := s.Analyze(context.Background(), "market price for LM317", ents)
		if again.Tool.Name != first.Tool.Name || again.Score != first.Score {
			t.Fatalf("run %d: tool=%s score=%v, first had tool=%s score=%v",
				i, again.Tool.Name, again.Score, first.Tool.Name, first.Score)
		}
	}
}

func TestBonusRuleFires(t *testing.T) {
	tests := []struct {
		name  string
		rule  config.BonusRule
		query string
		want  bool
	}{
		{
			name:  "any phrase matches",
			rule:  config.BonusRule{Phrases: []string{"rohs", "reach"}},
			query: "is lm317 rohs compliant",
			want:  true,
		},
		{
			name:  "all required missing one",
			rule:  config.BonusRule{Phrases: []string{"company", "details"}, AllRequired: true},
			query: "company revenue",
			want:  false,
		},
		{
			name:  "all required present",
			rule:  config.BonusRule{Phrases: []string{"company", "details"}, AllRequired: true},
			query: "company details for murata",
			want:  true,
		},
		{
			name:  "exclude phrase suppresses",
			rule:  config.BonusRule{Phrases: []string{"supply chain", "event"}, AllRequired: true, ExcludePhrases: []string{"location"}},
			query: "supply chain event location",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bonusRuleFires(tt.rule, tt.query); got != tt.want {
				t.Errorf("bonusRuleFires = %v, want %v", got, tt.want)
			}
		})
	}
}
