// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package routing

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/partsignal/partsignal/services/parts/config"
	"github.com/partsignal/partsignal/services/parts/extract"
)

// Scorer ranks catalog tools against a query and its extracted entities.
//
// Description:
//
//	Implements a cumulative rule table: each matched catalog keyword
//	contributes the configured weight, phrase bonus rules stack on top,
//	and entity-shape bonuses nudge part_details/part_search based on
//	which slots are filled. A tool missing a required slot scores
//	exactly zero and never participates in tie-breaks.
//
// Thread Safety: Safe for concurrent use (all state is read-only after
// construction).
type Scorer struct {
	cfg     *config.ScoringConfig
	catalog []ToolSpec
}

// NewScorer creates a Scorer over the given catalog.
func NewScorer(cfg *config.ScoringConfig, catalog []ToolSpec) *Scorer {
	return &Scorer{cfg: cfg, catalog: catalog}
}

// ToolScore is one tool's score with the evidence that produced it.
type ToolScore struct {
	Tool  ToolSpec
	Score float64

	// MatchedKeywords are the catalog keywords found in the query.
	MatchedKeywords []string

	// AppliedBonuses are the reasons of the bonus rules that fired.
	AppliedBonuses []string
}

// Decision is the outcome of scoring a query against the whole catalog.
type Decision struct {
	// Tool is the winning spec, nil when no tool scored above zero.
	Tool *ToolSpec

	// Score is the winning tool's confidence.
	Score float64

	// Tier1 reports whether Score strictly exceeds the fast-path
	// threshold. Equal-to-threshold escalates to the rule list.
	Tier1 bool

	// Entities are the extracted slots the decision was made with.
	Entities extract.Entities

	// Scores holds every tool's score for diagnostics.
	Scores map[string]float64

	// MatchedKeywords and AppliedBonuses explain the winning score.
	MatchedKeywords []string
	AppliedBonuses  []string

	Duration time.Duration
}

// Analyze scores every catalog tool and picks the best.
//
// Description:
//
//	Deterministic and order-stable: identical inputs always produce the
//	same decision, and ties go to the tool registered first. A decision
//	with a nil Tool means nothing matched at all.
func (s *Scorer) Analyze(ctx context.Context, query string, ents extract.Entities) *Decision {
	start := time.Now()

	_, span := tracer.Start(ctx, "routing.Scorer.Analyze")
	defer span.End()

	queryLower := strings.ToLower(query)

	decision := &Decision{
		Entities: ents,
		Scores:   make(map[string]float64, len(s.catalog)),
	}

	for i := range s.catalog {
		ts := s.scoreTool(s.catalog[i], queryLower, ents)
		decision.Scores[ts.Tool.Name] = ts.Score

		// Strict > keeps the first-registered tool on ties.
		if ts.Score > decision.Score {
			decision.Score = ts.Score
			decision.Tool = &s.catalog[i]
			decision.MatchedKeywords = ts.MatchedKeywords
			decision.AppliedBonuses = ts.AppliedBonuses
		}
	}

	decision.Tier1 = decision.Tool != nil && decision.Score > s.cfg.Tier1Threshold
	decision.Duration = time.Since(start)

	tool := ""
	if decision.Tool != nil {
		tool = decision.Tool.Name
	}
	span.SetAttributes(
		attribute.String("tool", tool),
		attribute.Float64("score", decision.Score),
		attribute.Bool("tier1", decision.Tier1),
	)
	scoreLatency.Observe(decision.Duration.Seconds())

	return decision
}

// scoreTool computes one tool's cumulative score.
func (s *Scorer) scoreTool(spec ToolSpec, queryLower string, ents extract.Entities) ToolScore {
	ts := ToolScore{Tool: spec}

	// Hard gate: a tool missing a required slot cannot be used at all.
	if !hasRequiredSlots(spec, ents) {
		return ts
	}

	for _, kw := range spec.Keywords {
		if strings.Contains(queryLower, kw) {
			ts.Score += s.cfg.KeywordWeight
			ts.MatchedKeywords = append(ts.MatchedKeywords, kw)
		}
	}

	for _, rule := range s.cfg.BonusRules {
		if rule.Tool != spec.Name {
			continue
		}
		if bonusRuleFires(rule, queryLower) {
			ts.Score += rule.Bonus
			ts.AppliedBonuses = append(ts.AppliedBonuses, rule.Reason)
		}
	}

	switch spec.Name {
	case ToolPartDetails:
		if ents.PartNumber != "" && ents.Manufacturer != "" {
			ts.Score += s.cfg.EntityBonusPartDetails
		}
	case ToolPartSearch:
		if ents.PartNumber != "" && ents.Manufacturer == "" {
			ts.Score += s.cfg.EntityBonusPartSearch
		}
	}

	return ts
}

// bonusRuleFires evaluates one phrase rule against the lowered query.
func bonusRuleFires(rule config.BonusRule, queryLower string) bool {
	for _, phrase := range rule.ExcludePhrases {
		if strings.Contains(queryLower, phrase) {
			return false
		}
	}

	if rule.AllRequired {
		for _, phrase := range rule.Phrases {
			if !strings.Contains(queryLower, phrase) {
				return false
			}
		}
		return len(rule.Phrases) > 0
	}

	for _, phrase := range rule.Phrases {
		if strings.Contains(queryLower, phrase) {
			return true
		}
	}
	return false
}
