// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package config holds embedded, validated configuration for the query
// resolution pipeline: scoring weights, phrase bonus rules, and the
// manufacturer alias table.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

var scoringConfigTracer = otel.Tracer("partsignal/parts/config")

// MaxYAMLFileSize bounds embedded/loaded YAML to guard against a corrupted
// or maliciously swapped rules file.
const MaxYAMLFileSize = 1 << 20 // 1 MiB

// =============================================================================
// Embedded Default Scoring Rules
// =============================================================================

//go:embed scoring_rules.yaml
var defaultScoringRulesYAML []byte

// =============================================================================
// Scoring Configuration Types
// =============================================================================

// ScoringConfig defines the tool-scoring behavior for query resolution.
//
// Description:
//
//	Contains the per-keyword weight, the fast-path confidence threshold,
//	the ordered phrase bonus rules, the entity-shape bonuses, and the
//	manufacturer alias table.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ScoringConfig struct {
	// KeywordWeight is the score contributed by each matched catalog keyword.
	KeywordWeight float64 `yaml:"keyword_weight"`

	// Tier1Threshold is the score a tool must STRICTLY exceed to dispatch
	// on the fast path. A score equal to the threshold escalates.
	Tier1Threshold float64 `yaml:"tier1_threshold"`

	// BonusRules are phrase-driven score boosts, applied in order.
	// Rules are cumulative: a query may collect several bonuses.
	BonusRules []BonusRule `yaml:"bonus_rules"`

	// EntityBonusPartDetails boosts part_details when a query carries both
	// a part number and a manufacturer.
	EntityBonusPartDetails float64 `yaml:"entity_bonus_part_details"`

	// EntityBonusPartSearch boosts part_search when a query carries a part
	// number but no manufacturer.
	EntityBonusPartSearch float64 `yaml:"entity_bonus_part_search"`

	// ManufacturerAliases maps lowercase abbreviations to canonical names.
	ManufacturerAliases map[string]string `yaml:"manufacturer_aliases"`
}

// BonusRule boosts one tool's score when phrase conditions hold.
//
// Description:
//
//	When AllRequired is false, any listed phrase occurring in the lowered
//	query fires the rule. When AllRequired is true, every phrase must be
//	present. ExcludePhrases suppress the rule when any of them appear,
//	which lets one rule yield to a more specific sibling.
type BonusRule struct {
	// Tool is the catalog tool that receives the bonus.
	Tool string `yaml:"tool"`

	// Phrases are lowercase substrings matched against the query.
	Phrases []string `yaml:"phrases"`

	// AllRequired requires every phrase to match instead of any one.
	AllRequired bool `yaml:"all_required"`

	// ExcludePhrases suppress the rule when any of them match.
	ExcludePhrases []string `yaml:"exclude_phrases"`

	// Bonus is the score added when the rule fires.
	Bonus float64 `yaml:"bonus"`

	// Reason explains why this rule exists (for logging/tracing).
	Reason string `yaml:"reason"`
}

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultKeywordWeight is the per-keyword score when unset.
	DefaultKeywordWeight = 2.0

	// DefaultTier1Threshold is the fast-path threshold when unset.
	DefaultTier1Threshold = 2.0
)

// =============================================================================
// Singleton Scoring Config
// =============================================================================

var (
	scoringConfigMu      sync.RWMutex
	cachedScoringConfig  *ScoringConfig
	scoringConfigLoadErr error
)

// GetScoringConfig returns the cached scoring configuration.
//
// Description:
//
//	Loads the embedded scoring rules on first call and caches the result
//	(including a load failure) for subsequent calls.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//
// Outputs:
//
//	*ScoringConfig - The loaded configuration. Never nil on success.
//	error - Non-nil if loading or validation failed.
//
// Thread Safety: Safe for concurrent use.
func GetScoringConfig(ctx context.Context) (*ScoringConfig, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetScoringConfig: ctx must not be nil")
	}

	scoringConfigMu.RLock()
	if cachedScoringConfig != nil || scoringConfigLoadErr != nil {
		cfg, err := cachedScoringConfig, scoringConfigLoadErr
		scoringConfigMu.RUnlock()
		return cfg, err
	}
	scoringConfigMu.RUnlock()

	scoringConfigMu.Lock()
	defer scoringConfigMu.Unlock()

	if cachedScoringConfig != nil || scoringConfigLoadErr != nil {
		return cachedScoringConfig, scoringConfigLoadErr
	}

	cachedScoringConfig, scoringConfigLoadErr = LoadScoringConfig(ctx, defaultScoringRulesYAML)
	return cachedScoringConfig, scoringConfigLoadErr
}

// ResetScoringConfig resets the cached config for testing.
//
// Thread Safety: Safe for concurrent use.
func ResetScoringConfig() {
	scoringConfigMu.Lock()
	defer scoringConfigMu.Unlock()
	cachedScoringConfig = nil
	scoringConfigLoadErr = nil
}

// LoadScoringConfig loads and validates a ScoringConfig from YAML bytes.
//
// Description:
//
//	Parses the YAML, applies defaults for missing fields, and validates
//	all rules for consistency (non-empty tool names, non-empty phrase
//	lists, positive bonuses).
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes to parse.
//
// Outputs:
//
//	*ScoringConfig - The validated configuration.
//	error - Non-nil if parsing or validation fails.
func LoadScoringConfig(ctx context.Context, data []byte) (*ScoringConfig, error) {
	_, span := scoringConfigTracer.Start(ctx, "config.LoadScoringConfig")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadScoringConfig: empty YAML data")
	}

	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadScoringConfig: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg ScoringConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("LoadScoringConfig: parsing YAML: %w", err)
	}

	// Apply defaults for missing fields
	if cfg.KeywordWeight <= 0 {
		cfg.KeywordWeight = DefaultKeywordWeight
	}
	if cfg.Tier1Threshold <= 0 {
		cfg.Tier1Threshold = DefaultTier1Threshold
	}
	if cfg.ManufacturerAliases == nil {
		cfg.ManufacturerAliases = map[string]string{}
	}

	if err := validateScoringConfig(&cfg); err != nil {
		return nil, fmt.Errorf("LoadScoringConfig: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Float64("keyword_weight", cfg.KeywordWeight),
		attribute.Float64("tier1_threshold", cfg.Tier1Threshold),
		attribute.Int("bonus_rules", len(cfg.BonusRules)),
		attribute.Int("manufacturer_aliases", len(cfg.ManufacturerAliases)),
	)

	slog.Info("scoring config loaded",
		slog.Float64("keyword_weight", cfg.KeywordWeight),
		slog.Float64("tier1_threshold", cfg.Tier1Threshold),
		slog.Int("bonus_rules", len(cfg.BonusRules)),
		slog.Int("manufacturer_aliases", len(cfg.ManufacturerAliases)),
	)

	return &cfg, nil
}

// validateScoringConfig checks all rules for consistency.
func validateScoringConfig(cfg *ScoringConfig) error {
	for i, br := range cfg.BonusRules {
		if br.Tool == "" {
			return fmt.Errorf("bonus_rule[%d]: tool must not be empty", i)
		}
		if len(br.Phrases) == 0 {
			return fmt.Errorf("bonus_rule[%d] (%s): phrases must not be empty", i, br.Tool)
		}
		if br.Bonus <= 0 {
			return fmt.Errorf("bonus_rule[%d] (%s): bonus must be positive, got %v", i, br.Tool, br.Bonus)
		}
	}

	for alias, canonical := range cfg.ManufacturerAliases {
		if alias == "" {
			return fmt.Errorf("manufacturer_aliases: empty alias key")
		}
		if canonical == "" {
			return fmt.Errorf("manufacturer_aliases[%s]: canonical name must not be empty", alias)
		}
	}

	return nil
}
