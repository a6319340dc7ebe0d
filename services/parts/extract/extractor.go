// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package extract

import (
	"context"
	"log/slog"
)

// Extractor is the interface the dispatch router consumes.
type Extractor interface {
	// Classify extracts entities and intent flags from a query. It must
	// always return a usable Classification; degraded extraction is
	// reported through the flags, never through an error.
	Classify(ctx context.Context, query string) Classification
}

// FallbackExtractor composes the model-backed path with the deterministic
// path: the model is tried first, and any failure falls through to rules.
//
// Thread Safety: Safe for concurrent use.
type FallbackExtractor struct {
	llm    *LLMExtractor
	rules  *RuleExtractor
	logger *slog.Logger
}

// NewFallbackExtractor creates the composed extractor.
//
// Inputs:
//
//	llmExtractor - The model-backed path. May be nil (rules-only mode).
//	ruleExtractor - The deterministic path. Must not be nil.
func NewFallbackExtractor(llmExtractor *LLMExtractor, ruleExtractor *RuleExtractor) *FallbackExtractor {
	return &FallbackExtractor{
		llm:    llmExtractor,
		rules:  ruleExtractor,
		logger: slog.Default(),
	}
}

// Classify tries the model first and falls back to rules on any failure.
//
// Description:
//
//	Whatever path runs, the verbatim by/from surface form wins over any
//	normalized manufacturer for the OriginalManufacturer field. When the
//	model path succeeds but returned no part number while the rules found
//	one, the rule result fills the gap (small models sometimes drop the
//	token).
func (f *FallbackExtractor) Classify(ctx context.Context, query string) Classification {
	ruleResult := f.rules.Classify(query)

	if f.llm == nil || !f.llm.IsEnabled() {
		recordExtraction("rules", "success", 0)
		return ruleResult
	}

	llmResult, err := f.llm.Classify(ctx, query)
	if err != nil {
		f.logger.Warn("llm extraction failed, using deterministic fallback",
			slog.String("error", err.Error()),
		)
		recordExtraction("rules", "fallback", 0)
		return ruleResult
	}

	if llmResult.PartNumber == "" && ruleResult.PartNumber != "" {
		llmResult.PartNumber = ruleResult.PartNumber
	}
	if llmResult.OriginalManufacturer == "" {
		llmResult.OriginalManufacturer = ruleResult.OriginalManufacturer
	}

	return llmResult
}
