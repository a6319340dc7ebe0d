// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package llm provides thin HTTP clients for the hosted chat-completion
// APIs used as classifier/extractor backends. Callers depend only on the
// ChatClient interface so the engine can be tested fully offline.
package llm

import (
	"context"
)

// Message is a single turn in a chat exchange.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// GenerationParams carries optional per-call generation settings.
//
// Description:
//
//	Nil pointer fields mean "use the provider default". Only the knobs
//	the extraction prompts actually need are exposed.
type GenerationParams struct {
	Temperature *float32
	MaxTokens   *int
	Stop        []string
}

// ChatClient sends a chat exchange to a model and returns its text reply.
//
// Description:
//
//	The single-method interface keeps provider clients swappable and lets
//	tests substitute a canned implementation. Implementations must honor
//	ctx cancellation and bound every network call with a timeout.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// ptrF32 and ptrInt are small helpers for building GenerationParams literals.
func ptrF32(v float32) *float32 { return &v }
func ptrInt(v int) *int         { return &v }

// LowTemperature returns params tuned for deterministic structured output.
//
// Outputs:
//
//	GenerationParams - Temperature 0, bounded response length.
func LowTemperature(maxTokens int) GenerationParams {
	return GenerationParams{
		Temperature: ptrF32(0),
		MaxTokens:   ptrInt(maxTokens),
	}
}
