// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/partsignal/partsignal/services/llm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// =============================================================================
// LLMExtractor - model-backed entity extraction
// =============================================================================

// LLMExtractor uses a fast chat model to extract entities and intent flags
// from natural-language queries.
//
// Description:
//
//	The model acts as a semantic parser: it reads the query and returns a
//	JSON object with part_number, manufacturer, company_name, and intent
//	flags. The prompt forbids inventing a manufacturer that is not
//	textually present and forbids expanding surface forms in by/from
//	clauses. Callers fall back to the deterministic RuleExtractor whenever
//	the call or the parse fails.
//
// Thread Safety: Safe for concurrent use.
type LLMExtractor struct {
	chatClient llm.ChatClient
	config     LLMExtractorConfig
	logger     *slog.Logger
}

// LLMExtractorConfig configures the model-backed extractor.
type LLMExtractorConfig struct {
	// Timeout is the maximum time for one extraction call.
	// Default: 10s
	Timeout time.Duration `json:"timeout"`

	// MaxTokens limits the response length.
	// Default: 512
	MaxTokens int `json:"max_tokens"`

	// Enabled is the feature flag. When false, Classify always errors and
	// the caller uses the deterministic path.
	Enabled bool `json:"enabled"`
}

// DefaultLLMExtractorConfig returns sensible defaults.
func DefaultLLMExtractorConfig() LLMExtractorConfig {
	return LLMExtractorConfig{
		Timeout:   10 * time.Second,
		MaxTokens: 512,
		Enabled:   true,
	}
}

// NewLLMExtractor creates a model-backed extractor.
//
// Inputs:
//
//	chatClient - Client for sending extraction queries. Must not be nil.
//	config - Extractor configuration.
//
// Outputs:
//
//	*LLMExtractor - Configured extractor.
//	error - Non-nil if chatClient is nil.
func NewLLMExtractor(chatClient llm.ChatClient, config LLMExtractorConfig) (*LLMExtractor, error) {
	if chatClient == nil {
		return nil, fmt.Errorf("chatClient must not be nil")
	}
	return &LLMExtractor{
		chatClient: chatClient,
		config:     config,
		logger:     slog.Default(),
	}, nil
}

// IsEnabled returns true if the extractor feature flag is set.
func (e *LLMExtractor) IsEnabled() bool {
	return e.config.Enabled
}

const extractionSystemPrompt = `You analyze electronics and supply chain queries and extract structured information.

Identify:
1. Is there a part number mentioned? (alphanumeric codes like BAV99, LM317, TPS62840)
2. Is there a manufacturer/brand/company mentioned explicitly?
3. Is this asking about market data (pricing, availability, stock)?
4. Is this about BOM analysis?
5. Is this about data enrichment of an uploaded file?
6. Is this about company litigation/lawsuits/legal issues?
7. Is this about company details or supply chain?
8. Is this about cross references, alternatives, or replacement parts?

Common manufacturers and their abbreviations:
- Texas Instruments (TI)
- Analog Devices (ADI)
- STMicroelectronics (ST)
- NXP, Infineon, Microchip, Toshiba, Vishay, Murata, TDK, ROHM
- ON Semiconductor (onsemi)
- Diodes Incorporated, Maxim Integrated, Renesas

Examples:
- "bav99 toshiba" -> part_number: "BAV99", manufacturer: "Toshiba"
- "lm317 ti" -> part_number: "LM317", manufacturer: "Texas Instruments"
- "lm317" -> part_number: "LM317", manufacturer: null (NO manufacturer specified)
- "BAV99 by EVVO Semi" -> part_number: "BAV99", manufacturer: "EVVO Semi" (keep the exact name)
- "Toshiba litigations" -> company_name: "Toshiba", is_litigation_query: true
- "Intel company details" -> company_name: "Intel", is_company_query: true
- "alternatives for BAV99" -> part_number: "BAV99", is_cross_reference_query: true

CRITICAL RULES:
1. When you see a "by <manufacturer>" or "from <manufacturer>" pattern, preserve the exact manufacturer name as written. DO NOT expand "EVVO Semi" to "EVVO Semiconductor".
2. NEVER assume a manufacturer the user did not state explicitly. "LM317" alone has manufacturer: null, has_manufacturer: false.
3. DO NOT infer a manufacturer from a part number prefix (LM, TPS, BAV).
4. For litigation/company queries, put the name in company_name, not manufacturer.

Respond with ONLY a JSON object, no explanation or markdown:
{
  "part_number": "string or null",
  "manufacturer": "string or null",
  "company_name": "string or null",
  "has_manufacturer": true/false,
  "is_part_search": true/false,
  "is_market_query": true/false,
  "is_bom_query": true/false,
  "is_enrichment_query": true/false,
  "is_litigation_query": true/false,
  "is_company_query": true/false,
  "is_cross_reference_query": true/false
}`

// classificationWire is the JSON shape the model returns. Nullable strings
// need pointer fields so "null" and "missing" both land as empty.
type classificationWire struct {
	PartNumber            *string `json:"part_number"`
	Manufacturer          *string `json:"manufacturer"`
	CompanyName           *string `json:"company_name"`
	HasManufacturer       bool    `json:"has_manufacturer"`
	IsPartSearch          bool    `json:"is_part_search"`
	IsMarketQuery         bool    `json:"is_market_query"`
	IsBOMQuery            bool    `json:"is_bom_query"`
	IsEnrichmentQuery     bool    `json:"is_enrichment_query"`
	IsLitigationQuery     bool    `json:"is_litigation_query"`
	IsCompanyQuery        bool    `json:"is_company_query"`
	IsCrossReferenceQuery bool    `json:"is_cross_reference_query"`
}

// Classify runs model-backed extraction over a query.
//
// Description:
//
//	Sends the query to the chat model with the extraction system prompt
//	and parses the JSON response. The verbatim by/from surface form is
//	captured deterministically before the call and stamped onto the
//	result, so the model can never overwrite it with a normalized form.
//
// Inputs:
//
//	ctx - Context for cancellation/timeout.
//	query - The raw user query.
//
// Outputs:
//
//	Classification - The extracted entities and intent flags.
//	error - Non-nil if the call or parse fails (caller should use the
//	        deterministic path).
//
// Thread Safety: Safe for concurrent use.
func (e *LLMExtractor) Classify(ctx context.Context, query string) (Classification, error) {
	if !e.config.Enabled {
		return Classification{}, fmt.Errorf("llm extractor is disabled")
	}

	ctx, span := tracer.Start(ctx, "LLMExtractor.Classify")
	defer span.End()

	span.SetAttributes(attribute.String("query_preview", truncate(query, 100)))

	startTime := time.Now()

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	messages := []llm.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Query: %s", query)},
	}

	response, err := e.chatClient.Chat(ctx, messages, llm.LowTemperature(e.config.MaxTokens))
	if err != nil {
		duration := time.Since(startTime)
		if ctx.Err() == context.DeadlineExceeded {
			span.SetStatus(codes.Error, "timeout")
			recordExtraction("llm", "timeout", duration)
			return Classification{}, fmt.Errorf("entity extraction timed out: %w", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		recordExtraction("llm", "error", duration)
		return Classification{}, fmt.Errorf("entity extraction chat failed: %w", err)
	}

	cls, err := parseClassification(response)
	if err != nil {
		duration := time.Since(startTime)
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		recordExtraction("llm", "parse_error", duration)
		return Classification{}, fmt.Errorf("entity extraction parse failed: %w", err)
	}

	// The verbatim surface form is never the model's to decide.
	cls.OriginalManufacturer = captureOriginalManufacturer(query)

	duration := time.Since(startTime)
	recordExtraction("llm", "success", duration)

	span.SetAttributes(
		attribute.Int64("extractor.duration_ms", duration.Milliseconds()),
		attribute.Bool("has_manufacturer", cls.HasManufacturer),
	)

	e.logger.Debug("llm entity extraction succeeded",
		slog.String("part_number", cls.PartNumber),
		slog.Bool("has_manufacturer", cls.HasManufacturer),
		slog.Duration("duration", duration),
	)

	return cls, nil
}

// parseClassification extracts the JSON classification from a model response.
func parseClassification(response string) (Classification, error) {
	response = strings.TrimSpace(response)

	if len(response) == 0 {
		return Classification{}, fmt.Errorf("empty response from model")
	}

	// Clean up markdown code blocks
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	// Find JSON in response
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return Classification{}, fmt.Errorf("no JSON object found in response: %s", truncate(response, 100))
	}

	jsonStr := response[startIdx : endIdx+1]

	var wire classificationWire
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return Classification{}, fmt.Errorf("failed to parse JSON: %w, response: %s", err, truncate(jsonStr, 100))
	}

	var cls Classification
	if wire.PartNumber != nil {
		cls.PartNumber = strings.ToUpper(strings.TrimSpace(*wire.PartNumber))
	}
	if wire.Manufacturer != nil {
		cls.Manufacturer = strings.TrimSpace(*wire.Manufacturer)
	}
	if wire.CompanyName != nil {
		cls.CompanyName = strings.TrimSpace(*wire.CompanyName)
	}
	cls.HasManufacturer = wire.HasManufacturer && cls.Manufacturer != ""
	cls.IsPartSearch = wire.IsPartSearch
	cls.IsMarketQuery = wire.IsMarketQuery
	cls.IsBOMQuery = wire.IsBOMQuery
	cls.IsEnrichmentQuery = wire.IsEnrichmentQuery
	cls.IsLitigationQuery = wire.IsLitigationQuery
	cls.IsCompanyQuery = wire.IsCompanyQuery
	cls.IsCrossReferenceQuery = wire.IsCrossReferenceQuery

	return cls, nil
}

// captureOriginalManufacturer pulls the verbatim by/from clause value out
// of the raw query, or "" when no clause (or no preceding part number) exists.
func captureOriginalManufacturer(query string) string {
	if partNumberPattern.FindString(query) == "" {
		return ""
	}
	if m := byFromPattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
