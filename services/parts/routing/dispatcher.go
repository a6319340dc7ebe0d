// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package routing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/partsignal/partsignal/services/parts/extract"
	"github.com/partsignal/partsignal/services/parts/response"
	"github.com/partsignal/partsignal/services/parts/z2"
)

// maxShortQueryLen is the length under which an unclassified query is
// treated as a bare part-search term.
const maxShortQueryLen = 20

// digikeyDistributor is the distributor label used to filter market rows
// for DigiKey-specific stock queries.
const digikeyDistributor = "Digi-Key"

// errKindMissingEntity tags responses for queries missing a required slot.
const errKindMissingEntity = "missing_required_entity"

// Gateway is the subset of the parts intelligence client the dispatcher
// drives. *z2.Client satisfies it.
type Gateway interface {
	PartDetails(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*z2.PartDetails, error)
	SearchParts(ctx context.Context, query, manufacturer string) (*z2.SearchData, error)
	MarketAvailability(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*z2.MarketData, error)
	CrossReferences(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*z2.CrossReferenceData, error)
	Compliance(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*z2.ComplianceData, error)
	DistributorStock(ctx context.Context, partNumber, manufacturer, originalManufacturer, distributor string) (*z2.DistributorStockData, error)
	CompanyDetails(ctx context.Context, companyName string) (*z2.CompanyDetails, error)
	CompanyLitigations(ctx context.Context, companyName string) (*z2.LitigationData, error)
	SupplyChainLocations(ctx context.Context, companyName string) (*z2.SupplyChainData, error)
	SupplyChainEvents(ctx context.Context, from, to time.Time) (*z2.EventsData, error)
}

// Dispatcher resolves a free-text query to exactly one canonical response.
//
// Description:
//
//	Two tiers. Tier 1 runs the scorer and dispatches directly when the
//	winning score strictly exceeds the confidence threshold. Tier 2
//	applies an ordered decision list over the richer intent
//	classification, first match wins. Every failure path yields a
//	well-formed Error or guidance response; Resolve never panics past
//	its boundary.
//
// Thread Safety: Safe for concurrent use. Holds no per-query state.
type Dispatcher struct {
	gateway   Gateway
	extractor extract.Extractor
	scorer    *Scorer
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher.
//
// Inputs:
//
//	gateway - Parts intelligence client. Must not be nil.
//	extractor - Entity/intent extractor. Must not be nil.
//	scorer - Tool scorer over the catalog. Must not be nil.
//	logger - Logger. May be nil (defaults to slog.Default()).
func NewDispatcher(gateway Gateway, extractor extract.Extractor, scorer *Scorer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		gateway:   gateway,
		extractor: extractor,
		scorer:    scorer,
		logger:    logger,
	}
}

// Resolve maps one query to one canonical response.
func (d *Dispatcher) Resolve(ctx context.Context, query string) response.Response {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "routing.Dispatcher.Resolve")
	defer span.End()

	cls := d.extractor.Classify(ctx, query)
	decision := d.scorer.Analyze(ctx, query, cls.Entities)

	var (
		tier string
		resp response.Response
	)
	if decision.Tier1 {
		tier = "1"
		resp = d.executeTool(ctx, decision.Tool.Name, cls)

		d.logger.Info("dispatched on fast path",
			slog.String("tool", decision.Tool.Name),
			slog.Float64("score", decision.Score),
		)
	} else {
		tier = "2"
		resp = d.resolveTier2(ctx, query, cls)
	}

	duration := time.Since(start)
	tool := ""
	if decision.Tool != nil {
		tool = decision.Tool.Name
	}
	dispatchTotal.WithLabelValues(tier, tool, string(resp.Kind)).Inc()
	dispatchDuration.Observe(duration.Seconds())
	span.SetAttributes(
		attribute.String("tier", tier),
		attribute.String("outcome", string(resp.Kind)),
	)

	return resp
}

// =============================================================================
// Tier 1: Direct Tool Execution
// =============================================================================

// executeTool runs one tool's bound gateway operation.
//
// Description:
//
//	Slot requirements are re-checked here even though the scorer gates
//	them, because Tier-2 rules call in directly. A missing slot yields
//	an actionable prompt naming it, never a silent default.
func (d *Dispatcher) executeTool(ctx context.Context, tool string, cls extract.Classification) response.Response {
	ents := cls.Entities

	switch tool {
	case ToolPartDetails:
		if ents.PartNumber == "" || ents.Manufacturer == "" {
			return response.NewError("Both part number and manufacturer are required for part details", errKindMissingEntity)
		}
		data, err := d.gateway.PartDetails(ctx, ents.PartNumber, ents.Manufacturer, ents.OriginalManufacturer)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizePartDetails(data)

	case ToolPartSearch:
		if ents.PartNumber == "" {
			return response.NewError("A part number is required for part search", errKindMissingEntity)
		}
		data, err := d.gateway.SearchParts(ctx, ents.PartNumber, "")
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeSearch(data)

	case ToolMarketAvailability:
		if ents.PartNumber == "" {
			return response.NewError("A part number is required for market availability", errKindMissingEntity)
		}
		data, err := d.gateway.MarketAvailability(ctx, ents.PartNumber, ents.Manufacturer, ents.OriginalManufacturer)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeMarket(data)

	case ToolCrossReferences:
		if ents.PartNumber == "" || ents.Manufacturer == "" {
			return response.NewError("Both part number and manufacturer are required for cross references", errKindMissingEntity)
		}
		data, err := d.gateway.CrossReferences(ctx, ents.PartNumber, ents.Manufacturer, ents.OriginalManufacturer)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeCrossReferences(data)

	case ToolCompanyLitigations:
		company := ents.Company()
		if company == "" {
			return response.NewError("Please specify a company name for litigation search", errKindMissingEntity)
		}
		data, err := d.gateway.CompanyLitigations(ctx, company)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeLitigations(data)

	case ToolCompanyDetails:
		company := ents.Company()
		if company == "" {
			return response.NewError("Please specify a company name", errKindMissingEntity)
		}
		data, err := d.gateway.CompanyDetails(ctx, company)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeCompanyDetails(data)

	case ToolSupplyChainLocations:
		company := ents.Company()
		if company == "" {
			return response.NewError("Please specify a company name for supply chain locations", errKindMissingEntity)
		}
		data, err := d.gateway.SupplyChainLocations(ctx, company)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeSupplyChain(data)

	case ToolSupplyChainEvents:
		data, err := d.gateway.SupplyChainEvents(ctx, time.Time{}, time.Time{})
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeEvents(data)

	case ToolDigikeyStock:
		if ents.PartNumber == "" {
			return response.NewError("A part number is required for DigiKey stock check", errKindMissingEntity)
		}
		data, err := d.gateway.DistributorStock(ctx, ents.PartNumber, ents.Manufacturer, ents.OriginalManufacturer, digikeyDistributor)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeDistributorStock(data)

	case ToolComplianceData:
		if ents.PartNumber == "" {
			return response.NewError("A part number is required for compliance data", errKindMissingEntity)
		}
		data, err := d.gateway.Compliance(ctx, ents.PartNumber, ents.Manufacturer, ents.OriginalManufacturer)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeCompliance(data)
	}

	return response.NewError("unknown tool: "+tool, "internal")
}

// =============================================================================
// Tier 2: Ordered Decision List
// =============================================================================

// resolveTier2 walks the deliberative rule list, first match wins.
//
// Description:
//
//	Rule order is load-bearing: market beats litigation beats company
//	details, specific intents beat the generic part rules, and the
//	short-query heuristic is the last resort before the general
//	fallback. Changing the order changes which intent wins on queries
//	that plausibly match two rules.
func (d *Dispatcher) resolveTier2(ctx context.Context, query string, cls extract.Classification) response.Response {
	ents := cls.Entities

	switch {
	case cls.IsMarketQuery:
		tier2RuleFired.WithLabelValues("market").Inc()
		part := ents.PartNumber
		if part == "" {
			// Free-text market query: pull a part token out of the message.
			part = z2.CleanSearchTerm(query)
		}
		if part == "" {
			return response.NewError("A part number is required for market availability", errKindMissingEntity)
		}
		data, err := d.gateway.MarketAvailability(ctx, part, ents.Manufacturer, ents.OriginalManufacturer)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeMarket(data)

	case cls.IsLitigationQuery:
		tier2RuleFired.WithLabelValues("litigation").Inc()
		return d.executeTool(ctx, ToolCompanyLitigations, cls)

	case cls.IsCompanyQuery:
		tier2RuleFired.WithLabelValues("company").Inc()
		return d.executeTool(ctx, ToolCompanyDetails, cls)

	case cls.IsBOMQuery:
		tier2RuleFired.WithLabelValues("bom").Inc()
		return response.NewText("BOM analysis requires a file upload. Please upload your BOM file to continue.")

	case cls.IsCrossReferenceQuery:
		tier2RuleFired.WithLabelValues("cross_reference").Inc()
		if !ents.HasManufacturer {
			part := ents.PartNumber
			if part == "" {
				part = "this part"
			}
			return response.NewText(fmt.Sprintf(
				"To get cross references for %s, please specify the manufacturer. For example: 'cross references for %s Texas Instruments'",
				part, part))
		}
		return d.executeTool(ctx, ToolCrossReferences, cls)

	case cls.IsEnrichmentQuery:
		tier2RuleFired.WithLabelValues("enrichment").Inc()
		return response.NewText("Please upload a file to enrich the data.")

	case ents.HasManufacturer && ents.PartNumber != "":
		tier2RuleFired.WithLabelValues("part_details").Inc()
		return d.executeTool(ctx, ToolPartDetails, cls)

	case ents.PartNumber != "" || cls.IsPartSearch:
		tier2RuleFired.WithLabelValues("part_search").Inc()
		manufacturer := ents.Manufacturer
		if manufacturer == "" {
			manufacturer = ents.OriginalManufacturer
		}
		data, err := d.gateway.SearchParts(ctx, query, manufacturer)
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeSearch(data)

	case len(strings.TrimSpace(query)) <= maxShortQueryLen:
		tier2RuleFired.WithLabelValues("short_query").Inc()
		data, err := d.gateway.SearchParts(ctx, query, "")
		if err != nil {
			return response.NormalizeError(err)
		}
		return response.NormalizeSearch(data)
	}

	tier2RuleFired.WithLabelValues("general").Inc()
	return response.NewText("I couldn't map this request to a parts data operation. Try asking about a part number, a manufacturer, or a company.")
}
