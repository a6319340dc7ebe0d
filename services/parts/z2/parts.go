// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package z2

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// Part Validation (phase one)
// =============================================================================

// PartValidation is a positive validation match.
type PartValidation struct {
	// PartID is the opaque gateway identifier. Valid only for the fetch
	// call immediately following this validation.
	PartID int64

	// ValidatedMPN is the gateway's normalized part number.
	ValidatedMPN string

	// ValidatedManufacturer is the gateway's canonical company name.
	ValidatedManufacturer string
}

type validationRow struct {
	RowNumber int    `json:"rowNumber"`
	MPN       string `json:"mpn"`
	Man       string `json:"man"`
}

type validationRequest struct {
	Rows []validationRow `json:"rows"`
}

type validationResponse struct {
	Results []struct {
		MPN         string `json:"mpn"`
		MatchStatus string `json:"matchStatus"`
		MatchReason string `json:"matchReason"`
		Z2PartData  struct {
			PartID      int64  `json:"partID"`
			CompanyName string `json:"companyName"`
		} `json:"z2PartData"`
	} `json:"results"`
}

// ValidatePart resolves a part number (and optional manufacturer) to a
// gateway part ID.
//
// Description:
//
//	Phase one of the two-phase protocol. A partID greater than zero is a
//	positive match; anything else is reported as KindEntityNotFound with
//	the gateway's match status and reason. Safe to repeat; has no side
//	effects on the gateway.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	partNumber - Raw part number. Must not be empty.
//	manufacturer - Optional manufacturer name. Empty widens the match.
//
// Outputs:
//
//	*PartValidation - The positive match.
//	error - *Error on miss or gateway failure.
func (c *Client) ValidatePart(ctx context.Context, partNumber, manufacturer string) (*PartValidation, error) {
	if partNumber == "" {
		return nil, fmt.Errorf("z2: part number is required")
	}

	ctx, span := tracer.Start(ctx, "z2.ValidatePart")
	defer span.End()
	span.SetAttributes(
		attribute.String("part_number", partNumber),
		attribute.Bool("has_manufacturer", manufacturer != ""),
	)

	req := validationRequest{Rows: []validationRow{{RowNumber: 0, MPN: partNumber, Man: manufacturer}}}

	var resp validationResponse
	if err := c.postJSON(ctx, "/GetValidationPart", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, notFoundError(fmt.Sprintf("part %q not found", partNumber), "", "")
	}

	result := resp.Results[0]
	if result.Z2PartData.PartID <= 0 {
		matchStatus := result.MatchStatus
		if matchStatus == "" {
			matchStatus = "No Match"
		}
		return nil, notFoundError(
			fmt.Sprintf("part %q not found in the parts database", partNumber),
			matchStatus,
			result.MatchReason,
		)
	}

	return &PartValidation{
		PartID:                result.Z2PartData.PartID,
		ValidatedMPN:          result.MPN,
		ValidatedManufacturer: result.Z2PartData.CompanyName,
	}, nil
}

// validatePartWithFallback validates with the chosen manufacturer, then
// retries exactly once with the verbatim surface form from the query when
// the first attempt misses and the two strings differ.
//
// Description:
//
//	The extractor may over-normalize ("TI" expanded to "Texas
//	Instruments") while the gateway only recognizes the literal string the
//	user typed. The retry uses originalManufacturer verbatim. Only a
//	not-found miss triggers the retry; upstream errors propagate as is.
func (c *Client) validatePartWithFallback(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*PartValidation, error) {
	validation, err := c.ValidatePart(ctx, partNumber, manufacturer)
	if err == nil {
		return validation, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	if originalManufacturer == "" || strings.EqualFold(originalManufacturer, manufacturer) {
		return nil, err
	}

	c.logger.Info("part not found with normalized manufacturer, retrying with verbatim form",
		slog.String("part_number", partNumber),
		slog.String("manufacturer", manufacturer),
		slog.String("original_manufacturer", originalManufacturer),
	)

	validation, retryErr := c.ValidatePart(ctx, partNumber, originalManufacturer)
	if retryErr != nil {
		validationFallbackTotal.WithLabelValues("miss").Inc()
		return nil, retryErr
	}
	validationFallbackTotal.WithLabelValues("hit").Inc()
	return validation, nil
}

// =============================================================================
// Part Details
// =============================================================================

// PartDetails is the full detail payload for one validated part.
type PartDetails struct {
	PartNumber            string
	Manufacturer          string
	ValidatedMPN          string
	ValidatedManufacturer string

	// Sections maps named subsections (e.g. "Summary", "LifeCycle",
	// "ComplianceDetails") to their raw field data.
	Sections map[string]any
}

type partDetailsResponse struct {
	Results map[string]any `json:"results"`
}

// PartDetails fetches comprehensive part data via the two-phase protocol.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	partNumber - Raw part number. Must not be empty.
//	manufacturer - Manufacturer name (may be normalized).
//	originalManufacturer - Verbatim surface form for the single retry.
//	                       Empty disables the retry.
//
// Outputs:
//
//	*PartDetails - Sections keyed by the gateway's subsection names.
//	error - *Error on miss or gateway failure.
func (c *Client) PartDetails(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*PartDetails, error) {
	ctx, span := tracer.Start(ctx, "z2.PartDetails")
	defer span.End()
	span.SetAttributes(attribute.String("part_number", partNumber))

	validation, err := c.validatePartWithFallback(ctx, partNumber, manufacturer, originalManufacturer)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("partId", fmt.Sprintf("%d", validation.PartID))

	var resp partDetailsResponse
	if err := c.getJSON(ctx, "/GetPartDetailsBypartID", "ApiKey", query, &resp); err != nil {
		return nil, err
	}

	if resp.Results == nil {
		resp.Results = map[string]any{}
	}

	return &PartDetails{
		PartNumber:            partNumber,
		Manufacturer:          manufacturer,
		ValidatedMPN:          validation.ValidatedMPN,
		ValidatedManufacturer: validation.ValidatedManufacturer,
		Sections:              resp.Results,
	}, nil
}

// =============================================================================
// Part Search
// =============================================================================

// SearchData holds part search results.
//
// Description:
//
//	With a manufacturer the search is a guided detail lookup and Details
//	is set. Without one, the broad search endpoint returns candidate rows.
type SearchData struct {
	Query      string
	PartNumber string
	Rows       []map[string]any
	Details    *PartDetails
}

// searchTermNoise strips leading search verbs from a free-text query.
var searchTermNoise = regexp.MustCompile(`(?i)(search|for|find)\s+`)

// searchPartToken extracts the part-number-like token from a cleaned query.
var searchPartToken = regexp.MustCompile(`(?i)([A-Z0-9][A-Z0-9\-.]+)`)

// CleanSearchTerm reduces a free-text query to its part-number-like token.
func CleanSearchTerm(query string) string {
	cleaned := strings.TrimSpace(searchTermNoise.ReplaceAllString(query, ""))
	if m := searchPartToken.FindString(cleaned); m != "" {
		return m
	}
	return cleaned
}

type partSearchResponse struct {
	Results any `json:"results"`
}

// SearchParts looks up candidate parts for a free-text query.
//
// Description:
//
//	The query is reduced to a part-number-like token first. With a
//	manufacturer present the lookup delegates to the two-phase detail
//	fetch; otherwise the broad search endpoint runs and its (sometimes
//	double-nested) result list is flattened into Rows.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	query - Free-text query or bare part number.
//	manufacturer - Optional manufacturer narrowing the search.
//
// Outputs:
//
//	*SearchData - Candidate rows, or Details for a guided lookup.
//	error - *Error when nothing matched or the gateway failed.
func (c *Client) SearchParts(ctx context.Context, query, manufacturer string) (*SearchData, error) {
	ctx, span := tracer.Start(ctx, "z2.SearchParts")
	defer span.End()

	partNumber := CleanSearchTerm(query)
	span.SetAttributes(
		attribute.String("search_term", partNumber),
		attribute.Bool("has_manufacturer", manufacturer != ""),
	)

	if manufacturer != "" {
		details, err := c.PartDetails(ctx, partNumber, manufacturer, "")
		if err != nil {
			return nil, err
		}
		return &SearchData{Query: query, PartNumber: partNumber, Details: details}, nil
	}

	urlQuery := url.Values{}
	urlQuery.Set("Z2MPN", partNumber)

	var resp partSearchResponse
	if err := c.getJSON(ctx, "/GetPartDetailsBySearch", "ApiKey", urlQuery, &resp); err != nil {
		return nil, err
	}

	rows := flattenSearchResults(resp.Results)
	if len(rows) == 0 {
		return nil, notFoundError(fmt.Sprintf("no parts found for %q", partNumber), "", "")
	}

	return &SearchData{Query: query, PartNumber: partNumber, Rows: rows}, nil
}

// flattenSearchResults unwraps the gateway's variable nesting: a bare
// list, {"results": [...]}, or {"results": {"results": [...]}}.
func flattenSearchResults(raw any) []map[string]any {
	switch v := raw.(type) {
	case []any:
		return toRecordRows(v)
	case map[string]any:
		if inner, ok := v["results"]; ok {
			return flattenSearchResults(inner)
		}
	}
	return nil
}

// toRecordRows keeps only object elements of a decoded JSON list.
func toRecordRows(list []any) []map[string]any {
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

// =============================================================================
// Market Availability
// =============================================================================

// MarketData holds market availability rows for one validated part.
type MarketData struct {
	PartNumber   string
	Manufacturer string
	Rows         []map[string]any
}

// MarketAvailability fetches pricing, stock, and lead-time rows.
//
// Description:
//
//	Two-phase: validate, then POST the part ID list to the market
//	endpoint. The endpoint answers with either a bare array or an object
//	wrapping a "results" array; both shapes land in Rows.
func (c *Client) MarketAvailability(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*MarketData, error) {
	ctx, span := tracer.Start(ctx, "z2.MarketAvailability")
	defer span.End()
	span.SetAttributes(attribute.String("part_number", partNumber))

	validation, err := c.validatePartWithFallback(ctx, partNumber, manufacturer, originalManufacturer)
	if err != nil {
		return nil, err
	}

	var resp any
	if err := c.postJSON(ctx, "/MarketAvailability", []int64{validation.PartID}, &resp); err != nil {
		return nil, err
	}

	var rows []map[string]any
	switch v := resp.(type) {
	case []any:
		rows = toRecordRows(v)
	case map[string]any:
		if list, ok := v["results"].([]any); ok {
			rows = toRecordRows(list)
		}
	}

	return &MarketData{
		PartNumber:   partNumber,
		Manufacturer: manufacturer,
		Rows:         rows,
	}, nil
}

// =============================================================================
// Cross References
// =============================================================================

// CrossReference is one alternative/replacement part row.
type CrossReference struct {
	PartNumber      string `json:"partNumber"`
	CompanyName     string `json:"companyName"`
	PartLifecycle   string `json:"partLifecycle"`
	RoHSFlag        string `json:"roHsFlag"`
	DataSheet       string `json:"dataSheet"`
	Package         string `json:"package"`
	PartDescription string `json:"partDescription"`
	CrossType       string `json:"crossType"`
	CrossComment    string `json:"crossComment"`
}

// CrossReferenceData holds the queried part plus its alternatives.
type CrossReferenceData struct {
	PartNumber   string
	Manufacturer string

	// Original is the validated reference part the crosses compare to.
	Original CrossReference

	// TotalCrossesFound is the gateway's total, which may exceed len(Crosses).
	TotalCrossesFound int

	Crosses []CrossReference
}

type crossReferenceResponse struct {
	Results struct {
		CrossReference
		CrossesDetails struct {
			TotalCrossesFound int              `json:"Total_Crosses_Found"`
			Crosses           []CrossReference `json:"crosses"`
		} `json:"crossesDetails"`
	} `json:"results"`
}

// CrossReferences fetches alternative and replacement parts.
//
// Description:
//
//	Two-phase. The payload carries the reference part's own fields at the
//	top level and the alternatives under crossesDetails.crosses.
func (c *Client) CrossReferences(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*CrossReferenceData, error) {
	ctx, span := tracer.Start(ctx, "z2.CrossReferences")
	defer span.End()
	span.SetAttributes(attribute.String("part_number", partNumber))

	validation, err := c.validatePartWithFallback(ctx, partNumber, manufacturer, originalManufacturer)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("PartID", fmt.Sprintf("%d", validation.PartID))

	var resp crossReferenceResponse
	if err := c.getJSON(ctx, "/GetCrossDataByPartId", "ApiKey", query, &resp); err != nil {
		return nil, err
	}

	return &CrossReferenceData{
		PartNumber:        partNumber,
		Manufacturer:      manufacturer,
		Original:          resp.Results.CrossReference,
		TotalCrossesFound: resp.Results.CrossesDetails.TotalCrossesFound,
		Crosses:           resp.Results.CrossesDetails.Crosses,
	}, nil
}

// =============================================================================
// Compliance
// =============================================================================

// ComplianceData holds environmental compliance fields for one part.
type ComplianceData struct {
	PartNumber   string
	Manufacturer string

	// Fields is the ComplianceDetails subsection of the part details
	// payload (RoHS status, REACH status, and related flags).
	Fields map[string]any
}

// Compliance fetches RoHS/REACH data, derived from the part-details
// payload's ComplianceDetails section.
func (c *Client) Compliance(ctx context.Context, partNumber, manufacturer, originalManufacturer string) (*ComplianceData, error) {
	ctx, span := tracer.Start(ctx, "z2.Compliance")
	defer span.End()

	details, err := c.PartDetails(ctx, partNumber, manufacturer, originalManufacturer)
	if err != nil {
		return nil, err
	}

	fields, _ := details.Sections["ComplianceDetails"].(map[string]any)
	if fields == nil {
		fields = map[string]any{}
	}

	return &ComplianceData{
		PartNumber:   partNumber,
		Manufacturer: manufacturer,
		Fields:       fields,
	}, nil
}

// =============================================================================
// Distributor Stock
// =============================================================================

// DistributorStockData holds market rows narrowed to one distributor.
type DistributorStockData struct {
	PartNumber  string
	Distributor string
	Rows        []map[string]any
}

// DistributorStock fetches market availability and keeps only rows that
// mention the given distributor.
//
// Description:
//
//	The gateway has no distributor-scoped endpoint; market rows carry the
//	seller name in fields whose exact key varies, so the filter matches
//	the distributor name case-insensitively against every string field of
//	each row.
func (c *Client) DistributorStock(ctx context.Context, partNumber, manufacturer, originalManufacturer, distributor string) (*DistributorStockData, error) {
	ctx, span := tracer.Start(ctx, "z2.DistributorStock")
	defer span.End()
	span.SetAttributes(attribute.String("distributor", distributor))

	market, err := c.MarketAvailability(ctx, partNumber, manufacturer, originalManufacturer)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(distributor)
	var rows []map[string]any
	for _, row := range market.Rows {
		for _, value := range row {
			s, ok := value.(string)
			if ok && strings.Contains(strings.ToLower(s), needle) {
				rows = append(rows, row)
				break
			}
		}
	}

	return &DistributorStockData{
		PartNumber:  partNumber,
		Distributor: distributor,
		Rows:        rows,
	}, nil
}
