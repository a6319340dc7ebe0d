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
	"net/url"

	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// Company Validation (phase one)
// =============================================================================

// CompanyValidation is a positive company match.
type CompanyValidation struct {
	// CompanyID is the opaque gateway identifier, owned by the single
	// fetch that follows.
	CompanyID int64

	// CompanyName is the gateway's canonical company name.
	CompanyName string
}

type companyValidationResponse struct {
	Results []struct {
		CompanyID   int64  `json:"CompanyID"`
		CompanyName string `json:"CompanyName"`
	} `json:"results"`
}

// ValidateCompany resolves a company name to a gateway company ID.
//
// Description:
//
//	Phase one for all company-oriented operations. An empty result list is
//	a KindEntityNotFound miss. The legacy endpoint spells its key
//	parameter "APIkey" instead of "ApiKey".
//
// Inputs:
//
//	ctx - Context for cancellation.
//	companyName - Raw company name. Must not be empty.
//
// Outputs:
//
//	*CompanyValidation - The positive match.
//	error - *Error on miss or gateway failure.
func (c *Client) ValidateCompany(ctx context.Context, companyName string) (*CompanyValidation, error) {
	if companyName == "" {
		return nil, fmt.Errorf("z2: company name is required")
	}

	ctx, span := tracer.Start(ctx, "z2.ValidateCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company_name", companyName))

	query := url.Values{}
	query.Set("CompanySearch", companyName)

	var resp companyValidationResponse
	if err := c.getJSON(ctx, "/CompanyValidation", "APIkey", query, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 || resp.Results[0].CompanyID == 0 {
		return nil, notFoundError(fmt.Sprintf("company %q not found", companyName), "", "")
	}

	return &CompanyValidation{
		CompanyID:   resp.Results[0].CompanyID,
		CompanyName: resp.Results[0].CompanyName,
	}, nil
}

// =============================================================================
// Company Details
// =============================================================================

// CompanyDetails is the profile payload for one validated company.
type CompanyDetails struct {
	CompanyName   string
	ValidatedName string

	// Sections maps named profile subsections to their raw field data.
	Sections map[string]any
}

type companyDetailsResponse struct {
	Results map[string]any `json:"results"`
}

// CompanyDetails fetches the company profile via the two-phase protocol.
func (c *Client) CompanyDetails(ctx context.Context, companyName string) (*CompanyDetails, error) {
	ctx, span := tracer.Start(ctx, "z2.CompanyDetails")
	defer span.End()

	validation, err := c.ValidateCompany(ctx, companyName)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("CompanyID", fmt.Sprintf("%d", validation.CompanyID))

	var resp companyDetailsResponse
	if err := c.getJSON(ctx, "/GetCompanyDataDetailsByCompanyID", "ApiKey", query, &resp); err != nil {
		return nil, err
	}

	if resp.Results == nil {
		resp.Results = map[string]any{}
	}

	return &CompanyDetails{
		CompanyName:   companyName,
		ValidatedName: validation.CompanyName,
		Sections:      resp.Results,
	}, nil
}

// =============================================================================
// Company Litigations
// =============================================================================

// LitigationData holds litigation rows for one validated company.
type LitigationData struct {
	CompanyName   string
	ValidatedName string
	Rows          []map[string]any
}

type litigationResponse struct {
	Results any `json:"results"`
}

// CompanyLitigations fetches the litigation history for a company.
//
// Description:
//
//	The endpoint answers with either a bare case list or an object whose
//	"Lawsuits" field carries the list; both shapes land in Rows.
func (c *Client) CompanyLitigations(ctx context.Context, companyName string) (*LitigationData, error) {
	ctx, span := tracer.Start(ctx, "z2.CompanyLitigations")
	defer span.End()

	validation, err := c.ValidateCompany(ctx, companyName)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("CompanyID", fmt.Sprintf("%d", validation.CompanyID))

	var resp litigationResponse
	if err := c.getJSON(ctx, "/GetCompanyLitigationsByCompanyID", "ApiKey", query, &resp); err != nil {
		return nil, err
	}

	var rows []map[string]any
	switch v := resp.Results.(type) {
	case []any:
		rows = toRecordRows(v)
	case map[string]any:
		if lawsuits, ok := v["Lawsuits"].([]any); ok {
			rows = toRecordRows(lawsuits)
		}
	}

	return &LitigationData{
		CompanyName:   companyName,
		ValidatedName: validation.CompanyName,
		Rows:          rows,
	}, nil
}

// =============================================================================
// Supply Chain Locations
// =============================================================================

// SupplyChainData holds facility and sourcing data for one company.
type SupplyChainData struct {
	CompanyName   string
	ValidatedName string

	// Sections maps named subsections (facilities, sourcing regions) to
	// their raw data.
	Sections map[string]any
}

// SupplyChainLocations fetches factory and facility locations.
func (c *Client) SupplyChainLocations(ctx context.Context, companyName string) (*SupplyChainData, error) {
	ctx, span := tracer.Start(ctx, "z2.SupplyChainLocations")
	defer span.End()

	validation, err := c.ValidateCompany(ctx, companyName)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("CompanyID", fmt.Sprintf("%d", validation.CompanyID))

	var resp companyDetailsResponse
	if err := c.getJSON(ctx, "/GetCompanySupplyChainByCompanyID", "ApiKey", query, &resp); err != nil {
		return nil, err
	}

	if resp.Results == nil {
		resp.Results = map[string]any{}
	}

	return &SupplyChainData{
		CompanyName:   companyName,
		ValidatedName: validation.CompanyName,
		Sections:      resp.Results,
	}, nil
}
