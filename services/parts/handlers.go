// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package parts exposes the query resolution engine over HTTP.
package parts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/partsignal/partsignal/services/parts/response"
	"github.com/partsignal/partsignal/services/parts/routing"
)

// Resolver maps one free-text query to one canonical response.
// *routing.Dispatcher satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, query string) response.Response
}

// Handlers holds the HTTP handlers for the parts service.
//
// Thread Safety: Safe for concurrent use; all fields are read-only after
// construction.
type Handlers struct {
	resolver Resolver
	catalog  []routing.ToolSpec
}

// NewHandlers creates the handler set.
func NewHandlers(resolver Resolver) *Handlers {
	return &Handlers{
		resolver: resolver,
		catalog:  routing.Catalog(),
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ResolveRequest is the body of POST /v1/parts/resolve.
type ResolveRequest struct {
	Query string `json:"query" binding:"required"`
}

// ResolveResponse wraps the canonical response with the request ID.
type ResolveResponse struct {
	RequestID string            `json:"request_id"`
	Result    response.Response `json:"result"`
}

// ToolInfo describes one catalog entry in the tools listing.
type ToolInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Requires    []string `json:"requires"`
	Optional    []string `json:"optional,omitempty"`
}

// HandleResolve handles POST /v1/parts/resolve.
//
// Description:
//
//	Resolves a free-text query to exactly one canonical response. The
//	resolver never fails past its boundary: upstream and extraction
//	failures come back as a well-formed Error result with HTTP 200.
//
// Response:
//
//	200 OK: ResolveResponse
//	400 Bad Request: Missing or empty query
func (h *Handlers) HandleResolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleResolve")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "query field is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	result := h.resolver.Resolve(c.Request.Context(), req.Query)

	logger.Info("resolved query",
		slog.String("outcome", string(result.Kind)),
		slog.Int("query_len", len(req.Query)),
	)

	c.JSON(http.StatusOK, ResolveResponse{
		RequestID: requestID,
		Result:    result,
	})
}

// HandleTools handles GET /v1/parts/tools.
//
// Description:
//
//	Returns the tool catalog in registration order so callers can see
//	which capabilities exist and which entity slots each one needs.
func (h *Handlers) HandleTools(c *gin.Context) {
	tools := make([]ToolInfo, 0, len(h.catalog))
	for _, spec := range h.catalog {
		tools = append(tools, ToolInfo{
			Name:        spec.Name,
			Description: spec.Description,
			Keywords:    spec.Keywords,
			Requires:    slotNames(spec.Requires),
			Optional:    slotNames(spec.Optional),
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

// HandleHealth handles GET /v1/parts/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/parts/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	if h.resolver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// getOrCreateRequestID returns the X-Request-ID header, minting a new UUID
// when the caller did not send one. The ID is echoed on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

func slotNames(slots []routing.Slot) []string {
	if len(slots) == 0 {
		return nil
	}
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = string(s)
	}
	return names
}
