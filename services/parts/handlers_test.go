// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package parts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/partsignal/partsignal/services/parts/response"
)

// stubResolver returns a fixed response and records the last query.
type stubResolver struct {
	lastQuery string
	result    response.Response
}

func (s *stubResolver) Resolve(_ context.Context, query string) response.Response {
	s.lastQuery = query
	return s.result
}

func setupTestRouter(resolver Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(resolver))
	return router
}

func TestHandleResolve_Success(t *testing.T) {
	resolver := &stubResolver{result: response.NewText("hello")}
	router := setupTestRouter(resolver)

	body := strings.NewReader(`{"query": "toshiba litigations"}`)
	req, _ := http.NewRequest("POST", "/v1/parts/resolve", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if resolver.lastQuery != "toshiba litigations" {
		t.Errorf("resolver query = %q", resolver.lastQuery)
	}

	var resp ResolveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.RequestID == "" {
		t.Error("request_id missing from response")
	}
	if resp.Result.Kind != response.KindText || resp.Result.Text.Content != "hello" {
		t.Errorf("result = %+v", resp.Result)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not echoed")
	}
}

func TestHandleResolve_MissingQuery(t *testing.T) {
	router := setupTestRouter(&stubResolver{result: response.NewText("unused")})

	req, _ := http.NewRequest("POST", "/v1/parts/resolve", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != "MISSING_PARAMETER" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestHandleResolve_PreservesRequestID(t *testing.T) {
	router := setupTestRouter(&stubResolver{result: response.NewText("ok")})

	body := strings.NewReader(`{"query": "LM317"}`)
	req, _ := http.NewRequest("POST", "/v1/parts/resolve", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp ResolveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.RequestID != "req-123" {
		t.Errorf("request_id = %q, want req-123", resp.RequestID)
	}
}

func TestHandleTools_ListsCatalogInOrder(t *testing.T) {
	router := setupTestRouter(&stubResolver{})

	req, _ := http.NewRequest("GET", "/v1/parts/tools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Tools) != 10 {
		t.Fatalf("tools = %d, want 10", len(resp.Tools))
	}
	if resp.Tools[0].Name != "part_details" {
		t.Errorf("first tool = %q, want part_details", resp.Tools[0].Name)
	}
	if got := resp.Tools[3].Requires; len(got) != 2 {
		t.Errorf("cross_references requires = %v, want two slots", got)
	}
}

func TestHandleHealth(t *testing.T) {
	router := setupTestRouter(&stubResolver{})

	req, _ := http.NewRequest("GET", "/v1/parts/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}
