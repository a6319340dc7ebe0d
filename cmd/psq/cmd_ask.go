// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/partsignal/partsignal/services/parts"
	"github.com/partsignal/partsignal/services/parts/response"
)

// requestTimeout bounds each CLI call; resolution can involve two
// sequential gateway round trips.
const requestTimeout = 90 * time.Second

func runAskCommand(_ *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	fmt.Printf("Resolving: %s\n---\n", query)

	resolved, err := sendResolveRequest(query)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	renderResponse(resolved.Result)
}

func runToolsCommand(_ *cobra.Command, _ []string) {
	var listing struct {
		Tools []parts.ToolInfo `json:"tools"`
	}
	if err := getJSON("/v1/parts/tools", &listing); err != nil {
		log.Fatalf("Error: %v", err)
	}

	for _, tool := range listing.Tools {
		fmt.Printf("%-24s %s\n", tool.Name, tool.Description)
		if len(tool.Requires) > 0 {
			fmt.Printf("%-24s requires: %s\n", "", strings.Join(tool.Requires, ", "))
		}
	}
}

func sendResolveRequest(query string) (*parts.ResolveResponse, error) {
	body, err := json.Marshal(parts.ResolveRequest{Query: query})
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Post(serverURL+"/v1/parts/resolve", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var resolved parts.ResolveResponse
	if err := json.Unmarshal(payload, &resolved); err != nil {
		return nil, fmt.Errorf("malformed server response: %w", err)
	}
	return &resolved, nil
}

func getJSON(path string, out any) error {
	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// renderResponse prints one canonical response for the terminal.
func renderResponse(r response.Response) {
	switch r.Kind {
	case response.KindTable:
		renderTable(r.Table)
	case response.KindDetail:
		renderDetail(r.Detail)
	case response.KindText:
		fmt.Println(r.Text.Content)
	case response.KindError:
		fmt.Printf("Error (%s): %s\n", r.Error.Kind, r.Error.Message)
	default:
		fmt.Printf("Unrecognized response kind %q\n", r.Kind)
	}
}

func renderTable(t *response.Table) {
	fmt.Printf("%s\n\n", t.Title)
	if len(t.Rows) == 0 {
		return
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
		for _, row := range t.Rows {
			if n := len(row[col]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var header strings.Builder
	var rule strings.Builder
	for i, col := range t.Columns {
		fmt.Fprintf(&header, "| %-*s ", widths[i], col)
		fmt.Fprintf(&rule, "|%s", strings.Repeat("-", widths[i]+2))
	}
	fmt.Println(header.String() + "|")
	fmt.Println(rule.String() + "|")

	for _, row := range t.Rows {
		var line strings.Builder
		for i, col := range t.Columns {
			fmt.Fprintf(&line, "| %-*s ", widths[i], row[col])
		}
		fmt.Println(line.String() + "|")
	}
}

func renderDetail(d *response.Detail) {
	fmt.Printf("%s\n", d.Title)
	for _, section := range d.Sections {
		fmt.Printf("\n%s\n", section.Heading)
		for _, field := range section.Fields {
			fmt.Printf("  %s: %s\n", field.Key, field.Value)
		}
	}
}
