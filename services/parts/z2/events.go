// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package z2

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultEventsWindow is the lookback period when no range is given.
const DefaultEventsWindow = 30 * 24 * time.Hour

// eventsPageSize caps the number of grouped events per request.
const eventsPageSize = 10

// EventsData holds grouped supply chain events for a date range.
type EventsData struct {
	DateFrom string
	DateTo   string
	Rows     []map[string]any
}

type eventsResponse struct {
	Results []map[string]any `json:"results"`
}

// SupplyChainEvents fetches grouped disruption events.
//
// Description:
//
//	The only catalog operation with no validation phase. Zero times
//	default to the last 30 days ending now. Dates go over the wire as
//	YYYY-MM-DD.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	from, to - Date range. Zero values apply the default window.
//
// Outputs:
//
//	*EventsData - Event rows with the resolved range.
//	error - *Error on gateway failure.
func (c *Client) SupplyChainEvents(ctx context.Context, from, to time.Time) (*EventsData, error) {
	ctx, span := tracer.Start(ctx, "z2.SupplyChainEvents")
	defer span.End()

	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.Add(-DefaultEventsWindow)
	}

	dateFrom := from.Format("2006-01-02")
	dateTo := to.Format("2006-01-02")
	span.SetAttributes(
		attribute.String("date_from", dateFrom),
		attribute.String("date_to", dateTo),
	)

	query := url.Values{}
	query.Set("EventDateFrom", dateFrom)
	query.Set("EventDateTo", dateTo)
	query.Set("From", "0")
	query.Set("Size", strconv.Itoa(eventsPageSize))

	var resp eventsResponse
	if err := c.getJSON(ctx, "/GetAllEventsGrouped", "ApiKey", query, &resp); err != nil {
		return nil, err
	}

	return &EventsData{
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Rows:     resp.Results,
	}, nil
}
