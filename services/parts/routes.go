// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package parts

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all parts routes with the router.
//
// Description:
//
//	Registers the /v1/parts/* endpoints with the given Gin router group.
//	The group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/parts/resolve - Resolve a free-text query to a canonical response
//	GET  /v1/parts/tools - List the tool catalog
//	GET  /v1/parts/health - Health check
//	GET  /v1/parts/ready - Readiness check
//
// Example:
//
//	handlers := parts.NewHandlers(dispatcher)
//
//	v1 := router.Group("/v1")
//	parts.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	parts := rg.Group("/parts")
	{
		parts.POST("/resolve", handlers.HandleResolve)
		parts.GET("/tools", handlers.HandleTools)

		parts.GET("/health", handlers.HandleHealth)
		parts.GET("/ready", handlers.HandleReady)
	}
}
