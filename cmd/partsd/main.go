// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Command partsd starts the PartSignal query resolution server.
//
// PartSignal resolves free-text electronic-parts questions to structured
// answers backed by the Z2Data intelligence gateway:
//   - Deterministic entity extraction with optional LLM classification
//   - Scored tool catalog with a two-tier dispatch router
//   - Canonical Table/Detail/Text/Error responses for every query
//
// Usage:
//
//	go run ./cmd/partsd
//	go run ./cmd/partsd -port 9090
//
// Required environment:
//
//	Z2_API_KEY - Z2Data gateway API key
//
// Optional environment:
//
//	Z2_BASE_URL - Gateway base URL (defaults to the public gateway)
//	OPENAI_API_KEY or ANTHROPIC_API_KEY - Enables LLM-backed extraction;
//	  without either, the deterministic rule extractor runs alone.
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/parts/health
//
//	# Tool catalog
//	curl http://localhost:8080/v1/parts/tools | jq
//
//	# Resolve a query
//	curl -X POST http://localhost:8080/v1/parts/resolve \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "cross references for LM317 by Texas Instruments"}'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/partsignal/partsignal/services/llm"
	"github.com/partsignal/partsignal/services/parts"
	"github.com/partsignal/partsignal/services/parts/config"
	"github.com/partsignal/partsignal/services/parts/extract"
	"github.com/partsignal/partsignal/services/parts/routing"
	"github.com/partsignal/partsignal/services/parts/z2"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	// Best effort: local development keeps credentials in .env.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", slog.String("error", err.Error()))
	}

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so gateway spans join caller traces.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()

	scoringCfg, err := config.GetScoringConfig(ctx)
	if err != nil {
		slog.Error("Failed to load scoring config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	z2Cfg, err := z2.ConfigFromEnv()
	if err != nil {
		slog.Error("Gateway configuration invalid", slog.String("error", err.Error()))
		os.Exit(1)
	}
	gateway, err := z2.NewClient(z2Cfg)
	if err != nil {
		slog.Error("Failed to create gateway client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	extractor := buildExtractor(scoringCfg)
	scorer := routing.NewScorer(scoringCfg, routing.Catalog())
	dispatcher := routing.NewDispatcher(gateway, extractor, scorer, slog.Default())

	handlers := parts.NewHandlers(dispatcher)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("partsignal"))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	parts.RegisterRoutes(v1, handlers)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down PartSignal server")
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting PartSignal server",
		slog.String("address", addr),
		slog.Int("tools", len(routing.Catalog())),
	)
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildExtractor wires the entity extractor.
//
// Description:
//
//	The rule extractor always runs. When an LLM provider is configured
//	in the environment, its classification takes precedence and the
//	rules become the fallback; without one, rules run alone. OpenAI is
//	preferred when both providers are configured.
func buildExtractor(scoringCfg *config.ScoringConfig) extract.Extractor {
	rules := extract.NewRuleExtractor(scoringCfg.ManufacturerAliases)

	chatClient := chatClientFromEnv()
	if chatClient == nil {
		slog.Info("No LLM provider configured, using rule-based extraction only")
		return extract.NewFallbackExtractor(nil, rules)
	}

	llmExtractor, err := extract.NewLLMExtractor(chatClient, extract.DefaultLLMExtractorConfig())
	if err != nil {
		slog.Warn("LLM extractor unavailable, using rule-based extraction only",
			slog.String("error", err.Error()))
		return extract.NewFallbackExtractor(nil, rules)
	}

	slog.Info("LLM-backed extraction enabled")
	return extract.NewFallbackExtractor(llmExtractor, rules)
}

// chatClientFromEnv picks an LLM provider from the environment, or nil.
func chatClientFromEnv() llm.ChatClient {
	if os.Getenv("OPENAI_API_KEY") != "" {
		client, err := llm.NewOpenAIClient()
		if err == nil {
			return client
		}
		slog.Warn("OpenAI client unavailable", slog.String("error", err.Error()))
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		client, err := llm.NewAnthropicClient()
		if err == nil {
			return client
		}
		slog.Warn("Anthropic client unavailable", slog.String("error", err.Error()))
	}
	return nil
}
