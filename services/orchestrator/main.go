// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/scholarlink/services/graph"
	"github.com/AleutianAI/scholarlink/services/llm"
	"github.com/AleutianAI/scholarlink/services/orchestrator/handlers"
	"github.com/AleutianAI/scholarlink/services/orchestrator/middleware"
	"github.com/AleutianAI/scholarlink/services/orchestrator/observability"
	"github.com/AleutianAI/scholarlink/services/orchestrator/prompts"
	"github.com/AleutianAI/scholarlink/services/orchestrator/routes"
	"github.com/AleutianAI/scholarlink/services/orchestrator/services"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "scholarlink-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("scholarlink-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// A missing .env is fine in containers; env vars win either way.
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file loaded", "reason", err)
	}

	port := envOr("PORT", "5001")

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	ctx := context.Background()
	graphClient, err := graph.NewNeo4jClient(
		envOr("NEO4J_URI", "bolt://localhost:7687"),
		os.Getenv("NEO4J_USER"),
		os.Getenv("NEO4J_PASSWORD"))
	if err != nil {
		log.Fatalf("Failed to create the Neo4j client: %v", err)
	}
	defer graphClient.Close(ctx)
	if err := graphClient.VerifyConnectivity(ctx); err != nil {
		log.Fatalf("Neo4j is unreachable: %v", err)
	}
	if err := graphClient.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure the graph schema: %v", err)
	}

	llmClient, err := llm.NewOpenAIClient()
	if err != nil {
		log.Fatalf("Failed to initialize the LLM client: %v", err)
	}

	registry, err := prompts.Load()
	if err != nil {
		log.Fatalf("Failed to load the prompt registry: %v", err)
	}

	pipeline := services.NewPipeline(llmClient, graphClient, registry, services.PipelineConfig{
		VectorIndex:   envOr("VECTOR_INDEX_NAME", "pub_embedding_index"),
		FulltextIndex: envOr("FULLTEXT_INDEX_NAME", "researcher_name_index"),
	}, metrics)

	sessionSecret := os.Getenv("SESSION_SECRET_KEY")
	if sessionSecret == "" {
		if gin.Mode() == gin.ReleaseMode {
			log.Fatal("SESSION_SECRET_KEY must be set in release mode")
		}
		slog.Warn("SESSION_SECRET_KEY not set, using an insecure development key")
		sessionSecret = "scholarlink-dev-secret"
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("scholarlink-orchestrator"))
	router.Use(middleware.NewSessionMiddleware(sessionSecret))

	debugLogger := handlers.NewDebugLogger(envOr("DEBUG_LOG_FILE", "frontend_debug.log"))
	routes.SetupRoutes(router, pipeline, graphClient, debugLogger, os.Getenv("STATIC_DIR"))

	log.Println("Starting the orchestrator server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
