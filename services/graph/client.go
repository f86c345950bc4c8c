// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the Neo4j client used by the orchestrator.
//
// # Description
//
// The research graph (researchers, publications, venues, departments,
// keywords, tags, institutions) lives in Neo4j. This package wraps the
// Bolt driver with the three access patterns the pipeline needs:
//   - Execute: run arbitrary Cypher and return rows as maps
//   - VectorSearch: query the publication embedding vector index
//   - EnsureSchema: apply uniqueness constraints and indexes at startup
//
// # Thread Safety
//
// The underlying driver is safe for concurrent use; every operation opens
// its own session.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var graphTracer = otel.Tracer("scholarlink.graph")

// queryTimeout is the per-call ceiling on a single graph query. The
// caller's ctx can impose a tighter deadline.
const queryTimeout = 30 * time.Second

// Compile-time interface implementation check.
var _ Client = (*Neo4jClient)(nil)

// Client defines the contract for graph database access.
type Client interface {
	// Execute runs the given Cypher with parameters and returns every
	// record as a map keyed by the RETURN aliases.
	Execute(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

	// VectorSearch queries the named vector index for the k nearest
	// publications to the embedding, then applies cypherTail (which must
	// contain the RETURN clause) to the yielded node and score.
	//
	// A missing or misconfigured index degrades to an empty result with
	// a warning log rather than failing the request.
	VectorSearch(ctx context.Context, index string, k int, embedding []float32, cypherTail string) ([]map[string]any, error)

	// VerifyConnectivity checks that the database is reachable.
	VerifyConnectivity(ctx context.Context) error

	// Close releases the underlying driver.
	Close(ctx context.Context) error
}

// Neo4jClient implements Client over the Bolt protocol.
type Neo4jClient struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jClient connects to the database at uri with basic auth.
func NewNeo4jClient(uri, user, password string) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	return &Neo4jClient{driver: driver}, nil
}

// Execute implements the Client interface.
func (n *Neo4jClient) Execute(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	ctx, span := graphTracer.Start(ctx, "Neo4jClient.Execute")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cypher execution failed")
		return nil, fmt.Errorf("cypher execution failed: %w", err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result collection failed")
		return nil, fmt.Errorf("failed to collect cypher results: %w", err)
	}

	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.AsMap())
	}
	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	return rows, nil
}

// VectorSearch implements the Client interface.
func (n *Neo4jClient) VectorSearch(ctx context.Context, index string, k int,
	embedding []float32, cypherTail string) ([]map[string]any, error) {

	ctx, span := graphTracer.Start(ctx, "Neo4jClient.VectorSearch",
		trace.WithAttributes(
			attribute.String("db.vector_index", index),
			attribute.Int("db.vector_k", k),
		))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if len(embedding) == 0 {
		return []map[string]any{}, nil
	}

	// The driver serializes float64 vectors natively.
	vector := make([]float64, len(embedding))
	for i, v := range embedding {
		vector[i] = float64(v)
	}

	cypher := fmt.Sprintf(
		"CALL db.index.vector.queryNodes('%s', $k, $embedding)\nYIELD node, score\n%s",
		index, cypherTail,
	)

	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, map[string]any{"k": k, "embedding": vector})
	if err != nil {
		// A broken vector index must not take down the request.
		span.RecordError(err)
		slog.Warn("Vector query failed, returning no hits", "index", index, "error", err)
		return []map[string]any{}, nil
	}
	records, err := result.Collect(ctx)
	if err != nil {
		span.RecordError(err)
		slog.Warn("Vector result collection failed, returning no hits", "index", index, "error", err)
		return []map[string]any{}, nil
	}

	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.AsMap())
	}
	span.SetAttributes(attribute.Int("db.hits", len(rows)))
	return rows, nil
}

// VerifyConnectivity implements the Client interface.
func (n *Neo4jClient) VerifyConnectivity(ctx context.Context) error {
	return n.driver.VerifyConnectivity(ctx)
}

// Close implements the Client interface.
func (n *Neo4jClient) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}
