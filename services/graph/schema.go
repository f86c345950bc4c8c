// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// schemaStatements is the DDL applied at startup. Every statement is
// idempotent via IF NOT EXISTS. The Venue key is synthetic:
// lower(name) + "|" + lower(type).
var schemaStatements = []string{
	`CREATE CONSTRAINT researcher_openalex_unique IF NOT EXISTS
	 FOR (r:Researcher) REQUIRE r.openalex_url IS UNIQUE`,
	`CREATE CONSTRAINT publication_openalex_unique IF NOT EXISTS
	 FOR (p:Publication) REQUIRE p.openalex_url IS UNIQUE`,
	`CREATE CONSTRAINT venue_key_unique IF NOT EXISTS
	 FOR (v:Venue) REQUIRE v.key IS UNIQUE`,
	`CREATE CONSTRAINT institution_openalex_unique IF NOT EXISTS
	 FOR (i:Institution) REQUIRE i.openalex_url IS UNIQUE`,
	`CREATE CONSTRAINT department_name_unique IF NOT EXISTS
	 FOR (d:Department) REQUIRE d.department IS UNIQUE`,
	`CREATE CONSTRAINT keyword_name_unique IF NOT EXISTS
	 FOR (k:Keyword) REQUIRE k.name IS UNIQUE`,
	`CREATE CONSTRAINT tag_unique IF NOT EXISTS
	 FOR (t:Tag) REQUIRE t.name IS UNIQUE`,
	`CREATE INDEX researcher_norm_idx IF NOT EXISTS
	 FOR (r:Researcher) ON (r.normalized_name)`,
	`CREATE INDEX publication_doi_idx IF NOT EXISTS
	 FOR (p:Publication) ON (p.doi)`,
	`CREATE INDEX venue_key_idx IF NOT EXISTS
	 FOR (v:Venue) ON (v.key)`,
	`CREATE FULLTEXT INDEX researcher_name_index IF NOT EXISTS
	 FOR (r:Researcher) ON EACH [r.name, r.normalized_name]`,
}

// EnsureSchema applies the uniqueness constraints and indexes the pipeline
// relies on (exact-name lookups, fuzzy fulltext search, venue dedup).
// Safe to call on every startup.
func (n *Neo4jClient) EnsureSchema(ctx context.Context) error {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	slog.Info("Graph schema verified", "statements", len(schemaStatements))
	return nil
}
