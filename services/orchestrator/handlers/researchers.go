// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/scholarlink/services/graph"
	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
	"github.com/AleutianAI/scholarlink/services/orchestrator/services"
)

// minSearchQueryLen avoids matching the whole directory on one keystroke.
const minSearchQueryLen = 2

const searchResearchersCypher = `
MATCH (r:Researcher)
WHERE r.normalized_name CONTAINS $q
   OR toLower(coalesce(r.name, '')) CONTAINS $q
RETURN r.name AS name, r.normalized_name AS normalized_name
ORDER BY name
LIMIT 200`

const resolveExactCypher = `
MATCH (r:Researcher)
WHERE r.normalized_name = $name
RETURN r.name AS name, r.normalized_name AS normalized_name
LIMIT 1`

const resolveContainsCypher = `
MATCH (r:Researcher)
WHERE r.normalized_name CONTAINS $name
RETURN r.name AS name, r.normalized_name AS normalized_name
ORDER BY r.name
LIMIT 1`

const summaryStatsCypher = `
MATCH (r:Researcher {normalized_name: $name})-[:PUBLISHED]->(p:Publication)
WITH COUNT(p) AS publications,
     [y IN collect(p.publication_year) WHERE y IS NOT NULL] AS years
RETURN publications,
       CASE WHEN size(years) > 0 THEN reduce(m = head(years), y IN years | CASE WHEN y < m THEN y ELSE m END) END AS first_year,
       CASE WHEN size(years) > 0 THEN reduce(m = head(years), y IN years | CASE WHEN y > m THEN y ELSE m END) END AS latest_year`

const summaryPublicationsCypher = `
MATCH (r:Researcher {normalized_name: $name})-[:PUBLISHED]->(p:Publication)
RETURN p.title AS Title, p.publication_year AS Year, p.doi AS DOI
ORDER BY Year DESC
LIMIT 20`

const summaryCoauthorsCypher = `
MATCH (r:Researcher {normalized_name: $name})-[:PUBLISHED]->(p:Publication)<-[:PUBLISHED]-(co:Researcher)
WHERE co.normalized_name <> r.normalized_name
RETURN co.name AS CoAuthor, COUNT(DISTINCT p) AS CollaborationCount
ORDER BY CollaborationCount DESC
LIMIT 10`

const summaryKeywordsCypher = `
MATCH (r:Researcher {normalized_name: $name})-[:WORKS_ON]->(k:Keyword)
RETURN k.name AS Keyword
ORDER BY Keyword
LIMIT 20`

const summaryTagsCypher = `
MATCH (r:Researcher {normalized_name: $name})-[:STUDIES]->(t:Tag)
RETURN t.name AS Tag
ORDER BY Tag
LIMIT 20`

// HandleSearchResearchers performs a substring search over the researcher
// directory for the selection typeahead.
func HandleSearchResearchers(graphClient graph.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleSearchResearchers")
		defer span.End()

		var request datatypes.SearchResearchersRequest
		if err := c.BindJSON(&request); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		q := strings.ToLower(strings.TrimSpace(request.Query))
		if len(q) < minSearchQueryLen {
			c.JSON(http.StatusOK, gin.H{"researchers": []map[string]any{}})
			return
		}
		span.SetAttributes(attribute.Int("query.length", len(q)))

		rows, err := graphClient.Execute(ctx, searchResearchersCypher, map[string]any{"q": q})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Researcher search failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"researchers": rows})
	}
}

// HandleResearcherSummary builds the profile card for one researcher:
// publication stats, the latest publications, top co-authors, keywords and
// tags. Resolution tries the exact normalized name first and falls back to
// a substring match.
func HandleResearcherSummary(graphClient graph.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleResearcherSummary")
		defer span.End()

		var request datatypes.ResearcherSummaryRequest
		if err := c.BindJSON(&request); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		lookup := strings.ToLower(strings.TrimSpace(request.NormalizedName))
		if lookup == "" {
			lookup = strings.ToLower(strings.TrimSpace(request.Name))
		}
		if lookup == "" {
			err := &services.ValidationError{Message: "a researcher name is required"}
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		researcher, err := resolveResearcher(ctx, graphClient, lookup)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Researcher resolution failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
			return
		}
		if researcher == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Researcher not found"})
			return
		}
		canonical, _ := researcher["normalized_name"].(string)
		params := map[string]any{"name": canonical}

		stats := map[string]any{"publications": 0, "first_year": nil, "latest_year": nil}
		if rows, err := graphClient.Execute(ctx, summaryStatsCypher, params); err == nil && len(rows) > 0 {
			stats = rows[0]
		} else if err != nil {
			slog.Warn("Summary stats query failed", "error", err)
		}

		publications := queryOrEmpty(ctx, graphClient, summaryPublicationsCypher, params, "publications")
		coauthors := queryOrEmpty(ctx, graphClient, summaryCoauthorsCypher, params, "coauthors")
		keywords := queryOrEmpty(ctx, graphClient, summaryKeywordsCypher, params, "keywords")
		tags := queryOrEmpty(ctx, graphClient, summaryTagsCypher, params, "tags")

		c.JSON(http.StatusOK, gin.H{
			"response_type": "researcher_summary",
			"researcher":    researcher,
			"stats":         stats,
			"coauthors":     coauthors,
			"keywords":      keywords,
			"tags":          tags,
			"publications":  publications,
		})
	}
}

// resolveResearcher returns the directory row for the name, or nil when no
// researcher matches.
func resolveResearcher(ctx context.Context, graphClient graph.Client, name string) (map[string]any, error) {
	rows, err := graphClient.Execute(ctx, resolveExactCypher, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		rows, err = graphClient.Execute(ctx, resolveContainsCypher, map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// queryOrEmpty runs a summary sub-query and degrades failures to an empty
// list so one broken facet does not sink the whole card.
func queryOrEmpty(ctx context.Context, graphClient graph.Client, cypher string,
	params map[string]any, facet string) []map[string]any {

	rows, err := graphClient.Execute(ctx, cypher, params)
	if err != nil {
		slog.Warn("Summary facet query failed", "facet", facet, "error", err)
		return []map[string]any{}
	}
	return rows
}
