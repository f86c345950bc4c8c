// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import (
	"context"
	"strings"

	"github.com/AleutianAI/scholarlink/services/graph"
	"github.com/AleutianAI/scholarlink/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var retrieverTracer = otel.Tracer("scholarlink.orchestrator.services.retriever")

const (
	// MinRelevanceScore is the similarity floor for topic-mode hits.
	MinRelevanceScore = 0.7

	// topicSearchK is the candidate pool for topic-mode search; the
	// score floor trims it afterwards.
	topicSearchK = 200

	// cohortSearchK bounds the fallback search over UAlberta-authored
	// publications.
	cohortSearchK = 20
)

// topicSearchTail returns broad publication fields with no cohort filter.
const topicSearchTail = `RETURN node.openalex_url AS openalex_url,
       node.title AS title,
       node.abstract AS abstract,
       node.publication_year AS publication_year,
       score`

// cohortSearchTail restricts hits to publications whose author profile
// links back to a Person with an institutional identity.
const cohortSearchTail = `MATCH (node)<-[:PUBLISHED]-(ap:AuthorProfile)
OPTIONAL MATCH (person:Person)-[:HAS_PROFILE {source:'openalex'}]->(ap)
WITH node, score, person
WHERE person IS NOT NULL AND (person.userId IS NOT NULL OR person.ccid IS NOT NULL)
RETURN node.title AS title,
       node.publication_year AS publication_year,
       coalesce(node.cited_by_count, 0) AS cited_by_count,
       node.abstract AS abstract,
       node.openalex_url AS openalex_url,
       node.doi AS doi,
       score
ORDER BY score DESC
LIMIT $k`

// SemanticRetriever runs vector searches over the publication embedding
// index.
type SemanticRetriever struct {
	llmClient   llm.Client
	graphClient graph.Client
	vectorIndex string
}

// NewSemanticRetriever creates a SemanticRetriever. vectorIndex is the
// name of the publication embedding index.
func NewSemanticRetriever(llmClient llm.Client, graphClient graph.Client, vectorIndex string) *SemanticRetriever {
	return &SemanticRetriever{llmClient: llmClient, graphClient: graphClient, vectorIndex: vectorIndex}
}

// EmbedQuestion embeds the raw question text. Run speculatively in
// parallel with classification so the fallback path pays no extra
// latency.
func (s *SemanticRetriever) EmbedQuestion(ctx context.Context, question string) ([]float32, error) {
	return s.llmClient.Embed(ctx, question)
}

// SearchTopic performs the broad topic-mode vector search. The caller
// applies FilterByScore; this returns the raw candidate pool. An empty
// topic returns no hits without touching the index.
func (s *SemanticRetriever) SearchTopic(ctx context.Context, topic string) ([]map[string]any, error) {
	if strings.TrimSpace(topic) == "" {
		return []map[string]any{}, nil
	}

	ctx, span := retrieverTracer.Start(ctx, "SemanticRetriever.SearchTopic")
	defer span.End()
	span.SetAttributes(attribute.String("search.topic", topic))

	embedding, err := s.llmClient.Embed(ctx, topic)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(embedding) == 0 {
		return []map[string]any{}, nil
	}

	hits, err := s.graphClient.VectorSearch(ctx, s.vectorIndex, topicSearchK, embedding, topicSearchTail)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	return hits, nil
}

// SearchCohort performs the fallback search restricted to publications
// authored by UAlberta people, using the pre-computed question embedding.
func (s *SemanticRetriever) SearchCohort(ctx context.Context, embedding []float32) ([]map[string]any, error) {
	if len(embedding) == 0 {
		return []map[string]any{}, nil
	}

	ctx, span := retrieverTracer.Start(ctx, "SemanticRetriever.SearchCohort")
	defer span.End()

	hits, err := s.graphClient.VectorSearch(ctx, s.vectorIndex, cohortSearchK, embedding, cohortSearchTail)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	return hits, nil
}

// FilterByScore keeps only hits whose score meets the floor.
func FilterByScore(hits []map[string]any, minScore float64) []map[string]any {
	filtered := make([]map[string]any, 0, len(hits))
	for _, hit := range hits {
		if floatValue(hit["score"]) >= minScore {
			filtered = append(filtered, hit)
		}
	}
	return filtered
}

// HitTitles extracts the non-empty titles from a hit list, preserving
// order.
func HitTitles(hits []map[string]any) []string {
	titles := make([]string, 0, len(hits))
	for _, hit := range hits {
		if title := stringValue(hit["title"]); title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}
