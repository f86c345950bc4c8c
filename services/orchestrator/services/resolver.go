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
	"fmt"
	"strings"

	"github.com/AleutianAI/scholarlink/services/graph"
	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var resolverTracer = otel.Tracer("scholarlink.orchestrator.services.resolver")

// exactAuthorCypher finds a single researcher whose name or normalized
// name matches exactly (case-insensitive), restricted to the institutional
// cohort (userId or ccid present).
const exactAuthorCypher = `
MATCH (r:Researcher)
WHERE (toLower(r.name) = toLower($name) OR toLower(r.normalized_name) = toLower($name))
  AND (r.userId IS NOT NULL OR r.ccid IS NOT NULL)
RETURN r.userId AS userId, coalesce(r.name, r.normalized_name) AS name, r.normalized_name AS normalized_name
ORDER BY r.name DESC
LIMIT 1`

// fuzzyAuthorCypher queries the researcher fulltext index and returns the
// top candidates with their departments. Candidates are offered back to
// the user, never auto-selected.
const fuzzyAuthorCypher = `
CALL db.index.fulltext.queryNodes($index, $term) YIELD node, score
WHERE (node.userId IS NOT NULL OR node.ccid IS NOT NULL)
OPTIONAL MATCH (node)-[:BELONGS_TO]->(d:Department)
RETURN node.userId AS userId,
       coalesce(node.name, node.normalized_name) AS name,
       node.normalized_name AS normalized_name,
       collect(DISTINCT d.department) AS departments,
       score
ORDER BY score DESC
LIMIT 5`

// selectedNameCypher fetches the canonical display name for a user id, so
// downstream prompts see the real name instead of the user's typo.
const selectedNameCypher = `
MATCH (p:Person {userId: $uid})
RETURN coalesce(p.name, p.normalized_name) AS name`

// AuthorResolver maps an author name from the intent onto a concrete
// researcher id, falling back to fuzzy fulltext candidates.
type AuthorResolver struct {
	graphClient   graph.Client
	fulltextIndex string
}

// NewAuthorResolver creates an AuthorResolver. fulltextIndex is the name
// of the researcher name fulltext index.
func NewAuthorResolver(graphClient graph.Client, fulltextIndex string) *AuthorResolver {
	return &AuthorResolver{graphClient: graphClient, fulltextIndex: fulltextIndex}
}

// Resolve attempts to attach an authorUserId to the intent.
//
// The resolution ladder is: no author slot -> NONE; exact case-insensitive
// match -> EXACT (intent updated with the canonical name and id); otherwise
// a fuzzy fulltext search -> FUZZY with up to five candidates for the user
// to pick from. Fuzzy candidates are never auto-selected, regardless of
// score.
func (r *AuthorResolver) Resolve(ctx context.Context, intent datatypes.Intent) (
	datatypes.Intent, []datatypes.Candidate, datatypes.Resolution, error) {

	ctx, span := resolverTracer.Start(ctx, "AuthorResolver.Resolve")
	defer span.End()

	authorName := strings.TrimSpace(intent.Author)
	if authorName == "" {
		return intent, nil, datatypes.Resolution{Path: datatypes.ResolutionNone}, nil
	}
	span.SetAttributes(attribute.String("resolve.author", authorName))

	rows, err := r.graphClient.Execute(ctx, exactAuthorCypher, map[string]any{"name": authorName})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exact match query failed")
		return intent, nil, datatypes.Resolution{}, fmt.Errorf("exact author lookup failed: %w", err)
	}
	if len(rows) > 0 {
		intent.AuthorUserId = stringValue(rows[0]["userId"])
		if name := stringValue(rows[0]["name"]); name != "" {
			intent.Author = name
		}
		span.SetAttributes(attribute.String("resolve.path", datatypes.ResolutionExact))
		return intent, nil, datatypes.Resolution{Path: datatypes.ResolutionExact}, nil
	}

	term := BuildFuzzyTerm(authorName)
	span.SetAttributes(attribute.String("resolve.fuzzy_term", term))
	fuzzyRows, err := r.graphClient.Execute(ctx, fuzzyAuthorCypher, map[string]any{
		"index": r.fulltextIndex,
		"term":  term,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fuzzy match query failed")
		return intent, nil, datatypes.Resolution{}, fmt.Errorf("fuzzy author lookup failed: %w", err)
	}

	resolution := datatypes.Resolution{Path: datatypes.ResolutionFuzzy}
	candidates := make([]datatypes.Candidate, 0, len(fuzzyRows))
	for _, row := range fuzzyRows {
		score := floatValue(row["score"])
		resolution.FuzzyScores = append(resolution.FuzzyScores, score)
		candidates = append(candidates, datatypes.Candidate{
			UserId:         stringValue(row["userId"]),
			Name:           stringValue(row["name"]),
			NormalizedName: stringValue(row["normalized_name"]),
			Departments:    stringSlice(row["departments"]),
			Score:          score,
		})
	}
	span.SetAttributes(
		attribute.String("resolve.path", datatypes.ResolutionFuzzy),
		attribute.Int("resolve.candidates", len(candidates)),
	)
	if len(candidates) == 0 {
		return intent, nil, resolution, nil
	}
	return intent, candidates, resolution, nil
}

// ResolveSelected fetches the canonical name for an explicitly selected
// user id. An unknown id returns an empty name without error.
func (r *AuthorResolver) ResolveSelected(ctx context.Context, userId string) (string, error) {
	ctx, span := resolverTracer.Start(ctx, "AuthorResolver.ResolveSelected")
	defer span.End()
	span.SetAttributes(attribute.String("resolve.selected_user_id", userId))

	rows, err := r.graphClient.Execute(ctx, selectedNameCypher, map[string]any{"uid": userId})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "selected name lookup failed")
		return "", fmt.Errorf("selected user lookup failed: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return stringValue(rows[0]["name"]), nil
}

// BuildFuzzyTerm turns an author name into a Lucene query with a fuzzy
// marker per whitespace token: "marek reformat" -> "marek~ reformat~".
func BuildFuzzyTerm(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+"~")
	}
	return strings.Join(parts, " ")
}

// stringValue pulls a string out of a driver record value, tolerating nil.
func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// floatValue pulls a float out of a driver record value, tolerating nil
// and integer-typed scores.
func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

// stringSlice converts a driver list value into a string slice, dropping
// nulls.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
