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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/scholarlink/services/llm"
	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
	"github.com/AleutianAI/scholarlink/services/orchestrator/prompts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var cypherTracer = otel.Tracer("scholarlink.orchestrator.services.cypher")

// deptWhereClause matches the department name filter the generator emits
// for DEPARTMENT_TOPIC_TRENDS queries.
var deptWhereClause = regexp.MustCompile(`WHERE\s+toLower\(d\.department\)\s*=\s*toLower\(deptName\)`)

// CypherGenerator turns a slot-filled intent into an executable Cypher
// query via a deterministic chat call.
type CypherGenerator struct {
	llmClient llm.Client
	registry  *prompts.Registry
}

// NewCypherGenerator creates a CypherGenerator with the provided
// dependencies.
func NewCypherGenerator(llmClient llm.Client, registry *prompts.Registry) *CypherGenerator {
	return &CypherGenerator{llmClient: llmClient, registry: registry}
}

// Generate produces the template query for the intent. The full intent
// object (including authorUserId when the resolver set it) is serialized
// as the user message. Markdown fences are stripped and the department
// abbreviation patch is applied before returning.
func (g *CypherGenerator) Generate(ctx context.Context, intent datatypes.Intent) (string, error) {
	ctx, span := cypherTracer.Start(ctx, "CypherGenerator.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("intent.kind", intent.Intent))

	payload, err := json.Marshal(intent)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal intent for cypher generation: %w", err)
	}

	cypher, err := g.llmClient.Chat(ctx, g.registry.Get(prompts.CypherPrompt), string(payload), nil, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cypher generation failed")
		return "", fmt.Errorf("cypher generation failed: %w", err)
	}
	return PatchDepartmentWhereClause(stripFences(cypher)), nil
}

// GenerateAuthorDiscovery produces the $titles-parameterized query that
// maps semantic hits back to their UAlberta authors. Returns an empty
// string when there are no titles to look up.
func (g *CypherGenerator) GenerateAuthorDiscovery(ctx context.Context, titles []string) (string, error) {
	if len(titles) == 0 {
		return "", nil
	}

	ctx, span := cypherTracer.Start(ctx, "CypherGenerator.GenerateAuthorDiscovery")
	defer span.End()
	span.SetAttributes(attribute.Int("discovery.titles", len(titles)))

	titlesJSON, err := json.Marshal(titles)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal titles: %w", err)
	}
	userContent := fmt.Sprintf("Here is the list of titles to find authors for: %s", titlesJSON)

	cypher, err := g.llmClient.Chat(ctx, g.registry.Get(prompts.AuthorDiscoveryPrompt), userContent, nil, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "author discovery generation failed")
		return "", fmt.Errorf("author discovery generation failed: %w", err)
	}
	return stripFences(cypher), nil
}

// PatchDepartmentWhereClause broadens the generated department filter so
// a department abbreviation (like "ECE") also matches. No-op when the
// query does not contain the expected clause.
func PatchDepartmentWhereClause(cypher string) string {
	return deptWhereClause.ReplaceAllString(cypher,
		"$0 OR toLower(coalesce(d.abbr, '')) = toLower(deptName)")
}

// stripFences removes markdown code fences the model sometimes wraps
// around structured output.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```cypher", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
