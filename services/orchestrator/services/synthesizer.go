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
	"unicode/utf8"

	"github.com/AleutianAI/scholarlink/services/llm"
	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
	"github.com/AleutianAI/scholarlink/services/orchestrator/prompts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var synthesizerTracer = otel.Tracer("scholarlink.orchestrator.services.synthesizer")

// Payload sanitization bounds. Rows and hits beyond these limits add cost
// without adding evidence.
const (
	sanitizeMaxItems   = 15
	sanitizeMaxTextLen = 500
	truncationMarker   = "...(truncated)"
)

// AnswerSynthesizer produces the final natural-language answer from the
// evidence the pipeline gathered.
type AnswerSynthesizer struct {
	llmClient llm.Client
	registry  *prompts.Registry
}

// NewAnswerSynthesizer creates an AnswerSynthesizer with the provided
// dependencies.
func NewAnswerSynthesizer(llmClient llm.Client, registry *prompts.Registry) *AnswerSynthesizer {
	return &AnswerSynthesizer{llmClient: llmClient, registry: registry}
}

// Synthesize answers a template-path question from the query rows and any
// semantic hits. Conversation history is replayed so follow-up questions
// keep their referent.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, intent datatypes.Intent,
	cypher string, dbRows, semanticHits []map[string]any, history []llm.Message) (string, error) {

	ctx, span := synthesizerTracer.Start(ctx, "AnswerSynthesizer.Synthesize")
	defer span.End()

	payload := map[string]any{
		"question":      question,
		"intent":        intent,
		"cypher":        cypher,
		"db_rows":       sanitizePayload(dbRows),
		"semantic_hits": sanitizePayload(semanticHits),
	}
	userContent, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal synthesis payload: %w", err)
	}

	answer, err := s.llmClient.Chat(ctx, s.registry.Get(prompts.AnswerPrompt), string(userContent), history, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		return "", fmt.Errorf("answer synthesis failed: %w", err)
	}
	return answer, nil
}

// SynthesizeAuthorAnswer answers an open question from semantic hits plus
// the discovered author rows.
func (s *AnswerSynthesizer) SynthesizeAuthorAnswer(ctx context.Context, question string,
	semanticHits, authorRows []map[string]any, history []llm.Message) (string, error) {

	ctx, span := synthesizerTracer.Start(ctx, "AnswerSynthesizer.SynthesizeAuthorAnswer")
	defer span.End()

	payload := map[string]any{
		"question":      question,
		"semantic_hits": sanitizePayload(semanticHits),
		"author_data":   sanitizePayload(authorRows),
	}
	userContent, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal author answer payload: %w", err)
	}

	answer, err := s.llmClient.Chat(ctx, s.registry.Get(prompts.FinalAuthorAnswerPrompt), string(userContent), history, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "author answer synthesis failed")
		return "", fmt.Errorf("author answer synthesis failed: %w", err)
	}
	return answer, nil
}

// ReAsk re-answers the question with the semantic hits as evidence after a
// template query came back empty. Used as a second pass over the first
// summary.
func (s *AnswerSynthesizer) ReAsk(ctx context.Context, question string,
	semanticHits []map[string]any, firstPassSummary string) (string, error) {

	ctx, span := synthesizerTracer.Start(ctx, "AnswerSynthesizer.ReAsk")
	defer span.End()

	payload := map[string]any{
		"question":           question,
		"semantic_hits":      sanitizePayload(semanticHits),
		"first_pass_summary": firstPassSummary,
	}
	userContent, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal re-ask payload: %w", err)
	}

	answer, err := s.llmClient.Chat(ctx, s.registry.Get(prompts.SemanticReaskPrompt), string(userContent), nil, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "re-ask failed")
		return "", fmt.Errorf("semantic re-ask failed: %w", err)
	}
	return answer, nil
}

// sanitizePayload bounds what is sent to the LLM: lists keep their first
// sanitizeMaxItems entries, strings are cut at sanitizeMaxTextLen
// characters with a visible marker, and nesting is handled recursively.
func sanitizePayload(data any) any {
	switch v := data.(type) {
	case []map[string]any:
		limit := len(v)
		if limit > sanitizeMaxItems {
			limit = sanitizeMaxItems
		}
		out := make([]any, 0, limit)
		for _, item := range v[:limit] {
			out = append(out, sanitizePayload(item))
		}
		return out
	case []any:
		limit := len(v)
		if limit > sanitizeMaxItems {
			limit = sanitizeMaxItems
		}
		out := make([]any, 0, limit)
		for _, item := range v[:limit] {
			out = append(out, sanitizePayload(item))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = sanitizePayload(item)
		}
		return out
	case string:
		if utf8.RuneCountInString(v) > sanitizeMaxTextLen {
			// Cut on a rune boundary so the payload stays valid UTF-8.
			return string([]rune(v)[:sanitizeMaxTextLen]) + truncationMarker
		}
		return v
	default:
		return data
	}
}
