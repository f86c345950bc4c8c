// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package services implements the multi-stage question-answering pipeline
// for the research graph.
//
// The stages are:
//  1. Intent classification and question embedding, run in parallel
//  2. Department normalization
//  3. Author resolution (exact, then fuzzy candidates) or explicit selection
//  4. Branch A: template Cypher generation (in parallel with topic vector
//     search for topic intents), execution, and answer synthesis, with a
//     cohort semantic fallback when the template comes back empty
//  5. Branch B: cohort vector search, author discovery, and open-question
//     answer synthesis
//
// Services are designed to be:
//   - Testable: Dependencies are injected via constructors
//   - Composable: Services can call other services
//   - Traceable: All methods accept context for distributed tracing
package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/AleutianAI/scholarlink/services/graph"
	"github.com/AleutianAI/scholarlink/services/llm"
	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
	"github.com/AleutianAI/scholarlink/services/orchestrator/observability"
	"github.com/AleutianAI/scholarlink/services/orchestrator/prompts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var pipelineTracer = otel.Tracer("scholarlink.orchestrator.services.pipeline")

// noResultsAnswer is returned when neither the graph nor the vector index
// produced anything usable.
const noResultsAnswer = "I could not find any relevant UAlberta publications or researchers matching your question with high confidence.\n\n" +
	"**Suggestions:**\n" +
	"- Try asking about specific engineering topics like 'smart grids', 'reinforcement learning', or 'nanotechnology'.\n" +
	"- Ask about specific University of Alberta researchers or departments.\n" +
	"- Ensure you are asking about work specifically within the Faculty of Engineering."

// minExtractedNameLen guards against the name extractor returning noise
// like a bare initial.
const minExtractedNameLen = 3

// requestTimeout is the outer deadline for one pipeline run. Every
// downstream LLM and graph call inherits it through ctx on top of its own
// per-call timeout.
const requestTimeout = 120 * time.Second

// Pipeline wires the stage services together and owns the end-to-end run.
//
// Usage:
//
//	pipeline := NewPipeline(llmClient, graphClient, registry, cfg, metrics)
//	resp := pipeline.Answer(ctx, question, history, selectedUserId)
type Pipeline struct {
	classifier  *IntentClassifier
	resolver    *AuthorResolver
	generator   *CypherGenerator
	retriever   *SemanticRetriever
	synthesizer *AnswerSynthesizer
	llmClient   llm.Client
	graphClient graph.Client
	registry    *prompts.Registry
	metrics     *observability.PipelineMetrics
}

// PipelineConfig carries the index names the pipeline queries.
type PipelineConfig struct {
	VectorIndex   string
	FulltextIndex string
}

// NewPipeline creates a Pipeline with the provided dependencies. metrics
// may be nil (tests).
func NewPipeline(llmClient llm.Client, graphClient graph.Client, registry *prompts.Registry,
	cfg PipelineConfig, metrics *observability.PipelineMetrics) *Pipeline {

	return &Pipeline{
		classifier:  NewIntentClassifier(llmClient, registry),
		resolver:    NewAuthorResolver(graphClient, cfg.FulltextIndex),
		generator:   NewCypherGenerator(llmClient, registry),
		retriever:   NewSemanticRetriever(llmClient, graphClient, cfg.VectorIndex),
		synthesizer: NewAnswerSynthesizer(llmClient, registry),
		llmClient:   llmClient,
		graphClient: graphClient,
		registry:    registry,
		metrics:     metrics,
	}
}

// Answer runs the full pipeline for one question.
//
// The method never returns an error: every failure is caught and reported
// through the Error field of a structurally complete response, so the
// frontend always receives intent, cypher and telemetry for debugging. A
// panic anywhere in the run is recovered the same way.
func (p *Pipeline) Answer(ctx context.Context, question string, history []datatypes.Turn,
	selectedUserId string) (resp *datatypes.QueryResponse) {

	ctx, span := pipelineTracer.Start(ctx, "Pipeline.Answer")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp = datatypes.NewQueryResponse()
	totalStart := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panic recovered", "panic", r)
			span.SetStatus(codes.Error, "panic")
			resp.Error = fmt.Sprintf("panic: %v", r)
		}
		resp.Telemetry.Timings["total"] = roundSeconds(time.Since(totalStart))
		p.metrics.RecordStage("total", time.Since(totalStart).Seconds())
		switch {
		case resp.Error != "":
			p.metrics.RecordRequest(observability.StatusError)
		case len(resp.Candidates) > 0:
			p.metrics.RecordRequest(observability.StatusCandidates)
		default:
			p.metrics.RecordRequest(observability.StatusSuccess)
		}
	}()

	messages := toMessages(history)

	// Step 0: classification and question embedding, speculatively in
	// parallel. The embedding serves both fallback paths.
	step0Start := time.Now()
	var intent datatypes.Intent
	var questionEmbedding []float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		classified, err := p.classifier.Classify(gctx, question)
		if err != nil {
			return err
		}
		intent = classified
		return nil
	})
	g.Go(func() error {
		embedding, err := p.retriever.EmbedQuestion(gctx, question)
		if err != nil {
			return err
		}
		questionEmbedding = embedding
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "setup stage failed")
		resp.Error = err.Error()
		return resp
	}
	resp.Telemetry.Timings["step0_setup"] = roundSeconds(time.Since(step0Start))
	p.metrics.RecordStage("step0_setup", time.Since(step0Start).Seconds())

	intent = NormalizeIntent(intent)
	resp.Intent = intent
	span.SetAttributes(attribute.String("intent.kind", intent.Intent))

	// Author resolution, or direct selection from the candidate menu.
	if selectedUserId != "" {
		intent.AuthorUserId = selectedUserId
		name, err := p.resolver.ResolveSelected(ctx, selectedUserId)
		if err != nil {
			span.RecordError(err)
			resp.Error = err.Error()
			resp.Intent = intent
			return resp
		}
		if name != "" {
			intent.Author = name
		}
		intent = PromoteAfterSelection(intent)
		resp.Intent = intent
	} else {
		authorToCheck := strings.TrimSpace(intent.Author)
		if authorToCheck == "" && authorCouldHelp(intent) {
			// The classifier found no name; try forceful extraction
			// before giving up on the author path.
			extracted, err := p.llmClient.Chat(ctx, p.registry.Get(prompts.NameExtractionPrompt), question, nil, true)
			if err != nil {
				slog.Warn("Name extraction failed", "error", err)
			} else if len(strings.TrimSpace(extracted)) > minExtractedNameLen {
				authorToCheck = strings.TrimSpace(extracted)
			}
		}

		if authorToCheck != "" {
			resStart := time.Now()
			probe := intent
			probe.Author = authorToCheck
			updated, candidates, resolution, err := p.resolver.Resolve(ctx, probe)
			if err != nil {
				span.RecordError(err)
				resp.Error = err.Error()
				return resp
			}
			resp.Telemetry.Resolution = resolution
			resp.Telemetry.Timings["author_resolution"] = roundSeconds(time.Since(resStart))
			p.metrics.RecordStage("author_resolution", time.Since(resStart).Seconds())
			p.metrics.RecordResolution(resolution.Path)

			if len(candidates) > 0 {
				resp.Answer = fmt.Sprintf(
					"I couldn't find exact matches for '%s', but I found similar researchers. Please select one:",
					authorToCheck)
				resp.Candidates = candidates
				return resp
			}
			if updated.AuthorUserId != "" {
				intent.Author = updated.Author
				intent.AuthorUserId = updated.AuthorUserId
				intent = PromoteAfterExactResolution(intent)
				resp.Intent = intent
			}
		}
	}
	p.metrics.RecordIntent(intent.Intent)

	if intent.IsTemplate() && HasRequiredSlots(intent) {
		return p.answerTemplate(ctx, resp, question, intent, questionEmbedding, messages)
	}
	return p.answerOpenQuestion(ctx, resp, question, questionEmbedding, messages)
}

// answerTemplate runs Branch A: speculative Cypher generation (plus topic
// search for topic intents), query execution, fallback, and synthesis.
func (p *Pipeline) answerTemplate(ctx context.Context, resp *datatypes.QueryResponse, question string,
	intent datatypes.Intent, questionEmbedding []float32, messages []llm.Message) *datatypes.QueryResponse {

	ctx, span := pipelineTracer.Start(ctx, "Pipeline.answerTemplate")
	defer span.End()

	specStart := time.Now()
	var cypher string
	var semanticHits []map[string]any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		generated, err := p.generator.Generate(gctx, intent)
		if err != nil {
			return err
		}
		cypher = generated
		return nil
	})
	if intent.IsTopic() {
		g.Go(func() error {
			rawHits, err := p.retriever.SearchTopic(gctx, intent.Topic)
			if err != nil {
				return err
			}
			semanticHits = FilterByScore(rawHits, MinRelevanceScore)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "speculative generation failed")
		resp.Error = err.Error()
		return resp
	}
	resp.Telemetry.Timings["speculative_generation"] = roundSeconds(time.Since(specStart))
	p.metrics.RecordStage("speculative_generation", time.Since(specStart).Seconds())
	resp.Cypher = cypher

	dbStart := time.Now()
	dbRows, err := p.graphClient.Execute(ctx, cypher, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "db query failed")
		resp.Error = err.Error()
		return resp
	}
	resp.Telemetry.Timings["db_query"] = roundSeconds(time.Since(dbStart))
	p.metrics.RecordStage("db_query", time.Since(dbStart).Seconds())

	resp.DBRows = dbRows
	resp.SemanticHits = semanticHits

	// Empty template result: fall back to the cohort-scoped vector search
	// before synthesizing.
	if len(dbRows) == 0 && len(semanticHits) == 0 {
		fallStart := time.Now()
		fallbackHits, err := p.retriever.SearchCohort(ctx, questionEmbedding)
		if err != nil {
			span.RecordError(err)
			resp.Error = err.Error()
			return resp
		}
		semanticHits = fallbackHits
		resp.SemanticHits = semanticHits
		resp.Telemetry.Timings["semantic_fallback"] = roundSeconds(time.Since(fallStart))
		p.metrics.RecordStage("semantic_fallback", time.Since(fallStart).Seconds())
	}
	p.metrics.RecordSemanticHits(len(semanticHits))

	synStart := time.Now()
	answer, err := p.synthesizer.Synthesize(ctx, question, intent, cypher, dbRows, semanticHits, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		resp.Error = err.Error()
		return resp
	}
	resp.Telemetry.Timings["synthesis"] = roundSeconds(time.Since(synStart))
	p.metrics.RecordStage("synthesis", time.Since(synStart).Seconds())

	// Second pass when the template found nothing but the vector index
	// did. A re-ask failure keeps the first answer.
	if len(dbRows) == 0 && len(semanticHits) > 0 {
		if reAsked, err := p.synthesizer.ReAsk(ctx, question, semanticHits, answer); err == nil {
			answer = reAsked
		} else {
			slog.Warn("Semantic re-ask failed, keeping first-pass answer", "error", err)
		}
	}

	resp.Answer = answer
	return resp
}

// answerOpenQuestion runs Branch B: cohort vector search, author
// discovery, and open-question synthesis.
func (p *Pipeline) answerOpenQuestion(ctx context.Context, resp *datatypes.QueryResponse, question string,
	questionEmbedding []float32, messages []llm.Message) *datatypes.QueryResponse {

	ctx, span := pipelineTracer.Start(ctx, "Pipeline.answerOpenQuestion")
	defer span.End()

	openStart := time.Now()
	semanticHits, err := p.retriever.SearchCohort(ctx, questionEmbedding)
	if err != nil {
		span.RecordError(err)
		resp.Error = err.Error()
		return resp
	}
	resp.SemanticHits = semanticHits
	p.metrics.RecordSemanticHits(len(semanticHits))

	if len(semanticHits) == 0 {
		resp.Answer = noResultsAnswer
		resp.Telemetry.Timings["open_question"] = roundSeconds(time.Since(openStart))
		p.metrics.RecordStage("open_question", time.Since(openStart).Seconds())
		return resp
	}

	// Discovery pass: find the UAlberta authors behind the hits.
	discStart := time.Now()
	titles := HitTitles(semanticHits)
	authorCypher, err := p.generator.GenerateAuthorDiscovery(ctx, titles)
	if err != nil {
		span.RecordError(err)
		resp.Error = err.Error()
		return resp
	}
	resp.Cypher = authorCypher

	var authorRows []map[string]any
	if authorCypher != "" {
		authorRows, err = p.graphClient.Execute(ctx, authorCypher, map[string]any{"titles": titles})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "author discovery query failed")
			resp.Error = err.Error()
			return resp
		}
	}
	resp.Telemetry.Timings["author_discovery"] = roundSeconds(time.Since(discStart))
	p.metrics.RecordStage("author_discovery", time.Since(discStart).Seconds())
	resp.DBRows = authorRows

	synStart := time.Now()
	answer, err := p.synthesizer.SynthesizeAuthorAnswer(ctx, question, semanticHits, authorRows, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "author answer synthesis failed")
		resp.Error = err.Error()
		return resp
	}
	resp.Telemetry.Timings["synthesis"] = roundSeconds(time.Since(synStart))
	p.metrics.RecordStage("synthesis", time.Since(synStart).Seconds())
	resp.Answer = answer
	resp.Telemetry.Timings["open_question_pipeline"] = roundSeconds(time.Since(openStart))
	return resp
}

// authorCouldHelp reports whether finding an author name could change the
// route for this intent. Department-scoped intents run without one, so the
// extraction round-trip is skipped for them.
func authorCouldHelp(intent datatypes.Intent) bool {
	return intent.Intent == datatypes.IntentOpenQuestion ||
		datatypes.AuthorIntentsRequiringAuthor[intent.Intent]
}

// toMessages converts session turns into LLM messages.
func toMessages(history []datatypes.Turn) []llm.Message {
	if len(history) == 0 {
		return nil
	}
	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}

// roundSeconds rounds a duration to millisecond precision in seconds, the
// resolution the telemetry payload reports.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
