// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var llmTracer = otel.Tracer("scholarlink.llm")

// historyReplayLimit bounds how many prior turns are sent with each chat
// call (5 Q&A pairs).
const historyReplayLimit = 10

// Per-call ceilings. The caller's ctx can impose a tighter deadline.
const (
	chatCallTimeout  = 60 * time.Second
	embedCallTimeout = 30 * time.Second
)

// Compile-time interface implementation check.
var _ Client = (*OpenAIClient)(nil)

// OpenAIClient implements Client against the OpenAI Chat Completions and
// Embeddings APIs.
type OpenAIClient struct {
	client     *openai.Client
	chatModel  string
	embedModel string
}

// NewOpenAIClient builds an OpenAIClient from the environment.
//
// OPENAI_API_KEY is required. OPENAI_MODEL_CHAT and OPENAI_MODEL_EMBED are
// optional and default to gpt-4o-mini and text-embedding-3-large.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from container secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	chatModel := os.Getenv("OPENAI_MODEL_CHAT")
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL_CHAT not set, defaulting to gpt-4o-mini")
	}
	embedModel := os.Getenv("OPENAI_MODEL_EMBED")
	if embedModel == "" {
		embedModel = "text-embedding-3-large"
		slog.Warn("OPENAI_MODEL_EMBED not set, defaulting to text-embedding-3-large")
	}

	slog.Info("Initializing OpenAI client", "chatModel", chatModel, "embedModel", embedModel)
	return &OpenAIClient{
		client:     openai.NewClient(apiKey),
		chatModel:  chatModel,
		embedModel: embedModel,
	}, nil
}

// Chat implements the Client interface.
func (o *OpenAIClient) Chat(ctx context.Context, systemPrompt, userContent string,
	history []Message, deterministic bool) (string, error) {

	ctx, span := llmTracer.Start(ctx, "OpenAIClient.Chat")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, chatCallTimeout)
	defer cancel()
	span.SetAttributes(
		attribute.String("llm.model", o.chatModel),
		attribute.Bool("llm.deterministic", deterministic),
		attribute.Int("llm.history_turns", len(history)),
	)

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	if len(history) > historyReplayLimit {
		history = history[len(history)-historyReplayLimit:]
	}
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userContent,
	})

	req := openai.ChatCompletionRequest{
		Model:    o.chatModel,
		Messages: messages,
	}
	if deterministic {
		// The request serializer drops a literal zero temperature, so pin
		// the smallest non-zero value instead.
		req.Temperature = math.SmallestNonzeroFloat32
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		slog.Error("OpenAI chat completion failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		span.SetStatus(codes.Error, "empty completion")
		slog.Warn("OpenAI returned no choices or empty content")
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed implements the Client interface.
func (o *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}

	ctx, span := llmTracer.Start(ctx, "OpenAIClient.Embed")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, embedCallTimeout)
	defer cancel()
	span.SetAttributes(attribute.String("llm.model", o.embedModel))

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: []string{text},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		slog.Error("OpenAI embedding call failed", "error", err)
		return nil, fmt.Errorf("OpenAI embedding call failed: %w", err)
	}
	if len(resp.Data) == 0 {
		span.SetStatus(codes.Error, "empty embedding response")
		return nil, fmt.Errorf("OpenAI embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}
