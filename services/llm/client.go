// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the chat-completion and embedding client used by the
// orchestrator pipeline.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the provider responds without any
// message text. Callers treat it like any other transient LLM failure.
var ErrEmptyCompletion = errors.New("llm response had no message text output")

// Message is one prior conversation turn replayed to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the contract for LLM operations used by the pipeline.
//
// # Description
//
// Two operations are needed: chat completion for classification, Cypher
// generation and answer synthesis, and text embedding for the vector
// search. The concrete backend (OpenAI today) is selected in main.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the pipeline issues
// chat and embedding calls in parallel for the same request.
type Client interface {
	// Chat sends a system prompt, optional history and the current user
	// content to the chat model and returns the trimmed completion text.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation, timeouts, and tracing.
	//   - systemPrompt: The system instruction for this call.
	//   - userContent: The current user message.
	//   - history: Prior turns, oldest first. Only the most recent ten
	//     are replayed to keep the context window bounded.
	//   - deterministic: When true the call pins temperature to zero.
	//     Used for classification and Cypher generation so the same
	//     question produces the same structured output.
	//
	// # Outputs
	//
	//   - string: The completion text with surrounding whitespace removed.
	//   - error: ErrEmptyCompletion when the provider returned no text,
	//     or a wrapped provider error.
	Chat(ctx context.Context, systemPrompt, userContent string, history []Message, deterministic bool) (string, error)

	// Embed returns the embedding vector for the given text. An empty
	// input returns an empty vector without calling the provider.
	Embed(ctx context.Context, text string) ([]float32, error)
}
