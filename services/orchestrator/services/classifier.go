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
	"log/slog"

	"github.com/AleutianAI/scholarlink/services/llm"
	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
	"github.com/AleutianAI/scholarlink/services/orchestrator/prompts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var classifierTracer = otel.Tracer("scholarlink.orchestrator.services.classifier")

// IntentClassifier turns a free-text question into a slot-filled Intent
// using a deterministic chat call.
type IntentClassifier struct {
	llmClient llm.Client
	registry  *prompts.Registry
}

// NewIntentClassifier creates an IntentClassifier with the provided
// dependencies. Both must be non-nil.
func NewIntentClassifier(llmClient llm.Client, registry *prompts.Registry) *IntentClassifier {
	return &IntentClassifier{llmClient: llmClient, registry: registry}
}

// Classify asks the classifier model for an intent JSON object.
//
// Malformed or unparseable output is not an error: the method falls back
// to an OPEN_QUESTION intent with empty slots so the pipeline can continue
// on the semantic path. Only transport failures return an error.
func (c *IntentClassifier) Classify(ctx context.Context, question string) (datatypes.Intent, error) {
	ctx, span := classifierTracer.Start(ctx, "IntentClassifier.Classify")
	defer span.End()

	raw, err := c.llmClient.Chat(ctx, c.registry.Get(prompts.IntentPrompt), question, nil, true)
	if err != nil {
		span.RecordError(err)
		return datatypes.Intent{}, err
	}

	var intent datatypes.Intent
	if err := json.Unmarshal([]byte(stripFences(raw)), &intent); err != nil {
		slog.Warn("Classifier output was not valid JSON, falling back to OPEN_QUESTION",
			"error", err, "raw", raw)
		span.SetAttributes(attribute.Bool("intent.fallback", true))
		return datatypes.NewOpenQuestionIntent(), nil
	}
	if intent.Intent == "" {
		intent.Intent = datatypes.IntentOpenQuestion
	}

	span.SetAttributes(attribute.String("intent.kind", intent.Intent))
	return intent, nil
}
