// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers exposes the HTTP surface of the orchestrator: the query
// pipeline, researcher lookup endpoints, debug logging and health.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
	"github.com/AleutianAI/scholarlink/services/orchestrator/middleware"
	"github.com/AleutianAI/scholarlink/services/orchestrator/services"
)

var handlerTracer = otel.Tracer("scholarlink.orchestrator.handlers")

// QueryAnswerer is the part of the pipeline the query handler depends on.
type QueryAnswerer interface {
	Answer(ctx context.Context, question string, history []datatypes.Turn,
		selectedUserId string) *datatypes.QueryResponse
}

// HandleQuery runs one question through the pipeline.
//
// # Description
//
//	Binds the request, loads the session conversation history, runs the
//	pipeline, appends the exchange to the history and returns the full
//	response body. The pipeline reports its own failures through the
//	response Error field, so this handler only ever returns 400 for a bad
//	request body; pipeline failures still come back as 200 with a
//	structurally complete payload the frontend can render.
//
// # Inputs
//   - answerer: the query pipeline.
//
// # Outputs
//   - gin.HandlerFunc: handler for POST /api/query.
func HandleQuery(answerer QueryAnswerer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleQuery")
		defer span.End()

		var request datatypes.QueryRequest
		if err := c.BindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to bind query request JSON", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		question := strings.TrimSpace(request.Question)
		if question == "" {
			err := &services.ValidationError{Message: "question must not be empty"}
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		requestId := uuid.New().String()
		c.Header("X-Request-ID", requestId)
		span.SetAttributes(
			attribute.String("request_id", requestId),
			attribute.Int("question.length", len(question)),
			attribute.Bool("has_selected_user", request.SelectedUserId != ""),
		)

		history := middleware.LoadHistory(c)
		slog.Info("Received query", "request_id", requestId, "question_length", len(question),
			"history_turns", len(history), "selected_user_id", request.SelectedUserId)

		response := answerer.Answer(ctx, question, history, request.SelectedUserId)

		// The exchange is stored even when the pipeline reported an error:
		// the answer field still carries what the user was shown, and a
		// follow-up question needs that context.
		if err := middleware.SaveHistory(c, datatypes.AppendExchange(history, question, response.Answer)); err != nil {
			// A lost cookie only costs conversational context.
			slog.Warn("Failed to persist session history", "error", err)
		}

		c.JSON(http.StatusOK, response)
	}
}
