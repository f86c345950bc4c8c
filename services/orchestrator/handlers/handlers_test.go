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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/scholarlink/services/graph"
	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
	"github.com/AleutianAI/scholarlink/services/orchestrator/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAnswerer records the arguments of the last call and returns a
// scripted response.
type stubAnswerer struct {
	response *datatypes.QueryResponse

	lastQuestion string
	lastHistory  []datatypes.Turn
	lastSelected string
	calls        int
}

var _ QueryAnswerer = (*stubAnswerer)(nil)

func (s *stubAnswerer) Answer(_ context.Context, question string, history []datatypes.Turn,
	selectedUserId string) *datatypes.QueryResponse {

	s.calls++
	s.lastQuestion = question
	s.lastHistory = history
	s.lastSelected = selectedUserId
	if s.response != nil {
		return s.response
	}
	resp := datatypes.NewQueryResponse()
	resp.Answer = "stub answer"
	return resp
}

// stubGraph scripts Execute per test; the vector path is unused here.
type stubGraph struct {
	executeFn func(cypher string, params map[string]any) ([]map[string]any, error)
	connErr   error
	executed  []string
}

var _ graph.Client = (*stubGraph)(nil)

func (s *stubGraph) Execute(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	s.executed = append(s.executed, cypher)
	if s.executeFn != nil {
		return s.executeFn(cypher, params)
	}
	return []map[string]any{}, nil
}

func (s *stubGraph) VectorSearch(_ context.Context, _ string, _ int, _ []float32, _ string) ([]map[string]any, error) {
	return nil, errors.New("not used in handler tests")
}

func (s *stubGraph) VerifyConnectivity(_ context.Context) error { return s.connErr }
func (s *stubGraph) Close(_ context.Context) error              { return nil }

// newSessionRouter builds a router with the session middleware installed,
// the way main wires it.
func newSessionRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.NewSessionMiddleware("test-secret"))
	return router
}

var errStubDown = errors.New("connection refused")

func newGetRequest(path string) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder()
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
