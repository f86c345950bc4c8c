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
	"encoding/json"
	"net/http"
	"testing"

	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
)

func TestHandleQueryRejectsEmptyQuestion(t *testing.T) {
	answerer := &stubAnswerer{}
	router := newSessionRouter()
	router.POST("/api/query", HandleQuery(answerer))

	w := postJSON(t, router, "/api/query", datatypes.QueryRequest{Question: "   "}, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if answerer.calls != 0 {
		t.Error("the pipeline must not run for an empty question")
	}
}

func TestHandleQueryRejectsMalformedBody(t *testing.T) {
	answerer := &stubAnswerer{}
	router := newSessionRouter()
	router.POST("/api/query", HandleQuery(answerer))

	w := postJSON(t, router, "/api/query", "not an object", nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleQueryReturnsPipelineResponse(t *testing.T) {
	scripted := datatypes.NewQueryResponse()
	scripted.Answer = "Marek Reformat's latest paper is X."
	scripted.Intent = datatypes.Intent{Intent: datatypes.IntentAuthorLatestPublication,
		Author: "Marek Reformat", AuthorUserId: "u42"}
	scripted.Cypher = "MATCH (r:Researcher) RETURN r"
	answerer := &stubAnswerer{response: scripted}

	router := newSessionRouter()
	router.POST("/api/query", HandleQuery(answerer))

	w := postJSON(t, router, "/api/query",
		datatypes.QueryRequest{Question: "latest paper by Marek Reformat", SelectedUserId: "u42"}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if answerer.lastQuestion != "latest paper by Marek Reformat" || answerer.lastSelected != "u42" {
		t.Errorf("pipeline got %q / %q", answerer.lastQuestion, answerer.lastSelected)
	}

	var body datatypes.QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Answer != scripted.Answer || body.Intent.AuthorUserId != "u42" {
		t.Errorf("unexpected body: %+v", body)
	}
	if body.DBRows == nil || body.SemanticHits == nil {
		t.Error("collections must serialize as arrays, not null")
	}
}

func TestHandleQueryPipelineErrorStillReturns200(t *testing.T) {
	scripted := datatypes.NewQueryResponse()
	scripted.Error = "neo4j unavailable"
	answerer := &stubAnswerer{response: scripted}

	router := newSessionRouter()
	router.POST("/api/query", HandleQuery(answerer))

	w := postJSON(t, router, "/api/query", datatypes.QueryRequest{Question: "anything"}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline failures must still return 200, got %d", w.Code)
	}
	var body datatypes.QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error != "neo4j unavailable" {
		t.Errorf("expected the pipeline error in the body, got %+v", body)
	}
}

func TestHandleQueryCarriesHistoryAcrossRequests(t *testing.T) {
	answerer := &stubAnswerer{}
	router := newSessionRouter()
	router.POST("/api/query", HandleQuery(answerer))

	first := postJSON(t, router, "/api/query", datatypes.QueryRequest{Question: "first question"}, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first request failed: %d", first.Code)
	}
	if len(answerer.lastHistory) != 0 {
		t.Errorf("first request must see empty history, got %d turns", len(answerer.lastHistory))
	}

	cookies := first.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie on the first response")
	}

	second := postJSON(t, router, "/api/query", datatypes.QueryRequest{Question: "second question"}, cookies)
	if second.Code != http.StatusOK {
		t.Fatalf("second request failed: %d", second.Code)
	}
	if len(answerer.lastHistory) != 2 {
		t.Fatalf("second request must see the first exchange, got %d turns", len(answerer.lastHistory))
	}
	if answerer.lastHistory[0].Role != datatypes.RoleUser || answerer.lastHistory[0].Content != "first question" {
		t.Errorf("unexpected first turn: %+v", answerer.lastHistory[0])
	}
	if answerer.lastHistory[1].Role != datatypes.RoleAssistant {
		t.Errorf("unexpected second turn: %+v", answerer.lastHistory[1])
	}
}

func TestHandleQueryFailedRunStillRecordsHistory(t *testing.T) {
	scripted := datatypes.NewQueryResponse()
	scripted.Error = "boom"
	answerer := &stubAnswerer{response: scripted}

	router := newSessionRouter()
	router.POST("/api/query", HandleQuery(answerer))

	first := postJSON(t, router, "/api/query", datatypes.QueryRequest{Question: "broken question"}, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first request failed: %d", first.Code)
	}
	cookies := first.Result().Cookies()

	answerer.response = nil
	postJSON(t, router, "/api/query", datatypes.QueryRequest{Question: "next question"}, cookies)

	if len(answerer.lastHistory) != 2 {
		t.Fatalf("a failed run must still add one user and one assistant turn, got %d turns",
			len(answerer.lastHistory))
	}
	if answerer.lastHistory[0].Role != datatypes.RoleUser || answerer.lastHistory[0].Content != "broken question" {
		t.Errorf("unexpected user turn: %+v", answerer.lastHistory[0])
	}
	if answerer.lastHistory[1].Role != datatypes.RoleAssistant || answerer.lastHistory[1].Content != scripted.Answer {
		t.Errorf("unexpected assistant turn: %+v", answerer.lastHistory[1])
	}
}
