package services

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
)

func TestClassifyValidJSON(t *testing.T) {
	reg := mustRegistry(t)
	fl := newFakeLLM(reg)
	fl.intentJSON = `{"intent":"AUTHOR_TOP_COAUTHORS","author":"Marek Reformat","second_author":null,` +
		`"topic":null,"department":null,"start_year":null,"end_year":null,"scope":null}`
	classifier := NewIntentClassifier(fl, reg)

	intent, err := classifier.Classify(context.Background(), "with whom does Marek Reformat collaborate most?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Intent != datatypes.IntentAuthorTopCoauthors || intent.Author != "Marek Reformat" {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestClassifyFencedJSON(t *testing.T) {
	reg := mustRegistry(t)
	fl := newFakeLLM(reg)
	fl.intentJSON = "```json\n{\"intent\":\"AUTHOR_LATEST_PUBLICATION\",\"author\":\"Witold Pedrycz\"}\n```"
	classifier := NewIntentClassifier(fl, reg)

	intent, err := classifier.Classify(context.Background(), "latest paper by Witold Pedrycz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Intent != datatypes.IntentAuthorLatestPublication {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestClassifyMalformedFallsBack(t *testing.T) {
	reg := mustRegistry(t)
	fl := newFakeLLM(reg)
	fl.intentJSON = "I think this question is about publications."
	classifier := NewIntentClassifier(fl, reg)

	intent, err := classifier.Classify(context.Background(), "anything")
	if err != nil {
		t.Fatalf("malformed output must not be an error, got: %v", err)
	}
	if intent.Intent != datatypes.IntentOpenQuestion {
		t.Errorf("expected OPEN_QUESTION fallback, got %+v", intent)
	}
	if intent.Author != "" || intent.Topic != "" || !intent.Department.IsEmpty() {
		t.Errorf("fallback slots must be empty, got %+v", intent)
	}
}

func TestClassifyMissingIntentField(t *testing.T) {
	reg := mustRegistry(t)
	fl := newFakeLLM(reg)
	fl.intentJSON = `{"author":"Somebody"}`
	classifier := NewIntentClassifier(fl, reg)

	intent, err := classifier.Classify(context.Background(), "who is somebody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Intent != datatypes.IntentOpenQuestion {
		t.Errorf("missing intent field must default to OPEN_QUESTION, got %q", intent.Intent)
	}
	if intent.Author != "Somebody" {
		t.Errorf("slots present in the output must be kept, got %+v", intent)
	}
}

func TestClassifyTransportError(t *testing.T) {
	reg := mustRegistry(t)
	fl := newFakeLLM(reg)
	fl.chatErr = errors.New("connection refused")
	classifier := NewIntentClassifier(fl, reg)

	if _, err := classifier.Classify(context.Background(), "anything"); err == nil {
		t.Error("transport failures must surface as errors")
	}
}
