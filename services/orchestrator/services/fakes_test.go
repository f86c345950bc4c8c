package services

import (
	"context"
	"fmt"

	"github.com/AleutianAI/scholarlink/services/graph"
	"github.com/AleutianAI/scholarlink/services/llm"
	"github.com/AleutianAI/scholarlink/services/orchestrator/prompts"
)

// fakeLLM routes chat calls by system prompt so each pipeline stage can be
// scripted independently.
type fakeLLM struct {
	reg *prompts.Registry

	intentJSON      string
	cypher          string
	discoveryCypher string
	answer          string
	authorAnswer    string
	reaskAnswer     string
	extractedName   string
	embedding       []float32

	chatErr  error
	embedErr error

	chatCalls  []string
	embedCalls []string
}

var _ llm.Client = (*fakeLLM)(nil)

func newFakeLLM(reg *prompts.Registry) *fakeLLM {
	return &fakeLLM{
		reg:          reg,
		intentJSON:   `{"intent":"OPEN_QUESTION"}`,
		cypher:       "MATCH (r:Researcher) RETURN r.name AS Name",
		answer:       "template answer",
		authorAnswer: "author answer",
		reaskAnswer:  "reask answer",
		embedding:    []float32{0.1, 0.2, 0.3},
	}
}

func (f *fakeLLM) Chat(_ context.Context, systemPrompt, _ string, _ []llm.Message, _ bool) (string, error) {
	if f.chatErr != nil {
		return "", f.chatErr
	}
	switch systemPrompt {
	case f.reg.Get(prompts.IntentPrompt):
		f.chatCalls = append(f.chatCalls, prompts.IntentPrompt)
		return f.intentJSON, nil
	case f.reg.Get(prompts.CypherPrompt):
		f.chatCalls = append(f.chatCalls, prompts.CypherPrompt)
		return f.cypher, nil
	case f.reg.Get(prompts.AnswerPrompt):
		f.chatCalls = append(f.chatCalls, prompts.AnswerPrompt)
		return f.answer, nil
	case f.reg.Get(prompts.AuthorDiscoveryPrompt):
		f.chatCalls = append(f.chatCalls, prompts.AuthorDiscoveryPrompt)
		return f.discoveryCypher, nil
	case f.reg.Get(prompts.FinalAuthorAnswerPrompt):
		f.chatCalls = append(f.chatCalls, prompts.FinalAuthorAnswerPrompt)
		return f.authorAnswer, nil
	case f.reg.Get(prompts.SemanticReaskPrompt):
		f.chatCalls = append(f.chatCalls, prompts.SemanticReaskPrompt)
		return f.reaskAnswer, nil
	case f.reg.Get(prompts.NameExtractionPrompt):
		f.chatCalls = append(f.chatCalls, prompts.NameExtractionPrompt)
		return f.extractedName, nil
	}
	return "", fmt.Errorf("unexpected system prompt")
}

func (f *fakeLLM) Embed(_ context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.embedCalls = append(f.embedCalls, text)
	return f.embedding, nil
}

func (f *fakeLLM) called(prompt string) int {
	n := 0
	for _, c := range f.chatCalls {
		if c == prompt {
			n++
		}
	}
	return n
}

// fakeGraph scripts Execute and VectorSearch per test.
type fakeGraph struct {
	executeFn func(cypher string, params map[string]any) ([]map[string]any, error)
	vectorFn  func(index string, k int, embedding []float32, tail string) ([]map[string]any, error)

	executed    []string
	vectorKs    []int
	sawDeadline bool
}

var _ graph.Client = (*fakeGraph)(nil)

func (f *fakeGraph) Execute(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if _, ok := ctx.Deadline(); ok {
		f.sawDeadline = true
	}
	f.executed = append(f.executed, cypher)
	if f.executeFn != nil {
		return f.executeFn(cypher, params)
	}
	return []map[string]any{}, nil
}

func (f *fakeGraph) VectorSearch(_ context.Context, index string, k int, embedding []float32, tail string) ([]map[string]any, error) {
	f.vectorKs = append(f.vectorKs, k)
	if f.vectorFn != nil {
		return f.vectorFn(index, k, embedding, tail)
	}
	return []map[string]any{}, nil
}

func (f *fakeGraph) VerifyConnectivity(_ context.Context) error { return nil }
func (f *fakeGraph) Close(_ context.Context) error              { return nil }

func mustRegistry(t interface{ Fatalf(string, ...any) }) *prompts.Registry {
	reg, err := prompts.Load()
	if err != nil {
		t.Fatalf("failed to load prompts: %v", err)
	}
	return reg
}
