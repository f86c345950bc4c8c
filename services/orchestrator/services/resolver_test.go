package services

import (
	"context"
	"strings"
	"testing"

	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
)

func TestBuildFuzzyTerm(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"reformat", "reformat~"},
		{"marek reformat", "marek~ reformat~"},
		{"  marek   reformat  ", "marek~ reformat~"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := BuildFuzzyTerm(tc.in); got != tc.want {
			t.Errorf("BuildFuzzyTerm(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveNoAuthor(t *testing.T) {
	g := &fakeGraph{}
	resolver := NewAuthorResolver(g, "researcher_name_index")

	intent, candidates, resolution, err := resolver.Resolve(context.Background(), datatypes.Intent{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolution.Path != datatypes.ResolutionNone {
		t.Errorf("expected NONE path, got %s", resolution.Path)
	}
	if candidates != nil || intent.AuthorUserId != "" {
		t.Errorf("expected untouched intent, got %+v / %+v", intent, candidates)
	}
	if len(g.executed) != 0 {
		t.Error("no queries should run without an author slot")
	}
}

func TestResolveExactMatch(t *testing.T) {
	g := &fakeGraph{
		executeFn: func(cypher string, params map[string]any) ([]map[string]any, error) {
			if strings.Contains(cypher, "toLower(r.name)") {
				if params["name"] != "marek reformat" {
					t.Errorf("unexpected name param: %v", params["name"])
				}
				return []map[string]any{{
					"userId":          "u42",
					"name":            "Marek Reformat",
					"normalized_name": "marek reformat",
				}}, nil
			}
			t.Errorf("unexpected query: %s", cypher)
			return nil, nil
		},
	}
	resolver := NewAuthorResolver(g, "researcher_name_index")

	intent, candidates, resolution, err := resolver.Resolve(context.Background(),
		datatypes.Intent{Author: "marek reformat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolution.Path != datatypes.ResolutionExact {
		t.Errorf("expected EXACT path, got %s", resolution.Path)
	}
	if candidates != nil {
		t.Error("exact resolution must not produce candidates")
	}
	if intent.AuthorUserId != "u42" {
		t.Errorf("expected resolved id, got %q", intent.AuthorUserId)
	}
	if intent.Author != "Marek Reformat" {
		t.Errorf("expected canonical name, got %q", intent.Author)
	}
}

func TestResolveFuzzyCandidates(t *testing.T) {
	g := &fakeGraph{
		executeFn: func(cypher string, params map[string]any) ([]map[string]any, error) {
			if strings.Contains(cypher, "db.index.fulltext.queryNodes") {
				if params["term"] != "marek~ reformt~" {
					t.Errorf("unexpected fuzzy term: %v", params["term"])
				}
				if params["index"] != "researcher_name_index" {
					t.Errorf("unexpected index: %v", params["index"])
				}
				return []map[string]any{
					{"userId": "u42", "name": "Marek Reformat", "normalized_name": "marek reformat",
						"departments": []any{"Electrical and Computer Engineering"}, "score": 2.5},
					{"userId": "u43", "name": "Marek Other", "normalized_name": "marek other",
						"departments": []any{}, "score": 1.1},
				}, nil
			}
			return []map[string]any{}, nil
		},
	}
	resolver := NewAuthorResolver(g, "researcher_name_index")

	intent, candidates, resolution, err := resolver.Resolve(context.Background(),
		datatypes.Intent{Author: "marek reformt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolution.Path != datatypes.ResolutionFuzzy {
		t.Errorf("expected FUZZY path, got %s", resolution.Path)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if intent.AuthorUserId != "" {
		t.Error("fuzzy candidates must never be auto-selected")
	}
	if candidates[0].Score != 2.5 || candidates[1].Score != 1.1 {
		t.Errorf("unexpected scores: %+v", candidates)
	}
	if len(resolution.FuzzyScores) != 2 {
		t.Errorf("expected telemetry scores, got %v", resolution.FuzzyScores)
	}
	if len(candidates[0].Departments) != 1 || candidates[0].Departments[0] != "Electrical and Computer Engineering" {
		t.Errorf("unexpected departments: %v", candidates[0].Departments)
	}
}

func TestResolveFuzzyNoMatches(t *testing.T) {
	g := &fakeGraph{}
	resolver := NewAuthorResolver(g, "researcher_name_index")

	_, candidates, resolution, err := resolver.Resolve(context.Background(),
		datatypes.Intent{Author: "nobody at all"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolution.Path != datatypes.ResolutionFuzzy {
		t.Errorf("expected FUZZY path, got %s", resolution.Path)
	}
	if candidates != nil {
		t.Errorf("expected no candidates, got %+v", candidates)
	}
}

func TestResolveSelected(t *testing.T) {
	g := &fakeGraph{
		executeFn: func(cypher string, params map[string]any) ([]map[string]any, error) {
			if params["uid"] == "u42" {
				return []map[string]any{{"name": "Marek Reformat"}}, nil
			}
			return []map[string]any{}, nil
		},
	}
	resolver := NewAuthorResolver(g, "researcher_name_index")

	name, err := resolver.ResolveSelected(context.Background(), "u42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Marek Reformat" {
		t.Errorf("expected canonical name, got %q", name)
	}

	name, err = resolver.ResolveSelected(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "" {
		t.Errorf("unknown id should yield empty name, got %q", name)
	}
}
