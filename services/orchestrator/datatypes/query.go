package datatypes

// Resolution path values reported in telemetry.
const (
	ResolutionNone  = "NONE"
	ResolutionExact = "EXACT"
	ResolutionFuzzy = "FUZZY"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Question       string `json:"question"`
	SelectedUserId string `json:"selected_user_id,omitempty"`
}

// Candidate is one fuzzy-match researcher offered back to the user for
// disambiguation. Candidates are never auto-selected.
type Candidate struct {
	UserId         string   `json:"userId"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name"`
	Departments    []string `json:"departments"`
	Score          float64  `json:"score"`
}

// Resolution records which author-resolution path a request took.
type Resolution struct {
	Path        string    `json:"resolution_path"`
	FuzzyScores []float64 `json:"fuzzy_scores,omitempty"`
}

// Telemetry carries per-stage wall-clock timings (seconds) and the
// resolution record for a single pipeline run.
type Telemetry struct {
	Timings    map[string]float64 `json:"timings"`
	Resolution Resolution         `json:"resolution"`
}

// QueryResponse is the structured result of a pipeline run. The shape is
// identical on success and on caught failure; Error is set in the latter
// case and the remaining fields hold whatever was produced before the
// failure.
type QueryResponse struct {
	Answer       string           `json:"answer"`
	Intent       Intent           `json:"intent"`
	Cypher       string           `json:"cypher"`
	DBRows       []map[string]any `json:"dbRows"`
	SemanticHits []map[string]any `json:"semanticHits"`
	Candidates   []Candidate      `json:"candidates,omitempty"`
	Telemetry    Telemetry        `json:"telemetry"`
	Error        string           `json:"error,omitempty"`
}

// NewQueryResponse returns a response pre-filled with the generic failure
// answer and empty collections, so a panic or early return still yields a
// structurally complete body.
func NewQueryResponse() *QueryResponse {
	return &QueryResponse{
		Answer:       "An internal error occurred while processing your request.",
		DBRows:       []map[string]any{},
		SemanticHits: []map[string]any{},
		Telemetry: Telemetry{
			Timings:    map[string]float64{},
			Resolution: Resolution{Path: ResolutionNone},
		},
	}
}

// DebugLogEntry is the body of POST /api/log-debug, appended verbatim as
// one JSON line to the debug log file.
type DebugLogEntry struct {
	Timestamp    string           `json:"timestamp"`
	Question     string           `json:"question"`
	Answer       string           `json:"answer"`
	Intent       map[string]any   `json:"intent"`
	Cypher       string           `json:"cypher"`
	DBRows       []map[string]any `json:"dbRows"`
	SemanticHits []map[string]any `json:"semanticHits"`
	Telemetry    map[string]any   `json:"telemetry,omitempty"`
}

// SearchResearchersRequest is the body of POST /api/search-researchers.
type SearchResearchersRequest struct {
	Query string `json:"q"`
}

// ResearcherSummaryRequest is the body of POST /api/researcher-summary.
// Either field may carry the lookup name.
type ResearcherSummaryRequest struct {
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
}
