// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Intent kind values produced by the intent classifier. The catalog is
// closed: anything the classifier cannot place lands on IntentOpenQuestion.
const (
	IntentAuthorPublicationsRange       = "AUTHOR_PUBLICATIONS_RANGE"
	IntentAuthorLatestPublication       = "AUTHOR_LATEST_PUBLICATION"
	IntentAuthorTopVenue                = "AUTHOR_TOP_VENUE"
	IntentAuthorPairSharedPublications  = "AUTHOR_PAIR_SHARED_PUBLICATIONS"
	IntentAuthorTopCoauthors            = "AUTHOR_TOP_COAUTHORS"
	IntentAuthorTopicPublicationCount   = "AUTHOR_TOPIC_PUBLICATION_COUNT"
	IntentAuthorTopicExtent             = "AUTHOR_TOPIC_EXTENT"
	IntentAuthorMainResearchAreas       = "AUTHOR_MAIN_RESEARCH_AREAS"
	IntentAuthorTopicSynergy            = "AUTHOR_TOPIC_SYNERGY"
	IntentAuthorInstitutionCollabFreq   = "AUTHOR_INSTITUTION_COLLAB_FREQUENCY"
	IntentAuthorTopicPeersAtUofA        = "AUTHOR_TOPIC_PEERS_AT_UOFA"
	IntentDepartmentTopicTrends         = "DEPARTMENT_TOPIC_TRENDS"
	IntentOpenQuestion                  = "OPEN_QUESTION"
)

// TemplateIntents maps every intent kind that has a structured Cypher
// template. OPEN_QUESTION is deliberately absent.
var TemplateIntents = map[string]bool{
	IntentAuthorPublicationsRange:      true,
	IntentAuthorLatestPublication:      true,
	IntentAuthorTopVenue:               true,
	IntentAuthorPairSharedPublications: true,
	IntentAuthorTopCoauthors:           true,
	IntentAuthorTopicPublicationCount:  true,
	IntentAuthorTopicExtent:            true,
	IntentAuthorMainResearchAreas:      true,
	IntentAuthorTopicSynergy:           true,
	IntentAuthorInstitutionCollabFreq:  true,
	IntentAuthorTopicPeersAtUofA:       true,
	IntentDepartmentTopicTrends:        true,
}

// TopicIntents maps the template intents that carry a topic slot and
// therefore also trigger the speculative vector search.
var TopicIntents = map[string]bool{
	IntentAuthorTopicPublicationCount: true,
	IntentAuthorTopicExtent:           true,
	IntentAuthorTopicSynergy:          true,
	IntentAuthorTopicPeersAtUofA:      true,
	IntentDepartmentTopicTrends:       true,
}

// AuthorIntentsRequiringAuthor maps the template intents that cannot run
// without a resolved author id. Department trends is department-scoped,
// not author-scoped, so it is excluded.
var AuthorIntentsRequiringAuthor = map[string]bool{}

func init() {
	for k := range TemplateIntents {
		if k != IntentDepartmentTopicTrends {
			AuthorIntentsRequiringAuthor[k] = true
		}
	}
}

// Department holds the department slot from the classifier, which may be a
// single string ("Mechanical Engineering"), a list of strings (after
// umbrella expansion), or absent.
type Department struct {
	Name  string
	Names []string
}

// IsEmpty reports whether no department value is set.
func (d Department) IsEmpty() bool {
	return d.Name == "" && len(d.Names) == 0
}

// IsList reports whether the value is an explicit list.
func (d Department) IsList() bool {
	return len(d.Names) > 0
}

// Values returns the department names as a slice regardless of shape.
func (d Department) Values() []string {
	if len(d.Names) > 0 {
		return d.Names
	}
	if d.Name != "" {
		return []string{d.Name}
	}
	return nil
}

// UnmarshalJSON accepts null, a JSON string, or a JSON array of strings.
func (d *Department) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*d = Department{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("failed to parse department string: %w", err)
		}
		*d = Department{Name: s}
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("failed to parse department list: %w", err)
		}
		*d = Department{Names: list}
		return nil
	default:
		return fmt.Errorf("department must be a string or list of strings, got %s", string(trimmed))
	}
}

// MarshalJSON mirrors the accepted shapes: null, string, or list.
func (d Department) MarshalJSON() ([]byte, error) {
	if d.IsList() {
		return json.Marshal(d.Names)
	}
	if d.Name != "" {
		return json.Marshal(d.Name)
	}
	return []byte("null"), nil
}

// Intent is the slot-filled classification of a user question. It is both
// the classifier output and, enriched with AuthorUserId by the resolver,
// the input handed to the Cypher generator.
type Intent struct {
	Intent       string     `json:"intent"`
	Author       string     `json:"author"`
	SecondAuthor string     `json:"second_author"`
	Topic        string     `json:"topic"`
	Department   Department `json:"department"`
	StartYear    *int       `json:"start_year"`
	EndYear      *int       `json:"end_year"`
	Scope        string     `json:"scope"`
	AuthorUserId string     `json:"authorUserId,omitempty"`
}

// NewOpenQuestionIntent returns the safe fallback used when the classifier
// output cannot be parsed.
func NewOpenQuestionIntent() Intent {
	return Intent{Intent: IntentOpenQuestion}
}

// IsTemplate reports whether the intent maps to a structured template.
func (i Intent) IsTemplate() bool {
	return TemplateIntents[i.Intent]
}

// IsTopic reports whether the intent carries a topic slot.
func (i Intent) IsTopic() bool {
	return TopicIntents[i.Intent]
}
