// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prompts embeds and serves the system prompt templates used by
// the pipeline. Templates are compiled into the binary; a missing or empty
// template is a startup error, never a runtime one.
package prompts

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Prompt names. Each maps to templates/<name>.txt.
const (
	IntentPrompt            = "intent_prompt"
	CypherPrompt            = "cypher_prompt"
	AnswerPrompt            = "answer_prompt"
	AuthorDiscoveryPrompt   = "author_discovery_prompt"
	FinalAuthorAnswerPrompt = "final_author_answer_prompt"
	SemanticReaskPrompt     = "semantic_reask_prompt"
	NameExtractionPrompt    = "name_extraction_prompt"
)

var allPrompts = []string{
	IntentPrompt,
	CypherPrompt,
	AnswerPrompt,
	AuthorDiscoveryPrompt,
	FinalAuthorAnswerPrompt,
	SemanticReaskPrompt,
	NameExtractionPrompt,
}

// Registry holds the loaded prompt texts.
type Registry struct {
	prompts map[string]string
}

// Load reads every embedded template and validates it is non-empty.
func Load() (*Registry, error) {
	loaded := make(map[string]string, len(allPrompts))
	for _, name := range allPrompts {
		data, err := templateFS.ReadFile("templates/" + name + ".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt %q: %w", name, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, fmt.Errorf("prompt %q is empty", name)
		}
		loaded[name] = text
	}
	return &Registry{prompts: loaded}, nil
}

// Get returns the prompt text for the given name. Unknown names return an
// empty string; Load guarantees every known name is present.
func (r *Registry) Get(name string) string {
	return r.prompts[name]
}
