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

// Message roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryWindow is the maximum number of turns (5 Q&A pairs) kept in the
// session and replayed to the LLM.
const HistoryWindow = 10

// Turn is a single message in the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TrimHistory returns the most recent HistoryWindow turns. The input slice
// is not modified.
func TrimHistory(history []Turn) []Turn {
	if len(history) <= HistoryWindow {
		return history
	}
	return history[len(history)-HistoryWindow:]
}

// AppendExchange appends a user question and the assistant answer to the
// history and trims it to the window.
func AppendExchange(history []Turn, question, answer string) []Turn {
	history = append(history, Turn{Role: RoleUser, Content: question})
	history = append(history, Turn{Role: RoleAssistant, Content: answer})
	return TrimHistory(history)
}
