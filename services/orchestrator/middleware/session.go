// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides the cookie session layer that carries the
// per-browser conversation history.
package middleware

import (
	"encoding/json"
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
)

// SessionName is the cookie name the store writes.
const SessionName = "scholarlink_session"

// historyKey is the session key the conversation history lives under. The
// history is stored as a JSON string so the cookie codec never has to
// register custom types.
const historyKey = "chat_history"

// NewSessionMiddleware builds the cookie-backed session middleware.
//
// # Inputs
//   - secret: the cookie signing key. Must not be empty.
//
// # Outputs
//   - gin.HandlerFunc: the sessions middleware to install on the router.
func NewSessionMiddleware(secret string) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   60 * 60 * 8,
		HttpOnly: true,
	})
	return sessions.Sessions(SessionName, store)
}

// LoadHistory reads the conversation history out of the request session.
// A missing or corrupt value yields an empty history rather than an error;
// the session is a cache, not a source of truth.
func LoadHistory(c *gin.Context) []datatypes.Turn {
	session := sessions.Default(c)
	raw, ok := session.Get(historyKey).(string)
	if !ok || raw == "" {
		return nil
	}
	var history []datatypes.Turn
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		slog.Warn("Discarding corrupt session history", "error", err)
		return nil
	}
	return history
}

// SaveHistory writes the trimmed conversation history back into the
// session cookie.
func SaveHistory(c *gin.Context, history []datatypes.Turn) error {
	raw, err := json.Marshal(datatypes.TrimHistory(history))
	if err != nil {
		return err
	}
	session := sessions.Default(c)
	session.Set(historyKey, string(raw))
	return session.Save()
}
