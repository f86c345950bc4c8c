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
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
)

// DebugLogger appends frontend debug entries to a JSONL file and serves
// the file back for inspection. Appends are serialized under a mutex; the
// orchestrator is the only writer.
type DebugLogger struct {
	mu   sync.Mutex
	path string
}

// NewDebugLogger creates a logger writing to path. The file is created on
// first append.
func NewDebugLogger(path string) *DebugLogger {
	return &DebugLogger{path: path}
}

// Append writes one entry as a single JSON line.
func (d *DebugLogger) Append(entry datatypes.DebugLogEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}

// ReadAll returns the raw JSONL content, or empty when nothing has been
// logged yet.
func (d *DebugLogger) ReadAll() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// HandleLogDebug accepts a debug entry from the frontend and appends it to
// the debug log file.
func HandleLogDebug(logger *DebugLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var entry datatypes.DebugLogEntry
		if err := c.BindJSON(&entry); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if entry.Timestamp == "" {
			entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
		}
		if err := logger.Append(entry); err != nil {
			slog.Error("Failed to append debug log entry", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write debug log"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "logged"})
	}
}

// HandleGetDebugLog serves the accumulated debug log as plain text.
func HandleGetDebugLog(logger *DebugLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := logger.ReadAll()
		if err != nil {
			slog.Error("Failed to read debug log", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read debug log"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
	}
}
