// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import (
	"strings"

	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
)

// engineeringAliases are the umbrella department spellings that expand to
// the concrete Engineering departments. Matching is case-insensitive on
// the trimmed value.
var engineeringAliases = map[string]bool{
	"engineering":            true,
	"uofa engineering":       true,
	"ualberta engineering":   true,
	"faculty of engineering": true,
	"faculty engineering":    true,
	"engg":                   true,
}

// EngineeringDepartments is the fixed expansion of the Engineering
// umbrella, in catalog order.
var EngineeringDepartments = []string{
	"Electrical and Computer Engineering",
	"Mechanical Engineering",
	"Civil and Environmental Engineering",
	"Chemical and Materials Engineering",
	"Biomedical Engineering",
}

// NormalizeIntent post-processes the raw classifier output. Currently it
// only expands umbrella department values; every other slot passes through
// unchanged. The function is idempotent: an already-expanded list is an
// explicit value and is never touched.
func NormalizeIntent(intent datatypes.Intent) datatypes.Intent {
	intent.Department = normalizeDepartment(intent.Department)
	return intent
}

func normalizeDepartment(dept datatypes.Department) datatypes.Department {
	if dept.IsEmpty() || dept.IsList() {
		return dept
	}
	norm := strings.ToLower(strings.TrimSpace(dept.Name))
	if engineeringAliases[norm] {
		// Copy so callers cannot mutate the catalog constant.
		expanded := make([]string, len(EngineeringDepartments))
		copy(expanded, EngineeringDepartments)
		return datatypes.Department{Names: expanded}
	}
	return dept
}
