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

// HasRequiredSlots reports whether the intent carries everything its
// template needs. Author-scoped templates require a resolved authorUserId
// (a bare name is not enough), pair queries additionally require a second
// author name, and department trends require a department value.
func HasRequiredSlots(intent datatypes.Intent) bool {
	if datatypes.AuthorIntentsRequiringAuthor[intent.Intent] && intent.AuthorUserId == "" {
		return false
	}
	if intent.Intent == datatypes.IntentAuthorPairSharedPublications {
		if intent.AuthorUserId == "" || strings.TrimSpace(intent.SecondAuthor) == "" {
			return false
		}
	}
	if intent.Intent == datatypes.IntentDepartmentTopicTrends && intent.Department.IsEmpty() {
		return false
	}
	return true
}

// PromoteAfterExactResolution upgrades a generic OPEN_QUESTION to the
// publications-range template once an author has been resolved exactly.
func PromoteAfterExactResolution(intent datatypes.Intent) datatypes.Intent {
	if intent.Intent == datatypes.IntentOpenQuestion {
		intent.Intent = datatypes.IntentAuthorPublicationsRange
	}
	return intent
}

// PromoteAfterSelection upgrades a generic OPEN_QUESTION to the research
// areas template when the user explicitly selected a researcher.
func PromoteAfterSelection(intent datatypes.Intent) datatypes.Intent {
	if intent.Intent == datatypes.IntentOpenQuestion {
		intent.Intent = datatypes.IntentAuthorMainResearchAreas
	}
	return intent
}
