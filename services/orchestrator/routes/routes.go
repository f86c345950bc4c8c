// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/scholarlink/services/graph"
	"github.com/AleutianAI/scholarlink/services/orchestrator/handlers"
)

// SetupRoutes installs the full HTTP surface on the router.
func SetupRoutes(router *gin.Engine, answerer handlers.QueryAnswerer, graphClient graph.Client,
	debugLogger *handlers.DebugLogger, staticDir string) {

	router.GET("/health", handlers.HealthCheck(graphClient))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if staticDir != "" {
		router.StaticFS("/ui", http.Dir(staticDir))
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/ui/index.html")
		})
	}

	api := router.Group("/api")
	{
		api.POST("/query", handlers.HandleQuery(answerer))
		api.POST("/search-researchers", handlers.HandleSearchResearchers(graphClient))
		api.POST("/researcher-summary", handlers.HandleResearcherSummary(graphClient))
		api.POST("/log-debug", handlers.HandleLogDebug(debugLogger))
		api.GET("/debug-log", handlers.HandleGetDebugLog(debugLogger))
	}
}
