// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main contains the API route definitions for the server. This file
// defines the dashboard endpoint that reports operational statistics.
//
// Functions:
//   - Dashboard: Sets up the "/stats" route group and its handler.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard configures the API route for operational statistics.
//
// This function defines the following endpoint:
//   - GET /stats: Reports the application name and a breakdown of known
//     analysis tasks by lifecycle state (processing, completed, error).
func Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"application": state.config.Application.Name,
				"tasks":       state.store.Counts(),
			})
		})
	}
}
