// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point for the storyline engine backend server.
//
// This application sets up and runs a web server using the Gin framework. It
// provides a REST API for submitting videos for analysis, polling analysis
// status, matching user narratives against analyzed scenes, and cutting
// storyline clips. The server is instrumented with OpenTelemetry for
// logging, tracing, and metrics.
//
// The main function initializes the application's configuration, sets up
// logging and telemetry, and initializes the application state, including
// clients for Google Cloud services and the ML analyzer sidecars. It also
// starts the Pub/Sub listener that analyzes videos dropped into the upload
// bucket, and handles graceful shutdown.
//
// Functions:
//   - main: The main entry point of the application. It sets up the server,
//     configures routes, initializes services, and handles graceful shutdown.
//   - AnalysisRouter: Sets up the routes for submitting an analysis task and
//     polling its status.
//   - VideoRouter: Sets up the route for listing completed analyses from the
//     warehouse.
//   - MatchRouter: Sets up the routes for the full and the simple storyline
//     matchers.
//   - ClipRouter: Sets up the route that renders a storyline clip and
//     returns a signed streaming URL for it.
//   - DescribeRouter: Sets up the route that captions the representative
//     frame of each requested scene.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/telemetry"
)

// main is the primary entry point for the application.
// It orchestrates the setup of logging, telemetry, configuration, cloud
// services, the web server, API routes, and background listeners. It also
// handles graceful shutdown of the server upon receiving an interrupt signal.
func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	// The root context for the application. Analysis tasks submitted over
	// the API run on it, so cancelling it stops in-flight pipelines too.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()

	// Trace incoming requests. This will automatically create spans for
	// each request.
	r.Use(otelgin.Middleware("storyline-engine-server"))

	// cors.Default() is permissive and suits development; production
	// deployments front this service with their own policy.
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		AnalysisRouter(apiV1)
		VideoRouter(apiV1)
		MatchRouter(apiV1)
		ClipRouter(apiV1)
		DescribeRouter(apiV1)
		Dashboard(apiV1)
	}

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block the
	// main thread.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Block until an interrupt is received, then give active requests five
	// seconds to complete.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// analysisRequest is the body of POST /analysis.
type analysisRequest struct {
	VideoPath     string `json:"video_path"`
	NumStorylines int    `json:"num_storylines"`
}

// AnalysisRouter sets up the API routes for the analysis pipeline.
//
// This function defines the following endpoints:
//   - POST /analysis: Accepts a video for analysis and returns the task id
//     immediately; the pipeline runs in the background.
//   - GET /analysis/:task_id: Reports the task's status, progress, and,
//     once completed, the full analysis result.
func AnalysisRouter(r *gin.RouterGroup) {
	analysis := r.Group("/analysis")
	{
		analysis.POST("", func(c *gin.Context) {
			var req analysisRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if len(req.VideoPath) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "video_path is required"})
				return
			}
			numStorylines := req.NumStorylines
			if numStorylines <= 0 {
				numStorylines = state.config.Matching.DefaultStorylines
			}

			task := &model.AnalysisTask{
				TaskID:        uuid.New().String(),
				VideoPath:     req.VideoPath,
				NumStorylines: numStorylines,
				SubmittedAt:   time.Now().UTC(),
			}
			// Run on the application context, not the request context, so
			// the pipeline outlives this response.
			state.analysisWorkflow.Submit(state.rootCtx, task)

			c.JSON(http.StatusAccepted, gin.H{
				"task_id": task.TaskID,
				"status":  model.TaskStatusProcessing,
			})
		})

		analysis.GET("/:task_id", func(c *gin.Context) {
			taskState := state.store.GetStatus(c, c.Param("task_id"))
			if taskState.Status == model.TaskStatusNotFound {
				c.JSON(http.StatusNotFound, taskState)
				return
			}
			c.JSON(http.StatusOK, taskState)
		})
	}
}

// VideoRouter sets up the route for browsing completed analyses.
//
// This function defines the following endpoint:
//   - GET /videos: Lists recent analysis summaries from the warehouse.
//     An optional 'video' parameter restricts the list to one source file;
//     'count' caps the number of rows (default 20).
func VideoRouter(r *gin.RouterGroup) {
	videos := r.Group("/videos")
	{
		videos.GET("", func(c *gin.Context) {
			video := c.Query("video")
			count, err := strconv.Atoi(c.DefaultQuery("count", "20"))
			if err != nil {
				count = 20
			}

			var records []*model.AnalysisRecord
			if len(video) > 0 {
				records, err = state.analysisService.ListForVideo(c, video)
			} else {
				records, err = state.analysisService.ListRecent(c, count)
			}
			if err != nil {
				slog.Error("failed to list analyses", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, records)
		})
	}
}

// matchRequest is the body of POST /match.
type matchRequest struct {
	TaskID     string                 `json:"task_id"`
	Storylines []*model.UserStoryline `json:"storylines"`
	Characters []*model.Character     `json:"characters"`
}

// simpleMatchRequest is the body of POST /match/simple.
type simpleMatchRequest struct {
	TaskID string        `json:"task_id"`
	Plots  []*model.Plot `json:"plots"`
}

// MatchRouter sets up the API routes for locating user narratives inside an
// analyzed video.
//
// This function defines the following endpoints:
//   - POST /match: Runs the full matcher (clustering, character and keyword
//     scoring) over a completed task's scenes.
//   - POST /match/simple: Runs the lightweight text/image blend matcher.
//   - GET /match/example and /match/simple/example: Return ready-made
//     request bodies so clients can see the exact shape the matchers expect.
func MatchRouter(r *gin.RouterGroup) {
	match := r.Group("/match")
	{
		match.GET("/example", func(c *gin.Context) {
			c.JSON(http.StatusOK, matchRequest{
				TaskID:     "task id returned by POST /analysis",
				Storylines: []*model.UserStoryline{model.GetExampleUserStoryline()},
				Characters: model.GetExampleCharacters(),
			})
		})

		match.GET("/simple/example", func(c *gin.Context) {
			c.JSON(http.StatusOK, simpleMatchRequest{
				TaskID: "task id returned by POST /analysis",
				Plots:  []*model.Plot{model.GetExamplePlot()},
			})
		})

		match.POST("", func(c *gin.Context) {
			var req matchRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if len(req.Storylines) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "storylines are required"})
				return
			}
			scenes, ok := taskScenes(c, req.TaskID)
			if !ok {
				return
			}

			results, err := state.matcher.MatchScenesToStorylines(c, scenes, req.Storylines, req.Characters)
			if err != nil {
				slog.Error("storyline matching failed", "task_id", req.TaskID, "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, results)
		})

		match.POST("/simple", func(c *gin.Context) {
			var req simpleMatchRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if len(req.Plots) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "plots are required"})
				return
			}
			scenes, ok := taskScenes(c, req.TaskID)
			if !ok {
				return
			}

			results, err := state.simpleMatcher.MatchScenesToPlots(c, scenes, req.Plots)
			if err != nil {
				slog.Error("simple matching failed", "task_id", req.TaskID, "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, results)
		})
	}
}

// cutRequest is the body of POST /cut.
type cutRequest struct {
	TaskID    string                     `json:"task_id"`
	VideoPath string                     `json:"video_path"`
	Storyline *model.StorylineWithScenes `json:"storyline"`
}

// ClipRouter sets up the route for cutting storyline clips.
//
// This function defines the following endpoint:
//   - POST /cut: Selects scenes from a matched storyline, renders them into
//     one clip, uploads it, and returns a time-limited streaming URL.
func ClipRouter(r *gin.RouterGroup) {
	cut := r.Group("/cut")
	{
		cut.POST("", func(c *gin.Context) {
			var req cutRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if req.Storyline == nil || len(req.VideoPath) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "video_path and storyline are required"})
				return
			}

			url, err := state.cutWorkflow.CutStoryline(c, req.TaskID, req.VideoPath, req.Storyline)
			if err != nil {
				slog.Error("failed to cut storyline clip", "task_id", req.TaskID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render clip"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
		})
	}
}

// describeRequest is the body of POST /describe.
type describeRequest struct {
	TaskID    string   `json:"task_id"`
	SceneIDs  []string `json:"scene_ids"`
	MaxScenes int      `json:"max_scenes"`
}

// DescribeRouter sets up the route for natural-language scene descriptions.
//
// This function defines the following endpoint:
//   - POST /describe: Captions the representative frame of each requested
//     scene through the caption model and returns the captions keyed by
//     scene id. Scenes without stored frames are omitted.
func DescribeRouter(r *gin.RouterGroup) {
	describe := r.Group("/describe")
	{
		describe.POST("", func(c *gin.Context) {
			if state.descriptions == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no caption model is configured"})
				return
			}
			var req describeRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			scenes, ok := taskScenes(c, req.TaskID)
			if !ok {
				return
			}

			descriptions := state.descriptions.DescribeScenes(c, scenes, req.SceneIDs, req.MaxScenes)
			c.JSON(http.StatusOK, gin.H{"descriptions": descriptions})
		})
	}
}

// taskScenes loads the scenes of a completed analysis for the matchers.
// Storylines share connective scenes, so the flattened list is deduplicated
// by scene id and returned in timeline order. On failure the HTTP error has
// already been written and ok is false.
func taskScenes(c *gin.Context, taskID string) (scenes []*model.Scene, ok bool) {
	taskState := state.store.GetStatus(c, taskID)
	if taskState.Status == model.TaskStatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return nil, false
	}
	if taskState.Status != model.TaskStatusCompleted || taskState.Result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "analysis is not complete"})
		return nil, false
	}

	seen := make(map[string]bool)
	for _, storyline := range taskState.Result.Storylines {
		for _, scene := range storyline.Scenes {
			if seen[scene.ID] {
				continue
			}
			seen[scene.ID] = true
			scenes = append(scenes, scene)
		}
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].StartTime < scenes[j].StartTime
	})
	return scenes, true
}
