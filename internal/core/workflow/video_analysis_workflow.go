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

// Package workflow defines the high-level orchestrations of the storyline
// engine, combining commands into coherent pipelines. This file implements
// the video analysis workflow: the sequence that turns a submitted video
// into a persisted VideoAnalysisResult.
package workflow

import (
	"context"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/cloud"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/commands"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
)

// VideoAnalysisWorkflow orchestrates the full analysis of one video. It is
// structured as a Chain of Responsibility (cor.Chain) that validates the
// file, probes it, segments it into scenes, enriches every scene with audio
// and frame analysis, groups the scenes into storylines, and persists the
// assembled result.
//
// The workflow serves two entry points: tasks submitted through the API
// (Submit) and tasks triggered by a video landing in GCS (the listener
// chain built by NewTriggeredAnalysisPipeline).
type VideoAnalysisWorkflow struct {
	cor.BaseCommand
	reporter status.Reporter
	chain    cor.Chain
}

// Execute runs the analysis chain. The input parameter must hold the
// *model.AnalysisTask to process.
func (w *VideoAnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Submit starts the analysis of a task in the background and returns
// immediately. Callers poll the status store for progress; nothing about
// the run is reported through the return path.
func (w *VideoAnalysisWorkflow) Submit(ctx context.Context, task *model.AnalysisTask) {
	w.reporter.SetStatus(task.TaskID, model.TaskStatusProcessing, "Task accepted", 0.0)

	go func() {
		chainCtx := cor.NewBaseContext()
		chainCtx.SetContext(ctx)
		chainCtx.SetTaskID(task.TaskID)
		chainCtx.Add(cor.CtxIn, task)
		// Close removes any temp files the chain created.
		defer chainCtx.Close()

		w.Execute(chainCtx)

		if chainCtx.HasErrors() {
			for name, err := range chainCtx.GetErrors() {
				slog.Error("analysis chain failed",
					"task_id", task.TaskID, "command", name, "error", err)
			}
		}
	}()
}

// initializeChain builds the sequence of commands that make up the
// analysis pipeline. Each command is an atomic unit of work; the output of
// one serves as the input of the next.
func (w *VideoAnalysisWorkflow) initializeChain(
	set *analyzers.Set,
	checkpoints *status.CheckpointStore,
	grouper *services.StorylineGrouper,
	analysisService *services.AnalysisService,
	withTrigger func(out cor.Chain),
) {
	out := cor.NewBaseChain(w.GetName())

	// Trigger-specific commands (notification parsing, GCS fetch) go first
	// when this chain serves the Pub/Sub listener.
	if withTrigger != nil {
		withTrigger(out)
	}

	// Step 1: Confirm the submitted path points at a readable video before
	// anything expensive runs. Failure here is fatal for the task.
	out.AddCommand(commands.NewValidateVideo("validate-video", w.reporter))

	// Step 2: Probe the technical properties of the video. Failure degrades
	// to an empty metadata record.
	out.AddCommand(commands.NewMetadataExtraction("extract-metadata", set.Metadata, w.reporter))

	// Step 3: Split the video into scenes. A video with no detectable
	// scenes ends the task with an error.
	out.AddCommand(commands.NewSceneSegmentation("segment-scenes", set.Segmenter, w.reporter))

	// Steps 4 and 5: Enrich every scene. Both stages isolate per-scene
	// failures and checkpoint finished scenes for restart recovery.
	out.AddCommand(commands.NewSceneAudioAnalysis("analyze-scene-audio", set.Audio, w.reporter, checkpoints))
	out.AddCommand(commands.NewSceneFrameAnalysis("analyze-scene-frames", set.Frames, w.reporter, checkpoints))

	// Step 6: Group the enriched scenes into storylines by temporal
	// proximity to the longest scenes.
	out.AddCommand(commands.NewStorylineGrouping("group-storylines", grouper, w.reporter))

	// Step 7: Assemble and persist the result, which completes the task.
	out.AddCommand(commands.NewResultAssembly("assemble-result", w.reporter))

	// Step 8: Record the queryable summary row in BigQuery. The result is
	// already saved, so a catalog failure does not undo the task. Local
	// deployments run without a catalog and skip this step.
	if analysisService != nil {
		out.AddCommand(commands.NewAnalysisPersistToBigQuery("write-to-bigquery", analysisService))
	}

	w.chain = out
}

// NewVideoAnalysisPipeline is the constructor for the API-facing analysis
// workflow. The analyzers in set do the stage work; everything else is
// reporting and persistence.
func NewVideoAnalysisPipeline(
	set *analyzers.Set,
	reporter status.Reporter,
	checkpoints *status.CheckpointStore,
	grouper *services.StorylineGrouper,
	analysisService *services.AnalysisService,
) *VideoAnalysisWorkflow {
	w := &VideoAnalysisWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-analysis-workflow"),
		reporter:    reporter,
	}
	w.initializeChain(set, checkpoints, grouper, analysisService, nil)
	return w
}

// NewTriggeredAnalysisPipeline is the constructor for the listener-facing
// workflow: the same analysis chain prefixed with notification parsing and
// a GCS fetch, so videos dropped in the upload bucket analyze themselves.
func NewTriggeredAnalysisPipeline(
	config *cloud.Config,
	storageClient *storage.Client,
	set *analyzers.Set,
	reporter status.Reporter,
	checkpoints *status.CheckpointStore,
	grouper *services.StorylineGrouper,
	analysisService *services.AnalysisService,
) *VideoAnalysisWorkflow {
	w := &VideoAnalysisWorkflow{
		BaseCommand: *cor.NewBaseCommand("triggered-analysis-workflow"),
		reporter:    reporter,
	}
	w.initializeChain(set, checkpoints, grouper, analysisService, func(out cor.Chain) {
		out.AddCommand(commands.NewAnalysisTrigger(
			"parse-upload-notification",
			config.Storage.VideoDir,
			config.Matching.DefaultStorylines))
		out.AddCommand(commands.NewVideoFetch("fetch-source-video", storageClient))
	})
	return w
}
