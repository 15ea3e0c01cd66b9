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

// Package workflow_test contains hermetic tests for the analysis workflow.
// External dependencies (segmenter, audio and frame sidecars, metadata
// probe) are replaced with function-backed fakes, and status plus
// checkpoint storage runs against a temp directory, so the full chain
// executes without ffmpeg or any cloud service.
package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-storyline-engine/internal/testutil"
)

// fiveScenes is a plausible segmentation of a short video.
var fiveScenes = []model.TimeSpan{
	{Start: 0, End: 12.5},
	{Start: 12.5, End: 30},
	{Start: 30, End: 41},
	{Start: 41, End: 55},
	{Start: 55, End: 72},
}

func happyAnalyzers() *analyzers.Set {
	return &analyzers.Set{
		Metadata: &test.FakeMetadataExtractor{
			Fn: func(_ context.Context, path string) (*model.VideoMetadata, error) {
				return &model.VideoMetadata{
					FileName:  "test-feature-001.mp4",
					Duration:  72,
					FrameRate: 24,
					Width:     1920,
					Height:    1080,
					HasAudio:  true,
				}, nil
			},
		},
		Segmenter: &test.FakeSceneSegmenter{
			Fn: func(_ context.Context, _ string) ([]model.TimeSpan, error) {
				return fiveScenes, nil
			},
		},
		Audio: &test.FakeAudioAnalyzer{
			Fn: func(_ context.Context, _ string, start, _ float64) (*model.AudioAnalysisResult, error) {
				return &model.AudioAnalysisResult{
					Transcript: fmt.Sprintf("dialogue starting at %.1f", start),
					Language:   "en",
				}, nil
			},
		},
		Frames: &test.FakeFrameAnalyzer{
			Fn: func(_ context.Context, _ string, _, _ float64) (*model.FrameAnalysisResult, error) {
				return &model.FrameAnalysisResult{
					Embeddings:   [][]float32{{0.5, 0.5, 0.5}},
					EmbeddingDim: 3,
					NumFrames:    1,
				}, nil
			},
		},
	}
}

// newStore builds a status store and checkpoint store over a temp dir.
func newStore(t *testing.T) (*status.Store, *status.CheckpointStore) {
	t.Helper()
	blobs, err := status.NewFileBlobStore(t.TempDir())
	require.NoError(t, err)
	return status.NewStore(blobs), status.NewCheckpointStore(blobs)
}

// runTask executes the workflow chain synchronously for deterministic
// assertions. Submit wraps exactly this in a goroutine.
func runTask(w *workflow.VideoAnalysisWorkflow, task *model.AnalysisTask) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.SetTaskID(task.TaskID)
	chainCtx.Add(cor.CtxIn, task)
	w.Execute(chainCtx)
	chainCtx.Close()
	return chainCtx
}

func TestAnalysisWorkflowCompletes(t *testing.T) {
	store, checkpoints := newStore(t)
	videoPath := test.WriteFakeMP4(t, t.TempDir())

	w := workflow.NewVideoAnalysisPipeline(
		happyAnalyzers(), store, checkpoints,
		services.NewStorylineGrouper(services.DefaultProximityRadiusPercent), nil)

	task := &model.AnalysisTask{TaskID: "task-complete", VideoPath: videoPath, NumStorylines: 3}
	chainCtx := runTask(w, task)
	assert.False(t, chainCtx.HasErrors())

	state := store.GetStatus(context.Background(), task.TaskID)
	require.Equal(t, model.TaskStatusCompleted, state.Status)
	assert.Equal(t, 1.0, state.Progress)
	require.NotNil(t, state.Result)
	assert.Equal(t, 5, state.Result.TotalScenes)
	assert.Equal(t, 72.0, state.Result.Duration)
	assert.NotEmpty(t, state.Result.Storylines)
	require.NotNil(t, state.Result.Metadata)
	assert.Equal(t, 1920, state.Result.Metadata.Width)

	// Every scene got both enrichments.
	for _, storyline := range state.Result.Storylines {
		for _, scene := range storyline.Scenes {
			assert.NotNil(t, scene.AudioAnalysis, "scene %s missing audio", scene.ID)
			assert.NotNil(t, scene.FrameAnalysis, "scene %s missing frames", scene.ID)
		}
	}
}

func TestSceneFailureIsIsolated(t *testing.T) {
	store, checkpoints := newStore(t)
	videoPath := test.WriteFakeMP4(t, t.TempDir())

	set := happyAnalyzers()
	set.Audio = &test.FakeAudioAnalyzer{
		Fn: func(_ context.Context, _ string, start, _ float64) (*model.AudioAnalysisResult, error) {
			// The third scene starts at 30s.
			if start == 30 {
				return nil, errors.New("transcription backend unavailable")
			}
			return &model.AudioAnalysisResult{Transcript: "ok", Language: "en"}, nil
		},
	}

	w := workflow.NewVideoAnalysisPipeline(
		set, store, checkpoints,
		services.NewStorylineGrouper(services.DefaultProximityRadiusPercent), nil)

	task := &model.AnalysisTask{TaskID: "task-isolated", VideoPath: videoPath, NumStorylines: 2}
	chainCtx := runTask(w, task)
	assert.False(t, chainCtx.HasErrors())

	state := store.GetStatus(context.Background(), task.TaskID)
	require.Equal(t, model.TaskStatusCompleted, state.Status)

	// The failing scene stays in the result but carries no audio
	// analysis; every other scene keeps its transcript.
	seen := make(map[string]*model.Scene)
	for _, storyline := range state.Result.Storylines {
		for _, scene := range storyline.Scenes {
			seen[scene.ID] = scene
		}
	}
	scene3, ok := seen["scene_3"]
	require.True(t, ok)
	assert.Nil(t, scene3.AudioAnalysis)
	for id, scene := range seen {
		if id == "scene_3" {
			continue
		}
		require.NotNil(t, scene.AudioAnalysis, "scene %s lost its audio analysis", id)
		assert.Equal(t, "ok", scene.AudioAnalysis.Transcript)
	}
}

func TestNoScenesIsFatal(t *testing.T) {
	store, checkpoints := newStore(t)
	videoPath := test.WriteFakeMP4(t, t.TempDir())

	set := happyAnalyzers()
	set.Segmenter = &test.FakeSceneSegmenter{
		Fn: func(_ context.Context, _ string) ([]model.TimeSpan, error) {
			return nil, nil
		},
	}

	w := workflow.NewVideoAnalysisPipeline(
		set, store, checkpoints,
		services.NewStorylineGrouper(services.DefaultProximityRadiusPercent), nil)

	task := &model.AnalysisTask{TaskID: "task-no-scenes", VideoPath: videoPath, NumStorylines: 3}
	chainCtx := runTask(w, task)
	assert.True(t, chainCtx.HasErrors())

	state := store.GetStatus(context.Background(), task.TaskID)
	assert.Equal(t, model.TaskStatusError, state.Status)
	assert.Nil(t, state.Result)
}

func TestUnreadableVideoIsFatal(t *testing.T) {
	store, checkpoints := newStore(t)

	w := workflow.NewVideoAnalysisPipeline(
		happyAnalyzers(), store, checkpoints,
		services.NewStorylineGrouper(services.DefaultProximityRadiusPercent), nil)

	task := &model.AnalysisTask{TaskID: "task-unreadable", VideoPath: "/nonexistent/video.mp4", NumStorylines: 3}
	chainCtx := runTask(w, task)
	assert.True(t, chainCtx.HasErrors())

	state := store.GetStatus(context.Background(), task.TaskID)
	assert.Equal(t, model.TaskStatusError, state.Status)
}

func TestMetadataFailureDegrades(t *testing.T) {
	store, checkpoints := newStore(t)
	videoPath := test.WriteFakeMP4(t, t.TempDir())

	set := happyAnalyzers()
	set.Metadata = &test.FakeMetadataExtractor{
		Fn: func(_ context.Context, _ string) (*model.VideoMetadata, error) {
			return nil, errors.New("ffprobe exploded")
		},
	}

	w := workflow.NewVideoAnalysisPipeline(
		set, store, checkpoints,
		services.NewStorylineGrouper(services.DefaultProximityRadiusPercent), nil)

	task := &model.AnalysisTask{TaskID: "task-degraded-meta", VideoPath: videoPath, NumStorylines: 3}
	chainCtx := runTask(w, task)
	assert.False(t, chainCtx.HasErrors())

	state := store.GetStatus(context.Background(), task.TaskID)
	require.Equal(t, model.TaskStatusCompleted, state.Status)
	// Duration falls back to the last scene boundary.
	assert.Equal(t, 72.0, state.Result.Duration)
}

func TestCheckpointsSkipFinishedScenesOnRerun(t *testing.T) {
	store, checkpoints := newStore(t)
	videoPath := test.WriteFakeMP4(t, t.TempDir())

	set := happyAnalyzers()
	audio := set.Audio.(*test.FakeAudioAnalyzer)
	frames := set.Frames.(*test.FakeFrameAnalyzer)

	w := workflow.NewVideoAnalysisPipeline(
		set, store, checkpoints,
		services.NewStorylineGrouper(services.DefaultProximityRadiusPercent), nil)

	task := &model.AnalysisTask{TaskID: "task-rerun", VideoPath: videoPath, NumStorylines: 3}
	runTask(w, task)
	require.Equal(t, 5, audio.Calls())
	require.Equal(t, 5, frames.Calls())

	// A rerun of the same task restores every scene from checkpoints.
	runTask(w, task)
	assert.Equal(t, 5, audio.Calls())
	assert.Equal(t, 5, frames.Calls())
}

func TestProgressNeverRegresses(t *testing.T) {
	reporter := test.NewRecordingReporter()
	blobs, err := status.NewFileBlobStore(t.TempDir())
	require.NoError(t, err)
	checkpoints := status.NewCheckpointStore(blobs)
	videoPath := test.WriteFakeMP4(t, t.TempDir())

	w := workflow.NewVideoAnalysisPipeline(
		happyAnalyzers(), reporter, checkpoints,
		services.NewStorylineGrouper(services.DefaultProximityRadiusPercent), nil)

	task := &model.AnalysisTask{TaskID: "task-progress", VideoPath: videoPath, NumStorylines: 3}
	runTask(w, task)

	updates := reporter.Snapshot()
	require.NotEmpty(t, updates)
	last := 0.0
	for _, u := range updates {
		assert.GreaterOrEqual(t, u.Progress, last,
			"progress moved backward at %q", u.Message)
		last = u.Progress
	}
	assert.Equal(t, 1.0, updates[len(updates)-1].Progress)
}
