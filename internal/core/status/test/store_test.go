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

// Package status_test contains unit tests for the task status store,
// exercising the in-memory lifecycle, the durable result path, and the
// recovery behavior a restarted server depends on.
package status_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, dir string) *status.Store {
	t.Helper()
	blobs, err := status.NewFileBlobStore(dir)
	require.NoError(t, err)
	return status.NewStore(blobs)
}

// TestStatusLifecycle walks a task through the processing states and checks
// that progress never moves backward while processing.
func TestStatusLifecycle(t *testing.T) {
	store := newStore(t, t.TempDir())
	ctx := context.Background()

	store.SetStatus("task-1", model.TaskStatusProcessing, "Validating video file", 0.0)
	state := store.GetStatus(ctx, "task-1")
	assert.Equal(t, model.TaskStatusProcessing, state.Status)
	assert.Equal(t, 0.0, state.Progress)

	store.SetStatus("task-1", model.TaskStatusProcessing, "Analyzing audio", 0.4)
	// A stale update with lower progress must not roll the fraction back.
	store.SetStatus("task-1", model.TaskStatusProcessing, "Analyzing audio", 0.2)
	state = store.GetStatus(ctx, "task-1")
	assert.Equal(t, 0.4, state.Progress)
	assert.Equal(t, "Analyzing audio", state.Message)

	store.SetError("task-1", "Video file not found")
	state = store.GetStatus(ctx, "task-1")
	assert.Equal(t, model.TaskStatusError, state.Status)
	assert.Equal(t, "Video file not found", state.Message)
}

// TestGetStatusUnknownTask verifies that unknown ids resolve to a not_found
// state instead of an error.
func TestGetStatusUnknownTask(t *testing.T) {
	store := newStore(t, t.TempDir())
	state := store.GetStatus(context.Background(), "no-such-task")
	assert.Equal(t, model.TaskStatusNotFound, state.Status)
	assert.Nil(t, state.Result)
}

// TestSaveResultCompletesTask verifies that persisting a result flips the
// task to completed at full progress with the result attached.
func TestSaveResultCompletesTask(t *testing.T) {
	store := newStore(t, t.TempDir())
	ctx := context.Background()

	store.SetStatus("task-2", model.TaskStatusProcessing, "Grouping scenes into storylines", 0.8)
	result := &model.VideoAnalysisResult{
		VideoFileName: "regatta.mp4",
		Duration:      120.0,
		TotalScenes:   8,
		Storylines:    []*model.Storyline{{ID: "storyline_1", Name: "Storyline 1"}},
	}
	require.NoError(t, store.SaveResult(ctx, "task-2", result))

	state := store.GetStatus(ctx, "task-2")
	assert.Equal(t, model.TaskStatusCompleted, state.Status)
	assert.Equal(t, 1.0, state.Progress)
	require.NotNil(t, state.Result)
	assert.Equal(t, "regatta.mp4", state.Result.VideoFileName)
	assert.Len(t, state.Result.Storylines, 1)
}

// TestRestartRecovery simulates a process restart: a second store over the
// same blob directory must report tasks completed by the first one, both
// after an Init scan and through the lazy read-through path.
func TestRestartRecovery(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := newStore(t, dir)
	result := &model.VideoAnalysisResult{VideoFileName: "regatta.mp4", TotalScenes: 5}
	require.NoError(t, first.SaveResult(ctx, "task-3", result))

	// Fresh store with an explicit startup scan.
	second := newStore(t, dir)
	require.NoError(t, second.Init(ctx))
	state := second.GetStatus(ctx, "task-3")
	assert.Equal(t, model.TaskStatusCompleted, state.Status)
	require.NotNil(t, state.Result)
	assert.Equal(t, "regatta.mp4", state.Result.VideoFileName)

	// Fresh store with no Init at all: the result is still found lazily.
	third := newStore(t, dir)
	state = third.GetStatus(ctx, "task-3")
	assert.Equal(t, model.TaskStatusCompleted, state.Status)
	require.NotNil(t, state.Result)
	assert.Equal(t, 5, state.Result.TotalScenes)
}

// TestCountsGroupsTasksByStatus verifies the per-state breakdown the stats
// endpoint reports.
func TestCountsGroupsTasksByStatus(t *testing.T) {
	store := newStore(t, t.TempDir())
	ctx := context.Background()

	store.SetStatus("task-a", model.TaskStatusProcessing, "Detecting scene boundaries", 0.2)
	store.SetStatus("task-b", model.TaskStatusProcessing, "Analyzing audio", 0.4)
	store.SetError("task-c", "Video file not found")
	require.NoError(t, store.SaveResult(ctx, "task-d", &model.VideoAnalysisResult{VideoFileName: "regatta.mp4"}))

	counts := store.Counts()
	assert.Equal(t, 2, counts[model.TaskStatusProcessing])
	assert.Equal(t, 1, counts[model.TaskStatusError])
	assert.Equal(t, 1, counts[model.TaskStatusCompleted])
}

// TestGetStatusSnapshotsUnderConcurrentWrites covers the read-through
// fallback taken when a recovered task's persisted blob no longer decodes:
// the state returned there must be a snapshot taken under the store's
// mutex, never a live reference racing with SetStatus.
func TestGetStatusSnapshotsUnderConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	blobs, err := status.NewFileBlobStore(dir)
	require.NoError(t, err)
	require.NoError(t, blobs.Write(ctx, "results/task-6.json", []byte("{not json")))

	store := status.NewStore(blobs)
	require.NoError(t, store.Init(ctx))

	// Hydration fails on the corrupt blob, so GetStatus falls back to the
	// in-memory entry registered by Init.
	state := store.GetStatus(ctx, "task-6")
	assert.Equal(t, model.TaskStatusCompleted, state.Status)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.SetStatus("task-6", model.TaskStatusProcessing, "Reprocessing", float64(j)/50)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got := store.GetStatus(ctx, "task-6")
				assert.Equal(t, "task-6", got.TaskID)
			}
		}()
	}
	wg.Wait()
}

// TestGetStatusReturnsCopy guards against callers mutating store internals
// through the returned state.
func TestGetStatusReturnsCopy(t *testing.T) {
	store := newStore(t, t.TempDir())
	ctx := context.Background()

	store.SetStatus("task-4", model.TaskStatusProcessing, "Extracting metadata", 0.1)
	state := store.GetStatus(ctx, "task-4")
	state.Progress = 0.99
	state.Message = "mutated"

	fresh := store.GetStatus(ctx, "task-4")
	assert.Equal(t, 0.1, fresh.Progress)
	assert.Equal(t, "Extracting metadata", fresh.Message)
}
