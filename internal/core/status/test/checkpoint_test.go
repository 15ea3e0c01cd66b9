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

package status_test

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckpoints(t *testing.T) *status.CheckpointStore {
	t.Helper()
	blobs, err := status.NewFileBlobStore(t.TempDir())
	require.NoError(t, err)
	return status.NewCheckpointStore(blobs)
}

// TestCheckpointRoundTrip verifies a stage payload survives a save and
// load against the same composite key.
func TestCheckpointRoundTrip(t *testing.T) {
	checkpoints := newCheckpoints(t)
	ctx := context.Background()
	key := status.CheckpointKey{TaskID: "task-1", SceneID: "scene_3", Stage: status.StageAudioAnalysis}

	saved := &model.AudioAnalysisResult{
		Transcript: "We have to turn back now.",
		Language:   "en",
	}
	require.NoError(t, checkpoints.Save(ctx, key, saved))

	var loaded model.AudioAnalysisResult
	found, err := checkpoints.Load(ctx, key, &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, saved.Transcript, loaded.Transcript)
	assert.Equal(t, "en", loaded.Language)
}

// TestCheckpointMissing verifies that an absent checkpoint is reported as
// not-found, not as an error.
func TestCheckpointMissing(t *testing.T) {
	checkpoints := newCheckpoints(t)
	key := status.CheckpointKey{TaskID: "task-1", SceneID: "scene_1", Stage: status.StageFrameAnalysis}

	var out model.FrameAnalysisResult
	found, err := checkpoints.Load(context.Background(), key, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

// TestCheckpointKeyIsolation verifies that the same scene under different
// stages, and different scenes under the same stage, never collide.
func TestCheckpointKeyIsolation(t *testing.T) {
	checkpoints := newCheckpoints(t)
	ctx := context.Background()

	audioKey := status.CheckpointKey{TaskID: "task-1", SceneID: "scene_1", Stage: status.StageAudioAnalysis}
	frameKey := status.CheckpointKey{TaskID: "task-1", SceneID: "scene_1", Stage: status.StageFrameAnalysis}
	otherScene := status.CheckpointKey{TaskID: "task-1", SceneID: "scene_2", Stage: status.StageAudioAnalysis}

	require.NoError(t, checkpoints.Save(ctx, audioKey, &model.AudioAnalysisResult{Transcript: "scene one"}))
	require.NoError(t, checkpoints.Save(ctx, frameKey, &model.FrameAnalysisResult{EmbeddingDim: 4}))

	var audio model.AudioAnalysisResult
	found, err := checkpoints.Load(ctx, audioKey, &audio)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "scene one", audio.Transcript)

	var frames model.FrameAnalysisResult
	found, err = checkpoints.Load(ctx, frameKey, &frames)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4, frames.EmbeddingDim)

	found, err = checkpoints.Load(ctx, otherScene, &audio)
	require.NoError(t, err)
	assert.False(t, found)
}

// TestCheckpointOverwrite verifies that re-saving a key replaces the
// previous payload.
func TestCheckpointOverwrite(t *testing.T) {
	checkpoints := newCheckpoints(t)
	ctx := context.Background()
	key := status.CheckpointKey{TaskID: "task-9", SceneID: "scene_1", Stage: status.StageAudioAnalysis}

	require.NoError(t, checkpoints.Save(ctx, key, &model.AudioAnalysisResult{Transcript: "first"}))
	require.NoError(t, checkpoints.Save(ctx, key, &model.AudioAnalysisResult{Transcript: "second"}))

	var out model.AudioAnalysisResult
	found, err := checkpoints.Load(ctx, key, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", out.Transcript)
}
