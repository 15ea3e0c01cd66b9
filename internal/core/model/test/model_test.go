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

// Package model_test contains unit tests for the data models defined in the
// model package. This file tests the constructors for scenes and the
// persistent analysis record.
package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestNewScene verifies that scene ids follow the one-based "scene_N"
// convention and that duration is derived from the segmenter span.
func TestNewScene(t *testing.T) {
	scene := model.NewScene(1, model.TimeSpan{Start: 2.5, End: 10.0})

	assert.Equal(t, "scene_1", scene.ID)
	assert.Equal(t, 2.5, scene.StartTime)
	assert.Equal(t, 10.0, scene.EndTime)
	assert.InDelta(t, 7.5, scene.Duration, 1e-9)
	// A freshly segmented scene has no analysis results yet.
	assert.Nil(t, scene.AudioAnalysis)
	assert.Nil(t, scene.FrameAnalysis)
	assert.Equal(t, "", scene.Transcript())
}

// TestSceneTranscript verifies the transcript accessor reads through the
// audio analysis when one is present.
func TestSceneTranscript(t *testing.T) {
	scene := model.GetExampleScene()
	assert.Contains(t, scene.Transcript(), "storm")
}

// TestNewAnalysisRecord tests the constructor for the BigQuery row. It
// verifies that the ID is a deterministic UUIDv5 hash of the task id, that
// the summary fields are copied from the result, and that the completion
// timestamp is set to the current time.
func TestNewAnalysisRecord(t *testing.T) {
	taskID := "2b1c9a34-7e15-4f7e-9a72-0a8a5d0a1a11"
	result := &model.VideoAnalysisResult{
		VideoFileName: "regatta.mp4",
		Duration:      184.2,
		TotalScenes:   12,
		Storylines:    []*model.Storyline{{ID: "storyline_1"}, {ID: "storyline_2"}},
		Timestamp:     time.Now(),
		Metadata:      &model.AnalysisMetadata{AnalysisTimeSeconds: 42.7},
	}

	record := model.NewAnalysisRecord(taskID, result)

	// The record id must be the UUIDv5 hash of the task id in the URL
	// namespace, so inserts are idempotent per task.
	expectedID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(taskID))
	assert.Equal(t, expectedID.String(), record.ID)
	assert.Equal(t, taskID, record.TaskID)
	assert.Equal(t, "regatta.mp4", record.VideoFileName)
	assert.Equal(t, 12, record.TotalScenes)
	assert.Equal(t, 2, record.StorylineCount)
	assert.InDelta(t, 42.7, record.AnalysisTimeSeconds, 1e-9)
	assert.WithinDuration(t, time.Now(), record.CompletedAt, time.Second)

	again := model.NewAnalysisRecord(taskID, result)
	assert.Equal(t, record.ID, again.ID)
}
