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

// Package model defines the core data structures for the application.
// This file, `analysis.go`, contains the structs produced by the video
// analysis pipeline: scenes, their per-stage enrichment results, the
// storylines they are grouped into, and the task state machine that the
// status store tracks for every submitted analysis.
package model

import (
	"fmt"
	"time"
)

// TaskStatus enumerates the lifecycle states of an analysis task.
type TaskStatus string

const (
	// TaskStatusProcessing indicates the pipeline is still running.
	TaskStatusProcessing TaskStatus = "processing"
	// TaskStatusCompleted indicates the pipeline finished and a result is available.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusError indicates the pipeline stopped on a fatal error.
	TaskStatusError TaskStatus = "error"
	// TaskStatusNotFound is returned for task ids the store has never seen.
	TaskStatusNotFound TaskStatus = "not_found"
)

// TaskState is the externally visible status of a single analysis task.
// Progress is a fraction in [0.0, 1.0] and only ever moves forward while a
// task is processing. Result is populated once Status is completed.
type TaskState struct {
	TaskID      string               `json:"task_id"`
	Status      TaskStatus           `json:"status"`
	Message     string               `json:"message"`
	Progress    float64              `json:"progress"`
	LastUpdated time.Time            `json:"last_updated"`
	Result      *VideoAnalysisResult `json:"result,omitempty"`
}

// VideoMetadata holds the technical properties probed from a video file
// before any scene analysis starts.
type VideoMetadata struct {
	FileName  string  `json:"file_name"`
	Duration  float64 `json:"duration"`   // Total length in seconds.
	FrameRate float64 `json:"frame_rate"` // Frames per second.
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	HasAudio  bool    `json:"has_audio"`
}

// TranscriptSegment is a time-aligned piece of a scene transcript.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// AudioAnalysisResult is the per-scene output of the audio stage. All fields
// are optional: a scene with no speech, or one whose audio analysis failed in
// a tolerated way, carries an empty result rather than failing the scene.
type AudioAnalysisResult struct {
	Transcript    string               `json:"transcript,omitempty"`
	Language      string               `json:"language,omitempty"`
	Segments      []*TranscriptSegment `json:"segments,omitempty"`
	AudioFeatures map[string]float64   `json:"audio_features,omitempty"` // Numeric descriptors (e.g. energy, tempo).
}

// FrameInfo describes where a sampled frame sits inside its scene.
type FrameInfo struct {
	Time             float64 `json:"time"`              // Absolute timestamp in seconds.
	RelativePosition float64 `json:"relative_position"` // Position within the scene in [0, 1].
	FramePath        string  `json:"frame_path,omitempty"`
}

// FrameAnalysisResult is the per-scene output of the frame stage: one
// embedding vector per sampled frame, plus bookkeeping about the frames
// themselves. Embeddings and FrameInfo are index-aligned.
type FrameAnalysisResult struct {
	Embeddings     [][]float32  `json:"embeddings"`
	FrameInfo      []*FrameInfo `json:"frame_info"`
	EmbeddingDim   int          `json:"embedding_dim"`
	NumFrames      int          `json:"num_frames"`
	EmbeddingModel string       `json:"embedding_model,omitempty"`
}

// Scene is a contiguous span of a video identified by the segmenter and
// enriched by the audio and frame stages. AudioAnalysis and FrameAnalysis
// are nil when the corresponding stage failed for this scene; the scene
// itself is always kept.
type Scene struct {
	ID            string               `json:"id"`
	StartTime     float64              `json:"start_time"`
	EndTime       float64              `json:"end_time"`
	Duration      float64              `json:"duration"`
	StartFrame    int                  `json:"start_frame,omitempty"`
	EndFrame      int                  `json:"end_frame,omitempty"`
	AudioAnalysis *AudioAnalysisResult `json:"audio_analysis,omitempty"`
	FrameAnalysis *FrameAnalysisResult `json:"frame_analysis,omitempty"`
}

// NewScene builds a Scene from a segmenter time span. Sequence numbers are
// one-based, so the first scene of every video is "scene_1". Duration is
// derived from the span so the two can never disagree.
func NewScene(sequence int, span TimeSpan) *Scene {
	return &Scene{
		ID:        fmt.Sprintf("scene_%d", sequence),
		StartTime: span.Start,
		EndTime:   span.End,
		Duration:  span.End - span.Start,
	}
}

// Transcript returns the scene transcript, or the empty string when the
// audio stage produced nothing for this scene.
func (s *Scene) Transcript() string {
	if s.AudioAnalysis == nil {
		return ""
	}
	return s.AudioAnalysis.Transcript
}

// Storyline is a group of scenes the grouper considers to belong to the
// same narrative thread. Scenes are ordered by start time. A scene may
// appear in more than one storyline.
type Storyline struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scenes      []*Scene `json:"scenes"`
	StartTime   float64  `json:"start_time"`
	EndTime     float64  `json:"end_time"`
	Duration    float64  `json:"duration"` // EndTime minus StartTime of the member span.
}

// AnalysisMetadata carries technical context alongside a finished result.
type AnalysisMetadata struct {
	FrameRate           float64 `json:"frame_rate"`
	Width               int     `json:"width"`
	Height              int     `json:"height"`
	AnalysisTimeSeconds float64 `json:"analysis_time_seconds"`
}

// VideoAnalysisResult is the final artifact of a completed analysis task.
// It is what the status store persists and what status queries return once
// a task reaches the completed state.
type VideoAnalysisResult struct {
	VideoFileName string            `json:"video_file_name"`
	Duration      float64           `json:"duration"`
	TotalScenes   int               `json:"total_scenes"`
	Storylines    []*Storyline      `json:"storylines"`
	Timestamp     time.Time         `json:"timestamp"`
	Metadata      *AnalysisMetadata `json:"metadata,omitempty"`
}
