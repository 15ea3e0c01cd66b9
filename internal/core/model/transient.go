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

// This file, `transient.go`, contains struct definitions for data models
// that only live in memory while a workflow executes. They are intermediate
// containers passed between commands in a chain of responsibility and are
// never persisted in this form.
package model

import "time"

// TimeSpan is a scene boundary reported by the segmenter, in seconds from
// the start of the video.
type TimeSpan struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AnalysisTask is the unit of work submitted to the analysis pipeline. It
// travels through the chain so every command knows which task it is serving
// and where the source video lives.
type AnalysisTask struct {
	TaskID        string    `json:"task_id"`
	VideoPath     string    `json:"video_path"`
	NumStorylines int       `json:"num_storylines"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ClipJob describes a storyline clip to cut: the source video, the scenes
// to include in playback order, and where the rendered file should land.
type ClipJob struct {
	TaskID     string        `json:"task_id"`
	VideoPath  string        `json:"video_path"`
	Scenes     []*SceneMatch `json:"scenes"`
	OutputPath string        `json:"output_path"`
}
