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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (CoR) pattern's Command interface for the video analysis
// and clip rendering workflows. This file defines the well-known context
// keys the commands use to share data beyond the chain's input/output
// piping.
package commands

// GetAnalysisTaskName returns the context key under which the current
// *model.AnalysisTask is stored, so every command in a chain can reach the
// task without relying on chain piping order.
func GetAnalysisTaskName() string {
	return "__TASK__OBJ__"
}

// GetVideoMetadataName returns the context key for the probed
// *model.VideoMetadata of the task's video.
func GetVideoMetadataName() string {
	return "__VIDEO__METADATA__"
}

// GetScenesName returns the context key for the []*model.Scene slice the
// segmentation command produces and later stages enrich in place.
func GetScenesName() string {
	return "__SCENES__"
}

// GetStorylinesName returns the context key for the grouped
// []*model.Storyline.
func GetStorylinesName() string {
	return "__STORYLINES__"
}

// GetAnalysisResultName returns the context key for the assembled
// *model.VideoAnalysisResult.
func GetAnalysisResultName() string {
	return "__ANALYSIS__RESULT__"
}
