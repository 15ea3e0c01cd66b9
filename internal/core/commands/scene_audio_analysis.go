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

// This file defines the per-scene audio analysis step of the workflow.
// Scene failures are isolated: one scene whose transcription fails gets an
// empty analysis while the rest proceed. Completed scenes are checkpointed
// so a restarted task never re-transcribes work it already paid for.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
)

// SceneAudioAnalysis is a command that transcribes and characterizes the
// audio of every scene in the task.
type SceneAudioAnalysis struct {
	cor.BaseCommand
	analyzer    analyzers.AudioAnalyzer
	reporter    status.Reporter
	checkpoints *status.CheckpointStore
}

// NewSceneAudioAnalysis is the constructor for the SceneAudioAnalysis command.
func NewSceneAudioAnalysis(name string, analyzer analyzers.AudioAnalyzer, reporter status.Reporter, checkpoints *status.CheckpointStore) *SceneAudioAnalysis {
	return &SceneAudioAnalysis{
		BaseCommand: *cor.NewBaseCommand(name),
		analyzer:    analyzer,
		reporter:    reporter,
		checkpoints: checkpoints,
	}
}

// Execute walks the scene list, restoring checkpointed results where they
// exist and calling the analyzer where they don't. A video with no audio
// track gets empty results for every scene without touching the analyzer.
func (c *SceneAudioAnalysis) Execute(context cor.Context) {
	task := context.Get(c.GetInputParam()).(*model.AnalysisTask)
	scenes := context.Get(GetScenesName()).([]*model.Scene)

	var hasAudio bool
	if meta, ok := context.Get(GetVideoMetadataName()).(*model.VideoMetadata); ok && meta != nil {
		hasAudio = meta.HasAudio
	}

	total := len(scenes)
	for i, scene := range scenes {
		progress := 0.4 + 0.2*float64(i)/float64(total)
		c.reporter.SetStatus(task.TaskID, model.TaskStatusProcessing,
			fmt.Sprintf("Analyzing audio for scene %d of %d", i+1, total), progress)

		if !hasAudio {
			scene.AudioAnalysis = &model.AudioAnalysisResult{}
			continue
		}

		key := status.CheckpointKey{TaskID: task.TaskID, SceneID: scene.ID, Stage: status.StageAudioAnalysis}
		restored := &model.AudioAnalysisResult{}
		if found, err := c.checkpoints.Load(context.GetContext(), key, restored); err == nil && found {
			scene.AudioAnalysis = restored
			continue
		}

		result, err := c.analyzer.AnalyzeAudio(context.GetContext(), task.VideoPath, scene.StartTime, scene.EndTime)
		if err != nil {
			// The scene stays in the result with AudioAnalysis nil; a
			// failed stage is absent, never fabricated.
			slog.Warn("audio analysis failed for scene",
				"task_id", task.TaskID, "scene_id", scene.ID, "error", err)
			c.GetErrorCounter().Add(context.GetContext(), 1)
			continue
		}
		scene.AudioAnalysis = result

		if err := c.checkpoints.Save(context.GetContext(), key, result); err != nil {
			slog.Warn("failed to save audio checkpoint",
				"task_id", task.TaskID, "scene_id", scene.ID, "error", err)
		}
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), task)
}
