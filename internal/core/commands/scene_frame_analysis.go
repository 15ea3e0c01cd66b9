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

// This file defines the per-scene frame analysis step of the workflow,
// with the same isolation and checkpoint discipline as the audio step: a
// scene whose embedding fails is left without frame analysis while the
// rest proceed, and completed scenes are never re-embedded on a rerun.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
)

// SceneFrameAnalysis is a command that samples and embeds frames for every
// scene in the task.
type SceneFrameAnalysis struct {
	cor.BaseCommand
	analyzer    analyzers.FrameAnalyzer
	reporter    status.Reporter
	checkpoints *status.CheckpointStore
}

// NewSceneFrameAnalysis is the constructor for the SceneFrameAnalysis command.
func NewSceneFrameAnalysis(name string, analyzer analyzers.FrameAnalyzer, reporter status.Reporter, checkpoints *status.CheckpointStore) *SceneFrameAnalysis {
	return &SceneFrameAnalysis{
		BaseCommand: *cor.NewBaseCommand(name),
		analyzer:    analyzer,
		reporter:    reporter,
		checkpoints: checkpoints,
	}
}

// Execute walks the scene list, restoring checkpointed embeddings where
// they exist and calling the analyzer where they don't.
func (c *SceneFrameAnalysis) Execute(context cor.Context) {
	task := context.Get(c.GetInputParam()).(*model.AnalysisTask)
	scenes := context.Get(GetScenesName()).([]*model.Scene)

	total := len(scenes)
	for i, scene := range scenes {
		progress := 0.6 + 0.2*float64(i)/float64(total)
		c.reporter.SetStatus(task.TaskID, model.TaskStatusProcessing,
			fmt.Sprintf("Analyzing frames for scene %d of %d", i+1, total), progress)

		key := status.CheckpointKey{TaskID: task.TaskID, SceneID: scene.ID, Stage: status.StageFrameAnalysis}
		restored := &model.FrameAnalysisResult{}
		if found, err := c.checkpoints.Load(context.GetContext(), key, restored); err == nil && found {
			scene.FrameAnalysis = restored
			continue
		}

		result, err := c.analyzer.AnalyzeFrames(context.GetContext(), task.VideoPath, scene.StartTime, scene.EndTime)
		if err != nil {
			slog.Warn("frame analysis failed for scene",
				"task_id", task.TaskID, "scene_id", scene.ID, "error", err)
			c.GetErrorCounter().Add(context.GetContext(), 1)
			continue
		}
		scene.FrameAnalysis = result

		if err := c.checkpoints.Save(context.GetContext(), key, result); err != nil {
			slog.Warn("failed to save frame checkpoint",
				"task_id", task.TaskID, "scene_id", scene.ID, "error", err)
		}
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), task)
}
