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

// This file defines the scene segmentation step of the analysis workflow.
// Everything downstream operates on the scene list built here, so a video
// that produces no scenes is a fatal error for the task.
package commands

import (
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
)

// SceneSegmentation is a command that splits the task's video into scenes
// using shot boundary detection.
type SceneSegmentation struct {
	cor.BaseCommand
	segmenter analyzers.SceneSegmenter
	reporter  status.Reporter
}

// NewSceneSegmentation is the constructor for the SceneSegmentation command.
func NewSceneSegmentation(name string, segmenter analyzers.SceneSegmenter, reporter status.Reporter) *SceneSegmentation {
	return &SceneSegmentation{
		BaseCommand: *cor.NewBaseCommand(name),
		segmenter:   segmenter,
		reporter:    reporter,
	}
}

// Execute runs the segmenter and materializes the scene list. Scenes are
// numbered from one in playback order.
func (c *SceneSegmentation) Execute(context cor.Context) {
	task := context.Get(c.GetInputParam()).(*model.AnalysisTask)
	c.reporter.SetStatus(task.TaskID, model.TaskStatusProcessing, "Detecting scene boundaries", 0.2)

	fail := func(err error) {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		c.reporter.SetStatus(task.TaskID, model.TaskStatusError, err.Error(), 0)
		context.AddError(c.GetName(), err)
	}

	spans, err := c.segmenter.SegmentScenes(context.GetContext(), task.VideoPath)
	if err != nil {
		fail(fmt.Errorf("scene segmentation failed: %w", err))
		return
	}
	if len(spans) == 0 {
		fail(errors.New("no scenes detected in video"))
		return
	}

	scenes := make([]*model.Scene, 0, len(spans))
	for i, span := range spans {
		scenes = append(scenes, model.NewScene(i+1, span))
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetScenesName(), scenes)
	context.Add(c.GetOutputParam(), task)
}
