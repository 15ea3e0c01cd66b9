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

// This file defines the final step of the analysis workflow. It assembles
// the complete result from everything the earlier stages produced and
// persists it, which marks the task completed.
package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
)

// ResultAssembly is a command that builds the VideoAnalysisResult and
// saves it through the status reporter.
type ResultAssembly struct {
	cor.BaseCommand
	reporter status.Reporter
}

// NewResultAssembly is the constructor for the ResultAssembly command.
func NewResultAssembly(name string, reporter status.Reporter) *ResultAssembly {
	return &ResultAssembly{BaseCommand: *cor.NewBaseCommand(name), reporter: reporter}
}

// Execute assembles and persists the result. Persisting is what flips the
// task to completed, so a save failure is fatal for the task.
func (c *ResultAssembly) Execute(context cor.Context) {
	task := context.Get(c.GetInputParam()).(*model.AnalysisTask)
	scenes := context.Get(GetScenesName()).([]*model.Scene)
	storylines := context.Get(GetStorylinesName()).([]*model.Storyline)

	c.reporter.SetStatus(task.TaskID, model.TaskStatusProcessing, "Assembling analysis result", 0.9)

	result := &model.VideoAnalysisResult{
		VideoFileName: filepath.Base(task.VideoPath),
		TotalScenes:   len(scenes),
		Storylines:    storylines,
		Timestamp:     time.Now().UTC(),
	}
	if len(scenes) > 0 {
		result.Duration = scenes[len(scenes)-1].EndTime
	}

	if meta, ok := context.Get(GetVideoMetadataName()).(*model.VideoMetadata); ok && meta != nil {
		if meta.Duration > 0 {
			result.Duration = meta.Duration
		}
		result.Metadata = &model.AnalysisMetadata{
			FrameRate: meta.FrameRate,
			Width:     meta.Width,
			Height:    meta.Height,
		}
	} else {
		result.Metadata = &model.AnalysisMetadata{}
	}
	if !task.SubmittedAt.IsZero() {
		result.Metadata.AnalysisTimeSeconds = time.Since(task.SubmittedAt).Seconds()
	}

	if err := c.reporter.SaveResult(context.GetContext(), task.TaskID, result); err != nil {
		err = fmt.Errorf("failed to persist analysis result: %w", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		c.reporter.SetStatus(task.TaskID, model.TaskStatusError, err.Error(), 0)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetAnalysisResultName(), result)
	context.Add(c.GetOutputParam(), result)
}
