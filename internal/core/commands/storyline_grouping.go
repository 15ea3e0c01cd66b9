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

// This file defines the storyline grouping step of the workflow. It hands
// the enriched scene list to the temporal proximity grouper and stores the
// resulting storylines for assembly.
package commands

import (
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
)

// StorylineGrouping is a command that clusters scenes into storylines by
// temporal proximity to the longest scenes.
type StorylineGrouping struct {
	cor.BaseCommand
	grouper  *services.StorylineGrouper
	reporter status.Reporter
}

// NewStorylineGrouping is the constructor for the StorylineGrouping command.
func NewStorylineGrouping(name string, grouper *services.StorylineGrouper, reporter status.Reporter) *StorylineGrouping {
	return &StorylineGrouping{
		BaseCommand: *cor.NewBaseCommand(name),
		grouper:     grouper,
		reporter:    reporter,
	}
}

// Execute groups the scenes into the number of storylines the task asked
// for and stores them under the well-known storyline key.
func (c *StorylineGrouping) Execute(context cor.Context) {
	task := context.Get(c.GetInputParam()).(*model.AnalysisTask)
	scenes := context.Get(GetScenesName()).([]*model.Scene)

	c.reporter.SetStatus(task.TaskID, model.TaskStatusProcessing, "Grouping scenes into storylines", 0.8)

	storylines := c.grouper.Group(scenes, task.NumStorylines)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetStorylinesName(), storylines)
	context.Add(c.GetOutputParam(), task)
}
