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

// This file defines the metadata extraction step of the analysis workflow.
// Metadata is informational: when the probe fails the pipeline degrades to
// an empty record instead of aborting, since segmentation can still run on
// a video ffprobe dislikes.
package commands

import (
	"log/slog"
	"path/filepath"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
)

// MetadataExtraction is a command that probes the task's video for its
// technical properties (duration, frame rate, resolution, audio presence).
type MetadataExtraction struct {
	cor.BaseCommand
	extractor analyzers.MetadataExtractor
	reporter  status.Reporter
}

// NewMetadataExtraction is the constructor for the MetadataExtraction command.
func NewMetadataExtraction(name string, extractor analyzers.MetadataExtractor, reporter status.Reporter) *MetadataExtraction {
	return &MetadataExtraction{
		BaseCommand: *cor.NewBaseCommand(name),
		extractor:   extractor,
		reporter:    reporter,
	}
}

// Execute probes the video and stores the metadata under the well-known
// metadata key. The task is piped through unchanged.
func (c *MetadataExtraction) Execute(context cor.Context) {
	task := context.Get(c.GetInputParam()).(*model.AnalysisTask)
	c.reporter.SetStatus(task.TaskID, model.TaskStatusProcessing, "Extracting video metadata", 0.1)

	meta, err := c.extractor.ExtractMetadata(context.GetContext(), task.VideoPath)
	if err != nil {
		// Degrade to an empty record and keep going.
		slog.Warn("metadata extraction failed", "task_id", task.TaskID, "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		meta = &model.VideoMetadata{FileName: filepath.Base(task.VideoPath)}
	} else {
		c.GetSuccessCounter().Add(context.GetContext(), 1)
	}

	context.Add(GetVideoMetadataName(), meta)
	context.Add(c.GetOutputParam(), task)
}
