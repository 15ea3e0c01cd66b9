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

// This file defines the first command of the analysis workflow. It verifies
// that the submitted path points at a readable video file before any
// expensive stage runs, sniffing the content with the `filetype` library
// rather than trusting the file extension. A failure here is fatal for the
// task.
package commands

import (
	"fmt"
	"os"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
)

// ValidateVideo is a command that checks the task's video file exists and
// holds video content.
type ValidateVideo struct {
	cor.BaseCommand
	reporter status.Reporter
}

// NewValidateVideo is the constructor for the ValidateVideo command.
func NewValidateVideo(name string, reporter status.Reporter) *ValidateVideo {
	return &ValidateVideo{BaseCommand: *cor.NewBaseCommand(name), reporter: reporter}
}

// Execute reads the first bytes of the video and sniffs its type. On
// success the task is stored under the well-known task key and piped to the
// next command.
func (c *ValidateVideo) Execute(context cor.Context) {
	task := context.Get(c.GetInputParam()).(*model.AnalysisTask)
	c.reporter.SetStatus(task.TaskID, model.TaskStatusProcessing, "Validating video file", 0.05)

	fail := func(err error) {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		c.reporter.SetStatus(task.TaskID, model.TaskStatusError, err.Error(), 0)
		context.AddError(c.GetName(), err)
	}

	file, err := os.Open(task.VideoPath)
	if err != nil {
		fail(fmt.Errorf("video file is not readable: %w", err))
		return
	}
	defer func() { _ = file.Close() }()

	// filetype needs at most the first 261 bytes to classify a file.
	head := make([]byte, 261)
	n, err := file.Read(head)
	if err != nil || n == 0 {
		fail(fmt.Errorf("failed to read video header: %w", err))
		return
	}

	if !filetype.IsVideo(head[:n]) {
		kind, _ := filetype.Match(head[:n])
		fail(fmt.Errorf("file %s is not a video (detected %q)", task.VideoPath, kind.MIME.Value))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetAnalysisTaskName(), task)
	context.Add(c.GetOutputParam(), task)
}
