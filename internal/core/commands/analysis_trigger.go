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

// This file defines the entry point for analyses triggered by a video
// landing in Google Cloud Storage. GCS publishes a detailed notification
// message to a Pub/Sub topic when a new object is created; this command
// parses that message into an AnalysisTask.
//
// Logic Flow:
//  1. The command receives the raw Pub/Sub message data as a JSON string
//     from the context.
//  2. It unmarshals the JSON into a `cloud.GCSPubSubNotification` struct,
//     which represents the full structure of the GCS notification.
//  3. Non-video objects are rejected so random bucket writes never start
//     a pipeline run.
//  4. It derives a deterministic task id from the object's identity, so a
//     redelivered notification maps onto the same task instead of starting
//     a duplicate analysis.
//  5. It builds a `model.AnalysisTask` pointing at the object's path under
//     the local video mount and pipes it to the analysis chain.
package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/cloud"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// AnalysisTrigger is a command that parses a GCS Pub/Sub notification and
// turns it into an analysis task.
type AnalysisTrigger struct {
	cor.BaseCommand
	videoDir          string // Local mount where bucket objects are accessible.
	defaultStorylines int    // Storyline count for triggered analyses.
}

// NewAnalysisTrigger is the constructor for the AnalysisTrigger command.
func NewAnalysisTrigger(name string, videoDir string, defaultStorylines int) *AnalysisTrigger {
	return &AnalysisTrigger{
		BaseCommand:       *cor.NewBaseCommand(name),
		videoDir:          videoDir,
		defaultStorylines: defaultStorylines,
	}
}

// Execute parses the notification in the input parameter and pipes the
// resulting task. It also records the task id on the chain context so
// downstream commands can report status.
func (c *AnalysisTrigger) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}

	if !strings.HasPrefix(out.ContentType, "video/") {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("object %s is not a video: %s", out.Name, out.ContentType))
		return
	}

	// The same object generation always maps to the same task.
	id := uuid.NewSHA1(uuid.NameSpaceURL,
		[]byte(out.Bucket+"/"+out.Name+"#"+out.Generation))

	task := &model.AnalysisTask{
		TaskID:        id.String(),
		VideoPath:     filepath.Join(c.videoDir, out.Name),
		NumStorylines: c.defaultStorylines,
		SubmittedAt:   time.Now().UTC(),
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.SetTaskID(task.TaskID)
	context.Add(cloud.GetGCSObjectName(), &cloud.GCSObject{
		Bucket:   out.Bucket,
		Name:     out.Name,
		MIMEType: out.ContentType,
	})
	context.Add(GetAnalysisTaskName(), task)
	context.Add(c.GetOutputParam(), task)
}
