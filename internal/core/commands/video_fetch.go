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

// This file defines the command that makes a triggered task's video
// available on the local filesystem. When the object is already visible at
// the task's path (a mounted bucket, or a locally submitted file) this is
// a no-op; otherwise the object is streamed from GCS into a temporary file
// and the task is repointed at it.
//
// Logic Flow:
//  1. Get the *model.AnalysisTask from the COR context.
//  2. If the video path is already readable, pipe the task through.
//  3. Otherwise open a GCS reader for the object recorded by the trigger.
//  4. Efficiently stream the content into a local temporary file with
//     `io.Copy`, without loading the video into memory.
//  5. Track the temporary file in the context so it is cleaned up when the
//     workflow completes.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/cloud"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// VideoTempFilePrefix names the temp files downloaded videos land in.
const VideoTempFilePrefix = "source-video-"

// VideoFetch is a command implementation that ensures the task's source
// video exists locally, downloading it from GCS when it doesn't.
type VideoFetch struct {
	cor.BaseCommand
	client *storage.Client // The GCS client for interacting with the storage service.
}

// NewVideoFetch is the constructor for creating a new VideoFetch command.
func NewVideoFetch(name string, client *storage.Client) *VideoFetch {
	return &VideoFetch{BaseCommand: *cor.NewBaseCommand(name), client: client}
}

// Execute resolves the task's video to a readable local path.
func (c *VideoFetch) Execute(context cor.Context) {
	task := context.Get(c.GetInputParam()).(*model.AnalysisTask)

	if _, err := os.Stat(task.VideoPath); err == nil {
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(c.GetOutputParam(), task)
		return
	}

	msg, ok := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
	if !ok || msg == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("video %s is missing and no source object is known", task.VideoPath))
		return
	}

	reader, err := c.client.Bucket(msg.Bucket).Object(msg.Name).NewReader(context.GetContext())
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to create GCS reader for gs://%s/%s: %w", msg.Bucket, msg.Name, err))
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close GCS reader", "error", err)
		}
	}()

	tempFile, err := os.CreateTemp("", VideoTempFilePrefix)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create temp file: %w", err))
		return
	}

	// Stream in chunks rather than loading the whole video into memory.
	written, err := io.Copy(tempFile, reader)
	if err != nil {
		_ = tempFile.Close()
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to download gs://%s/%s after %d bytes: %w", msg.Bucket, msg.Name, written, err))
		return
	}
	_ = tempFile.Close()

	slog.Info("downloaded source video",
		"bucket", msg.Bucket, "object", msg.Name, "bytes", written, "path", tempFile.Name())

	context.AddTempFile(tempFile.Name())
	task.VideoPath = tempFile.Name()

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), task)
}
