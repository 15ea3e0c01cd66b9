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

// This file defines the command that uploads a rendered storyline clip to
// Google Cloud Storage.
//
// Logic Flow:
// This command follows the clip renderer in the cut workflow. It streams
// the local clip file into the clip bucket under a per-task prefix, then
// pipes the object's https URL onward so the workflow can hand out a
// signed link.
//
//  1. Get the path of the rendered clip from the COR context.
//  2. Open the local file for reading.
//  3. Create a writer for `clips/<task-id>/<file>` in the destination bucket.
//  4. Use `io.Copy` to stream the file's contents to GCS without loading
//     the whole clip into memory.
//  5. Pipe the resulting object URL to the next command.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
)

// ClipUpload is a command implementation responsible for uploading a
// rendered clip from the local filesystem to a Google Cloud Storage bucket.
type ClipUpload struct {
	cor.BaseCommand
	client *storage.Client // The GCS client for interacting with the storage service.
	bucket string          // The name of the destination GCS bucket.
}

// NewClipUpload is the constructor for creating a new ClipUpload command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - client: An initialized *storage.Client for communicating with GCS.
//   - bucket: The name of the target GCS bucket for the upload.
func NewClipUpload(name string, client *storage.Client, bucket string) *ClipUpload {
	return &ClipUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// Execute streams the rendered clip to GCS and pipes its object URL.
func (c *ClipUpload) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)

	dat, err := os.Open(path)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to open clip %s: %w", path, err))
		return
	}
	defer func() { _ = dat.Close() }()

	objectName := fmt.Sprintf("clips/%s/%s", context.GetTaskID(), filepath.Base(path))
	obj := c.client.Bucket(c.bucket).Object(objectName)
	writer := obj.NewWriter(context.GetContext())
	writer.ContentType = "video/mp4"

	if written, err := io.Copy(writer, dat); err != nil {
		slog.Error("failed to copy clip to GCS",
			"bytes_written", written, "object", objectName, "error", err)
		_ = writer.Close()
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	// Closing the writer finalizes the upload; until then the object does
	// not exist.
	if err := writer.Close(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to finalize clip upload: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("uploaded storyline clip", "bucket", c.bucket, "object", objectName)
	context.Add(c.GetOutputParam(), services.ObjectURL(c.bucket, objectName))
}
