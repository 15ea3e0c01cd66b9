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

// Package main contains the logic for setting up and starting the Pub/Sub
// message listeners. The listeners react to Google Cloud Storage upload
// notifications and run the full analysis pipeline on each new video
// without any API interaction.
//
// Functions:
//   - SetupListeners: Attaches the triggered analysis workflow to the
//     video upload subscription and starts receiving messages.
package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/cloud"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/workflow"
)

// videoUploadsListener is the logical name of the upload subscription in
// the topic_subscriptions configuration table.
const videoUploadsListener = "VideoUploads"

// SetupListeners configures and starts the background Pub/Sub listeners.
// It builds the upload-triggered analysis workflow and attaches it to the
// video uploads subscription. The listener runs as a background goroutine
// for the lifetime of ctx.
func SetupListeners(
	ctx context.Context,
	config *cloud.Config,
	cloudClients *cloud.ServiceClients,
	set *analyzers.Set,
	grouper *services.StorylineGrouper,
) {
	listener, ok := cloudClients.PubSubListeners[videoUploadsListener]
	if !ok {
		// Deployments without an upload bucket run on the API alone.
		slog.Warn("no video uploads subscription configured, skipping listener setup")
		return
	}

	triggered := workflow.NewTriggeredAnalysisPipeline(
		config,
		cloudClients.StorageClient,
		set,
		state.store,
		state.checkpoints,
		grouper,
		state.analysisService)

	listener.SetCommand(triggered)
	listener.Listen(ctx)
}
