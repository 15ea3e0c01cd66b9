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

// Package main contains the setup and initialization logic for the application's state.
// This file is responsible for creating and managing a centralized state manager
// that holds all shared dependencies: configuration, Google Cloud service clients,
// the status and checkpoint stores, the analyzer clients, and the workflows the
// API routes hand work to.
//
// Functions:
//   - SetupOS: Configures the environment variables the configuration loader
//     uses to find the correct TOML files.
//   - GetConfig: A singleton function that loads the application's configuration
//     from TOML files. It ensures the configuration is loaded only once.
//   - InitState: The core initialization function that creates all service
//     clients, wires the analysis and cut workflows, and starts the Pub/Sub
//     listeners.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/clients"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/cloud"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/status"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/workflow"
)

// StateManager holds all the shared dependencies for the application, acting
// as a centralized container for service clients, stores, and workflows.
// This avoids the need for scattered globals and makes dependency management
// cleaner.
type StateManager struct {
	// rootCtx outlives any single HTTP request. Analysis tasks submitted
	// through the API run on it so they survive the response.
	rootCtx context.Context

	config *cloud.Config
	cloud  *cloud.ServiceClients

	store       *status.Store
	checkpoints *status.CheckpointStore

	analysisService *services.AnalysisService
	clipService     *services.ClipService
	matcher         *services.StorylineMatcher
	simpleMatcher   *services.SimpleStorylineMatcher
	descriptions    *services.SceneDescriptionService

	analysisWorkflow *workflow.VideoAnalysisWorkflow
	cutWorkflow      *workflow.StorylineCutWorkflow
}

// state is a package-level variable that holds the single instance of StateManager.
var state = &StateManager{}

// SetupOS sets the environment variables the configuration loader uses to
// find the correct TOML files: the configuration directory prefix and the
// runtime environment (e.g. "local", "test", "prod") whose file overrides
// the base settings.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig provides a singleton instance of the application configuration.
// On the first call it sets up the OS environment and loads the TOML files;
// subsequent calls return the cached configuration.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState initializes the entire application state.
//
// It performs the following steps:
//  1. Loads the application configuration.
//  2. Initializes the Google Cloud service clients (Storage, Pub/Sub,
//     GenAI, BigQuery, IAM).
//  3. Selects the blob store for results and checkpoints (GCS or local
//     filesystem) and rebuilds the task index from it.
//  4. Wires the analyzer clients (ffprobe plus the segmentation, audio,
//     and frame sidecars) into the analysis workflow.
//  5. Creates the matching services and the storyline cut workflow.
//  6. Starts the Pub/Sub listener that analyzes uploaded videos.
func InitState(ctx context.Context) {
	state.rootCtx = ctx
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	// Results and checkpoints share one blob store. GCS keeps state across
	// instances; the filesystem variant serves single-node deployments.
	var blobs status.BlobStore
	if config.Storage.UseGCS {
		blobs = cloud.NewGCSBlobStore(cloudClients.StorageClient, config.Storage.ResultBucket)
	} else {
		blobs, err = status.NewFileBlobStore(config.Storage.DataDir)
		if err != nil {
			panic(err)
		}
	}

	state.store = status.NewStore(blobs)
	if err := state.store.Init(ctx); err != nil {
		panic(err)
	}
	state.checkpoints = status.NewCheckpointStore(blobs)

	// The analyzer set: ffprobe runs locally, the ML stages are sidecar
	// services shared through one tuned HTTP client.
	httpClient := clients.NewHTTP(time.Duration(config.Analyzers.TimeoutInSeconds) * time.Second)
	set := &analyzers.Set{
		Metadata:  clients.NewFFprobeExtractor(config.Application.FFprobePath),
		Segmenter: clients.NewSegmenterClient(httpClient, config.Analyzers.SegmenterURL),
		Audio:     clients.NewAudioClient(httpClient, config.Analyzers.AudioURL),
		Frames:    clients.NewFrameClient(httpClient, config.Analyzers.FrameURL),
	}

	grouper := services.NewStorylineGrouper(config.Matching.ProximityRadiusPercent)
	selector := services.NewSceneSelector(config.Matching.TargetClipDuration)

	state.analysisService = &services.AnalysisService{
		BigqueryClient: cloudClients.BigQueryClient,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		AnalysisTable:  config.BigQueryDataSource.AnalysisTable,
	}

	state.clipService = &services.ClipService{
		StorageClient: cloudClients.StorageClient,
		IAMClient:     cloudClients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
	}

	// Both matchers score in the same embedding space.
	embedder := cloudClients.Embedders["multi-lingual"]
	state.matcher = services.NewStorylineMatcher(embedder)
	state.simpleMatcher = services.NewSimpleStorylineMatcher(embedder)

	// Scene descriptions caption stored frames through the configured
	// caption model. Deployments without one simply lose the endpoint.
	if captioner, ok := cloudClients.CaptionModels["frame-captions"]; ok {
		state.descriptions = services.NewSceneDescriptionService(captioner, "")
	}

	state.analysisWorkflow = workflow.NewVideoAnalysisPipeline(
		set, state.store, state.checkpoints, grouper, state.analysisService)

	state.cutWorkflow = workflow.NewStorylineCutPipeline(
		selector, state.clipService,
		config.Application.FFmpegPath,
		config.Storage.ClipOutputBucket)

	SetupListeners(ctx, config, cloudClients, set, grouper)
}
