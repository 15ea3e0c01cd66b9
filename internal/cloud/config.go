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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients for the Google Cloud services the
// engine depends on.
//
// This file centralizes all configuration-related structs, making it easy
// to understand and manage the application's configurable parameters.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for
// GenAI models. The thresholds are non-restrictive: the input is our own
// video library, not untrusted user content.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource represents the configuration for the warehouse of
// completed analyses.
type BigQueryDataSource struct {
	DatasetName   string `toml:"dataset"`        // The name of the BigQuery dataset.
	AnalysisTable string `toml:"analysis_table"` // The table holding analysis summary rows.
}

// VertexAiEmbeddingModel represents the configuration for a Vertex AI
// embedding model.
type VertexAiEmbeddingModel struct {
	Model                string `toml:"model"`                   // The name of the Vertex AI embedding model.
	Dimension            int    `toml:"dimension"`               // The output vector length.
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"` // The maximum number of requests allowed per minute.
}

// VertexAiCaptionModel represents the configuration for the multimodal
// model used to caption sampled frames.
type VertexAiCaptionModel struct {
	Model       string  `toml:"model"`       // The name of the Vertex AI model.
	Prompt      string  `toml:"prompt"`      // The captioning prompt sent alongside each frame.
	Temperature float32 `toml:"temperature"` // The temperature parameter for the model.
	MaxTokens   int32   `toml:"max_tokens"`  // The maximum number of tokens for the model output.
	RateLimit   int     `toml:"rate_limit"`  // The rate limit in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic
// subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for where videos, results, and
// rendered clips live.
type Storage struct {
	VideoDir         string `toml:"video_dir"`          // Local directory of source videos awaiting analysis.
	DataDir          string `toml:"data_dir"`           // Local root for results and checkpoints when not using GCS.
	UseGCS           bool   `toml:"use_gcs"`            // When true, results and checkpoints are stored in ResultBucket.
	ResultBucket     string `toml:"result_bucket"`      // The bucket for results and checkpoints.
	ClipOutputBucket string `toml:"clip_output_bucket"` // The bucket where rendered storyline clips are uploaded.
}

// AnalyzerEndpoints points at the ML sidecar services that perform scene
// segmentation, audio analysis, and frame analysis.
type AnalyzerEndpoints struct {
	SegmenterURL     string `toml:"segmenter_url"`      // Base URL of the scene segmentation service.
	AudioURL         string `toml:"audio_url"`          // Base URL of the audio analysis service.
	FrameURL         string `toml:"frame_url"`          // Base URL of the frame analysis service.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Request timeout for sidecar calls.
}

// Matching holds the tunables of the scene grouper and the clip selector.
type Matching struct {
	ProximityRadiusPercent float64 `toml:"proximity_radius_percent"` // Scene proximity radius as a fraction of video duration.
	DefaultStorylines      int     `toml:"default_storylines"`       // Storyline count used when a request does not specify one.
	TargetClipDuration     float64 `toml:"target_clip_duration"`     // Clip duration budget in seconds.
}

// Config represents the overall configuration for the application, loaded
// from TOML files. It is the root container for all other configuration
// structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		FFmpegPath                string `toml:"ffmpeg_path"`                  // Path to the ffmpeg binary used for clip rendering.
		FFprobePath               string `toml:"ffprobe_path"`                 // Path to the ffprobe binary used for metadata extraction.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
	} `toml:"application"`
	Storage            Storage                           `toml:"storage"`               // Storage configuration.
	BigQueryDataSource BigQueryDataSource                `toml:"big_query_data_source"` // BigQuery data source configuration.
	Analyzers          AnalyzerEndpoints                 `toml:"analyzers"`             // ML sidecar endpoints.
	Matching           Matching                          `toml:"matching"`              // Grouper and selector tunables.
	TopicSubscriptions map[string]TopicSubscription      `toml:"topic_subscriptions"`   // Pub/Sub subscriptions, keyed by a logical name (e.g., "VideoUploads").
	EmbeddingModels    map[string]VertexAiEmbeddingModel `toml:"embedding_models"`      // Vertex AI embedding models, keyed by a logical name (e.g., "multi-lingual").
	CaptionModels      map[string]VertexAiCaptionModel   `toml:"caption_models"`        // Vertex AI caption models, keyed by a logical name (e.g., "frame-captions").
}

// NewConfig creates a new, initialized Config instance. The maps must be
// initialized before the configuration loader populates them.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		EmbeddingModels:    make(map[string]VertexAiEmbeddingModel),
		CaptionModels:      make(map[string]VertexAiCaptionModel),
	}
}
