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

// Package analyzers defines the capability interfaces the analysis pipeline
// depends on. The pipeline itself never talks to ffmpeg, an ML sidecar, or
// Vertex AI directly; it sees only these interfaces. Production
// implementations live in the clients and cloud packages, and tests supply
// function-backed fakes.
package analyzers

import (
	"context"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// MetadataExtractor probes a video file for its technical properties.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, videoPath string) (*model.VideoMetadata, error)
}

// SceneSegmenter splits a video into an ordered list of scene boundaries.
// An empty list means the video could not be segmented and is treated as a
// fatal pipeline error by the caller.
type SceneSegmenter interface {
	SegmentScenes(ctx context.Context, videoPath string) ([]model.TimeSpan, error)
}

// AudioAnalyzer transcribes and characterizes the audio of one scene,
// identified by its time range within the source video.
type AudioAnalyzer interface {
	AnalyzeAudio(ctx context.Context, videoPath string, start, end float64) (*model.AudioAnalysisResult, error)
}

// FrameAnalyzer samples frames from one scene and embeds them.
type FrameAnalyzer interface {
	AnalyzeFrames(ctx context.Context, videoPath string, start, end float64) (*model.FrameAnalysisResult, error)
}

// TextEmbedder maps text into the vector space the matchers score in.
// Implementations must be safe for concurrent use.
type TextEmbedder interface {
	// EmbedText returns the embedding of the given text. Empty text yields
	// a zero vector rather than an error.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of the vectors EmbedText produces.
	Dimension() int
}

// ImageCaptioner produces a short textual description of a single frame.
type ImageCaptioner interface {
	CaptionImage(ctx context.Context, imagePath string, prompt string) (string, error)
}

// Set bundles the per-stage analyzers the pipeline is wired with.
type Set struct {
	Metadata  MetadataExtractor
	Segmenter SceneSegmenter
	Audio     AudioAnalyzer
	Frames    FrameAnalyzer
}
