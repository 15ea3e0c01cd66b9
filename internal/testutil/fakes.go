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

// This file provides hermetic substitutes for the pipeline's external
// dependencies: a deterministic text embedder, function-backed analyzers,
// and a recording status reporter. The fakes let workflow and matcher
// tests run without ffmpeg, the ML sidecars, or any cloud service.
package test

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// FakeEmbedderDim is the vector length the fake embedder produces.
const FakeEmbedderDim = 64

// FakeEmbedder is a deterministic bag-of-words embedder. Each token hashes
// to one of the vector's buckets, so texts sharing words produce vectors
// with high cosine similarity and disjoint texts score near zero. That is
// enough structure for matcher tests to exercise thresholds end to end.
type FakeEmbedder struct{}

// EmbedText hashes the words of text into a fixed-size L2-normalized
// vector. Empty text yields a zero vector, matching the production
// embedder's contract.
func (f *FakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, FakeEmbedderDim)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return vec, nil
	}
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,!?'\"")))
		vec[h.Sum32()%FakeEmbedderDim]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// Dimension returns the length of the vectors EmbedText produces.
func (f *FakeEmbedder) Dimension() int { return FakeEmbedderDim }

// FakeMetadataExtractor implements analyzers.MetadataExtractor with a
// caller-supplied function.
type FakeMetadataExtractor struct {
	Fn func(ctx context.Context, videoPath string) (*model.VideoMetadata, error)
}

func (f *FakeMetadataExtractor) ExtractMetadata(ctx context.Context, videoPath string) (*model.VideoMetadata, error) {
	return f.Fn(ctx, videoPath)
}

// FakeSceneSegmenter implements analyzers.SceneSegmenter with a
// caller-supplied function.
type FakeSceneSegmenter struct {
	Fn func(ctx context.Context, videoPath string) ([]model.TimeSpan, error)
}

func (f *FakeSceneSegmenter) SegmentScenes(ctx context.Context, videoPath string) ([]model.TimeSpan, error) {
	return f.Fn(ctx, videoPath)
}

// FakeAudioAnalyzer implements analyzers.AudioAnalyzer with a
// caller-supplied function and counts its invocations.
type FakeAudioAnalyzer struct {
	mu    sync.Mutex
	calls int
	Fn    func(ctx context.Context, videoPath string, start, end float64) (*model.AudioAnalysisResult, error)
}

func (f *FakeAudioAnalyzer) AnalyzeAudio(ctx context.Context, videoPath string, start, end float64) (*model.AudioAnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.Fn(ctx, videoPath, start, end)
}

// Calls reports how many times AnalyzeAudio ran.
func (f *FakeAudioAnalyzer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeFrameAnalyzer implements analyzers.FrameAnalyzer with a
// caller-supplied function and counts its invocations.
type FakeFrameAnalyzer struct {
	mu    sync.Mutex
	calls int
	Fn    func(ctx context.Context, videoPath string, start, end float64) (*model.FrameAnalysisResult, error)
}

func (f *FakeFrameAnalyzer) AnalyzeFrames(ctx context.Context, videoPath string, start, end float64) (*model.FrameAnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.Fn(ctx, videoPath, start, end)
}

// Calls reports how many times AnalyzeFrames ran.
func (f *FakeFrameAnalyzer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeImageCaptioner implements analyzers.ImageCaptioner with a
// caller-supplied function and counts its invocations.
type FakeImageCaptioner struct {
	mu    sync.Mutex
	calls int
	Fn    func(ctx context.Context, imagePath string, prompt string) (string, error)
}

func (f *FakeImageCaptioner) CaptionImage(ctx context.Context, imagePath string, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.Fn(ctx, imagePath, prompt)
}

// Calls reports how many times CaptionImage ran.
func (f *FakeImageCaptioner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// StatusUpdate is one SetStatus call observed by the RecordingReporter.
type StatusUpdate struct {
	TaskID   string
	Status   model.TaskStatus
	Message  string
	Progress float64
}

// RecordingReporter implements status.Reporter and remembers every update
// so tests can assert on progress ordering and final state.
type RecordingReporter struct {
	mu      sync.Mutex
	Updates []StatusUpdate
	Results map[string]*model.VideoAnalysisResult
}

// NewRecordingReporter creates an empty recorder.
func NewRecordingReporter() *RecordingReporter {
	return &RecordingReporter{Results: make(map[string]*model.VideoAnalysisResult)}
}

func (r *RecordingReporter) SetStatus(taskID string, st model.TaskStatus, message string, progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updates = append(r.Updates, StatusUpdate{TaskID: taskID, Status: st, Message: message, Progress: progress})
}

func (r *RecordingReporter) SaveResult(_ context.Context, taskID string, result *model.VideoAnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results[taskID] = result
	r.Updates = append(r.Updates, StatusUpdate{TaskID: taskID, Status: model.TaskStatusCompleted, Message: "Analysis complete", Progress: 1.0})
	return nil
}

// Snapshot returns a copy of the recorded updates.
func (r *RecordingReporter) Snapshot() []StatusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StatusUpdate, len(r.Updates))
	copy(out, r.Updates)
	return out
}
