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

// This file tests the SimpleStorylineMatcher: the fixed text/image score
// blend, the flat descending-score ordering, and the plot embedding cache.
package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
	test "github.com/jaycherian/gcp-go-storyline-engine/internal/testutil"
)

// frameScene builds a scene whose frame stage produced the given embedding
// and whose audio stage produced nothing.
func frameScene(sequence int, start, end float64, embedding []float32) *model.Scene {
	scene := model.NewScene(sequence, model.TimeSpan{Start: start, End: end})
	scene.FrameAnalysis = &model.FrameAnalysisResult{
		Embeddings:   [][]float32{embedding},
		EmbeddingDim: len(embedding),
		NumFrames:    1,
	}
	return scene
}

func TestSimpleMatchScoresEveryPair(t *testing.T) {
	embedder := &test.FakeEmbedder{}
	matcher := services.NewSimpleStorylineMatcher(embedder)

	plot := &model.Plot{
		ID:          "plot-1",
		Title:       "Harbor storm",
		Description: "rescue lighthouse",
		Keywords:    []string{"beacon"},
	}

	// scene_1 repeats the plot vocabulary in its transcript and carries a
	// frame embedding equal to the plot's visual prompt, so both
	// similarity components are exactly 1. scene_2 has neither transcript
	// nor frames and scores 0 against everything.
	visual, err := embedder.EmbedText(context.Background(), "harbor storm beacon")
	require.NoError(t, err)
	matched := frameScene(1, 0, 10, visual)
	matched.AudioAnalysis = &model.AudioAnalysisResult{
		Transcript: "harbor storm rescue lighthouse beacon",
	}
	scenes := []*model.Scene{
		matched,
		model.NewScene(2, model.TimeSpan{Start: 10, End: 20}),
	}

	results, err := matcher.MatchScenesToPlots(context.Background(), scenes, []*model.Plot{plot})
	require.NoError(t, err)
	require.Len(t, results, 2)

	best := results[0]
	assert.Equal(t, "scene_1", best.SceneID)
	assert.Equal(t, "plot-1", best.PlotID)
	assert.InDelta(t, 1.0, best.TextSimilarity, 0.001)
	assert.InDelta(t, 1.0, best.ImageSimilarity, 0.001)
	assert.InDelta(t, 1.0, best.Score, 0.001)

	assert.Equal(t, "scene_2", results[1].SceneID)
	assert.InDelta(t, 0.0, results[1].Score, 0.001)
}

func TestSimpleMatchBlendWeightsImageOverText(t *testing.T) {
	embedder := &test.FakeEmbedder{}
	matcher := services.NewSimpleStorylineMatcher(embedder)

	plot := &model.Plot{
		ID:          "plot-1",
		Title:       "Harbor storm",
		Description: "rescue lighthouse",
	}

	// A transcript-only perfect match scores the 0.3 text weight; a
	// frames-only perfect match scores the 0.7 image weight and ranks
	// first despite having no dialogue at all.
	textOnly := model.NewScene(1, model.TimeSpan{Start: 0, End: 10})
	textOnly.AudioAnalysis = &model.AudioAnalysisResult{
		Transcript: "harbor storm rescue lighthouse",
	}
	visual, err := embedder.EmbedText(context.Background(), "Harbor storm")
	require.NoError(t, err)
	imageOnly := frameScene(2, 10, 20, visual)

	results, err := matcher.MatchScenesToPlots(context.Background(),
		[]*model.Scene{textOnly, imageOnly}, []*model.Plot{plot})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "scene_2", results[0].SceneID)
	assert.InDelta(t, 0.7, results[0].Score, 0.001)
	assert.Equal(t, "scene_1", results[1].SceneID)
	assert.InDelta(t, 0.3, results[1].Score, 0.001)
}

// countingEmbedder tallies how often each text is embedded.
type countingEmbedder struct {
	inner test.FakeEmbedder

	mu    sync.Mutex
	calls map[string]int
}

func (c *countingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[text]++
	c.mu.Unlock()
	return c.inner.EmbedText(ctx, text)
}

func (c *countingEmbedder) Dimension() int { return c.inner.Dimension() }

func (c *countingEmbedder) count(text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[text]
}

func TestSimpleMatchCachesPlotEmbeddings(t *testing.T) {
	embedder := &countingEmbedder{}
	matcher := services.NewSimpleStorylineMatcher(embedder)

	plot := &model.Plot{ID: "plot-1", Title: "Harbor storm", Description: "rescue lighthouse"}
	scene := model.NewScene(1, model.TimeSpan{Start: 0, End: 10})
	scene.AudioAnalysis = &model.AudioAnalysisResult{Transcript: "harbor storm"}

	for i := 0; i < 3; i++ {
		_, err := matcher.MatchScenesToPlots(context.Background(),
			[]*model.Scene{scene}, []*model.Plot{plot})
		require.NoError(t, err)
	}

	// The plot body is embedded once and served from cache afterwards.
	assert.Equal(t, 1, embedder.count(plot.Text()))
}
