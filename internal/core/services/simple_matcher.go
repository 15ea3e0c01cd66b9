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

// This file defines the SimpleStorylineMatcher, the lightweight alternative
// to the full matcher. It scores every scene against every plot with a
// fixed blend of text similarity (transcript vs. plot text) and image
// similarity (mean frame embedding vs. a visual rendering of the plot) and
// returns one flat list sorted by score. No thresholds, no clustering.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// Blend weights for the simple matcher. Image carries more weight than
// text: transcripts of short scenes are sparse while frames are always there.
const (
	simpleTextWeight  = 0.3
	simpleImageWeight = 0.7
)

// SimpleStorylineMatcher scores scenes against plots with a text/image
// similarity blend. Plot embeddings are cached so repeated matches against
// the same plot set stay cheap. Safe for concurrent use.
type SimpleStorylineMatcher struct {
	embedder analyzers.TextEmbedder

	mu    sync.Mutex
	cache map[string][]float32
}

// NewSimpleStorylineMatcher creates a simple matcher on top of the given
// text embedder.
func NewSimpleStorylineMatcher(embedder analyzers.TextEmbedder) *SimpleStorylineMatcher {
	return &SimpleStorylineMatcher{
		embedder: embedder,
		cache:    make(map[string][]float32),
	}
}

// MatchScenesToPlots scores every scene against every plot and returns all
// pairs in one list ordered by descending score.
func (m *SimpleStorylineMatcher) MatchScenesToPlots(
	ctx context.Context,
	scenes []*model.Scene,
	plots []*model.Plot,
) ([]*model.PlotMatch, error) {
	slog.Info("simple matching scenes to plots",
		"scene_count", len(scenes), "plot_count", len(plots))

	// Warm the plot cache up front so per-scene work is pure vector math.
	for _, plot := range plots {
		if _, err := m.plotEmbedding(ctx, plot); err != nil {
			return nil, err
		}
	}

	results := make([]*model.PlotMatch, 0, len(scenes)*len(plots))
	for _, scene := range scenes {
		textEmb, err := m.embedder.EmbedText(ctx, scene.Transcript())
		if err != nil {
			return nil, fmt.Errorf("failed to embed transcript of %s: %w", scene.ID, err)
		}
		textEmb = l2Normalize(textEmb)
		frameEmb := sceneFrameEmbedding(scene)

		for _, plot := range plots {
			plotEmb, err := m.plotEmbedding(ctx, plot)
			if err != nil {
				return nil, err
			}
			visualEmb, err := m.visualPlotEmbedding(ctx, plot)
			if err != nil {
				return nil, err
			}

			textSim := cosineSimilarity(textEmb, plotEmb)
			imageSim := cosineSimilarity(frameEmb, visualEmb)

			results = append(results, &model.PlotMatch{
				SceneID:         scene.ID,
				PlotID:          plot.ID,
				Score:           simpleTextWeight*textSim + simpleImageWeight*imageSim,
				TextSimilarity:  textSim,
				ImageSimilarity: imageSim,
				StartTime:       scene.StartTime,
				EndTime:         scene.EndTime,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	slog.Info("simple matching complete", "pair_count", len(results))
	return results, nil
}

// plotEmbedding returns the cached embedding of the plot's full text,
// computing and caching it on first use.
func (m *SimpleStorylineMatcher) plotEmbedding(ctx context.Context, plot *model.Plot) ([]float32, error) {
	key := plot.ID
	if key == "" {
		key = plot.Title + "|" + plot.Description + "|" + strings.Join(plot.Keywords, "|")
	}

	m.mu.Lock()
	cached, ok := m.cache[key]
	m.mu.Unlock()
	if ok {
		return cached, nil
	}

	emb, err := m.embedder.EmbedText(ctx, plot.Text())
	if err != nil {
		return nil, fmt.Errorf("failed to embed plot %q: %w", plot.Title, err)
	}
	emb = l2Normalize(emb)

	m.mu.Lock()
	m.cache[key] = emb
	m.mu.Unlock()
	return emb, nil
}

// visualPlotEmbedding renders the plot as a visual prompt (title plus
// keywords, no prose) and embeds it for comparison against frame vectors.
func (m *SimpleStorylineMatcher) visualPlotEmbedding(ctx context.Context, plot *model.Plot) ([]float32, error) {
	prompt := plot.Title + " " + strings.Join(plot.Keywords, " ")
	emb, err := m.embedder.EmbedText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to embed visual prompt for plot %q: %w", plot.Title, err)
	}
	return l2Normalize(emb), nil
}

// sceneFrameEmbedding pools a scene's frame embeddings into one normalized
// vector. Scenes without frame analysis yield nil, which scores 0 against
// everything.
func sceneFrameEmbedding(scene *model.Scene) []float32 {
	if scene.FrameAnalysis == nil || len(scene.FrameAnalysis.Embeddings) == 0 {
		return nil
	}
	return l2Normalize(meanVector(scene.FrameAnalysis.Embeddings))
}
