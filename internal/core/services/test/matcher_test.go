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

// This file tests the StorylineMatcher against the deterministic
// bag-of-words embedder. The transcripts are chosen so that word overlap
// pins the cosine similarities to known values, which lets the tests
// exercise the core and expansion thresholds, the match floor, and the
// character and keyword scoring without a real embedding model.
package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
	test "github.com/jaycherian/gcp-go-storyline-engine/internal/testutil"
)

// sceneWithTranscript builds an analyzed scene whose audio stage produced
// the given transcript.
func sceneWithTranscript(sequence int, start, end float64, transcript string) *model.Scene {
	scene := model.NewScene(sequence, model.TimeSpan{Start: start, End: end})
	scene.AudioAnalysis = &model.AudioAnalysisResult{Transcript: transcript}
	return scene
}

func findMatch(t *testing.T, matches []*model.SceneMatch, sceneID string) *model.SceneMatch {
	t.Helper()
	for _, m := range matches {
		if m.SceneID == sceneID {
			return m
		}
	}
	t.Fatalf("scene %s not matched", sceneID)
	return nil
}

func TestMatcherMatchesRelevantScenesOnly(t *testing.T) {
	matcher := services.NewStorylineMatcher(&test.FakeEmbedder{})
	scenes := []*model.Scene{
		// Word-for-word the narrative text, so similarity is exactly 1.
		sceneWithTranscript(1, 0, 10, "bank heist the crew cracks the vault vault"),
		// No shared vocabulary with the narrative.
		sceneWithTranscript(2, 10, 20, "sunny meadow garden breakfast"),
		// Audio stage produced nothing; an empty transcript never matches.
		model.NewScene(3, model.TimeSpan{Start: 20, End: 30}),
	}
	storylines := []*model.UserStoryline{{
		Title:       "Bank heist",
		Description: "the crew cracks the vault",
		Keywords:    []string{"vault"},
	}}

	results, err := matcher.MatchScenesToStorylines(context.Background(), scenes, storylines, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, "Bank heist", result.Title)
	require.Len(t, result.Scenes, 1)

	m := result.Scenes[0]
	assert.Equal(t, "scene_1", m.SceneID)
	assert.InDelta(t, 1.0, m.Score, 0.001)
	assert.InDelta(t, 0.8, m.KeywordMatches["vault"], 0.001)
	assert.InDelta(t, 0.5, m.AudioRelevance, 0.001)
	assert.InDelta(t, 10.0, m.Duration, 0.001)
	assert.Equal(t, scenes[0].Transcript(), m.Transcript)

	assert.InDelta(t, 1.0, result.Score, 0.001)
	assert.InDelta(t, 10.0, result.TotalDuration, 0.001)
}

func TestMatcherExpandsClusterAroundCoreScene(t *testing.T) {
	matcher := services.NewStorylineMatcher(&test.FakeEmbedder{})

	// scene_1 shares all four narrative words plus four of its own, which
	// puts it at similarity 4/sqrt(32) = 0.707, comfortably core.
	// scene_2 shares only one narrative word (similarity 0.25, below the
	// core threshold) but shares four of eight words with scene_1
	// (similarity 0.707), so the expansion pass pulls it in, and its own
	// 0.25 still clears the match floor.
	scenes := []*model.Scene{
		sceneWithTranscript(1, 0, 10, "rooftop chase midnight getaway helicopter searchlight alley ladder"),
		sceneWithTranscript(2, 10, 20, "midnight helicopter searchlight alley"),
	}
	storylines := []*model.UserStoryline{{
		Title:       "Rooftop chase",
		Description: "midnight getaway",
	}}

	results, err := matcher.MatchScenesToStorylines(context.Background(), scenes, storylines, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Scenes, 2)

	// Matches come back in descending score order.
	assert.Equal(t, "scene_1", results[0].Scenes[0].SceneID)
	assert.InDelta(t, 0.7071, results[0].Scenes[0].Score, 0.001)
	assert.Equal(t, "scene_2", results[0].Scenes[1].SceneID)
	assert.InDelta(t, 0.25, results[0].Scenes[1].Score, 0.001)
	assert.InDelta(t, 20.0, results[0].TotalDuration, 0.001)
}

func TestMatcherScoresCharacters(t *testing.T) {
	matcher := services.NewStorylineMatcher(&test.FakeEmbedder{})
	scenes := []*model.Scene{
		sceneWithTranscript(1, 0, 10, "rooftop chase midnight getaway Marlowe waits"),
		sceneWithTranscript(2, 10, 20, "rooftop chase midnight getaway fedora whiskey"),
	}
	storylines := []*model.UserStoryline{{
		Title:       "Rooftop chase",
		Description: "midnight getaway",
		Characters:  []string{"Marlowe"},
	}}
	characters := []*model.Character{{
		Name:        "Marlowe",
		Description: "a weary detective",
		Keywords:    []string{"fedora", "trench", "whiskey", "office"},
	}}

	results, err := matcher.MatchScenesToStorylines(context.Background(), scenes, storylines, characters)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Scenes, 2)

	// A verbatim name mention scores 0.8 outright.
	named := findMatch(t, results[0].Scenes, "scene_1")
	assert.InDelta(t, 0.8, named.CharacterMatches["Marlowe"], 0.001)

	// Two of four character keywords present scores 0.5 * 2/4.
	hinted := findMatch(t, results[0].Scenes, "scene_2")
	assert.InDelta(t, 0.25, hinted.CharacterMatches["Marlowe"], 0.001)

	// The resolved character rides along in the response.
	require.Len(t, results[0].Characters, 1)
	assert.Equal(t, "Marlowe", results[0].Characters[0].Name)
}

func TestMatcherOrdersStorylinesByAggregateScore(t *testing.T) {
	matcher := services.NewStorylineMatcher(&test.FakeEmbedder{})
	scenes := []*model.Scene{
		sceneWithTranscript(1, 0, 10, "harbor storm rescue lighthouse"),
		sceneWithTranscript(2, 10, 20, "desert caravan oasis sandstorm glimmer mirage dune horizon"),
	}
	// Submitted weakest first; the response must come back strongest first.
	storylines := []*model.UserStoryline{
		{Title: "Desert caravan", Description: "oasis sandstorm"},
		{Title: "Harbor storm", Description: "rescue lighthouse"},
	}

	results, err := matcher.MatchScenesToStorylines(context.Background(), scenes, storylines, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Harbor storm", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
	require.Len(t, results[0].Scenes, 1)
	assert.Equal(t, "scene_1", results[0].Scenes[0].SceneID)

	assert.Equal(t, "Desert caravan", results[1].Title)
	assert.InDelta(t, 0.7071, results[1].Score, 0.001)
	require.Len(t, results[1].Scenes, 1)
	assert.Equal(t, "scene_2", results[1].Scenes[0].SceneID)
}

func TestMatcherRaisingExpansionThresholdNeverGrowsCluster(t *testing.T) {
	// Same fixture as the expansion test: scene_2 joins the cluster only
	// through its 0.707 similarity to scene_1. With the expansion
	// threshold raised past that, the cluster loses scene_2 and keeps the
	// rest; a stricter threshold can only ever shrink a cluster.
	scenes := []*model.Scene{
		sceneWithTranscript(1, 0, 10, "rooftop chase midnight getaway helicopter searchlight alley ladder"),
		sceneWithTranscript(2, 10, 20, "midnight helicopter searchlight alley"),
	}
	storylines := []*model.UserStoryline{{
		Title:       "Rooftop chase",
		Description: "midnight getaway",
	}}

	loose := services.NewStorylineMatcher(&test.FakeEmbedder{})
	looseResults, err := loose.MatchScenesToStorylines(context.Background(), scenes, storylines, nil)
	require.NoError(t, err)

	strict := services.NewStorylineMatcher(&test.FakeEmbedder{})
	strict.ExpansionThreshold = 0.8
	strictResults, err := strict.MatchScenesToStorylines(context.Background(), scenes, storylines, nil)
	require.NoError(t, err)

	require.Len(t, looseResults, 1)
	require.Len(t, strictResults, 1)
	assert.LessOrEqual(t, len(strictResults[0].Scenes), len(looseResults[0].Scenes))
	require.Len(t, strictResults[0].Scenes, 1)
	assert.Equal(t, "scene_1", strictResults[0].Scenes[0].SceneID)
}

func TestMatcherKeywordMatchIsScriptAgnostic(t *testing.T) {
	// A greeting in Cyrillic: the keyword machinery works on the raw
	// transcript text, so non-Latin scripts score exactly like Latin ones.
	matcher := services.NewStorylineMatcher(&test.FakeEmbedder{})
	scenes := []*model.Scene{
		sceneWithTranscript(1, 0, 10, "привет"),
		sceneWithTranscript(2, 10, 30, ""),
	}
	storylines := []*model.UserStoryline{{
		Title:    "Greeting",
		Keywords: []string{"привет"},
	}}

	results, err := matcher.MatchScenesToStorylines(context.Background(), scenes, storylines, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Scenes, 1)

	m := results[0].Scenes[0]
	assert.Equal(t, "scene_1", m.SceneID)
	assert.InDelta(t, 0.8, m.KeywordMatches["привет"], 0.001)
}
