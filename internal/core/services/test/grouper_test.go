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

// Package services_test contains the test suite for the services package.
// This file tests the StorylineGrouper: trivial per-scene grouping,
// anchor selection by duration, proximity membership, and the sharing of
// connective scenes between overlapping storylines.
package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
)

// makeScenes builds scenes from back-to-back time spans, mirroring what the
// segmentation stage produces.
func makeScenes(spans []model.TimeSpan) []*model.Scene {
	out := make([]*model.Scene, 0, len(spans))
	for i, span := range spans {
		out = append(out, model.NewScene(i+1, span))
	}
	return out
}

func sceneIDs(scenes []*model.Scene) []string {
	ids := make([]string, 0, len(scenes))
	for _, s := range scenes {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestGroupNoScenes(t *testing.T) {
	grouper := services.NewStorylineGrouper(0.1)
	storylines := grouper.Group(nil, 3)
	assert.Empty(t, storylines)
}

func TestGroupFewerScenesThanStorylines(t *testing.T) {
	scenes := makeScenes([]model.TimeSpan{
		{Start: 0, End: 10},
		{Start: 10, End: 25},
		{Start: 25, End: 30},
	})

	grouper := services.NewStorylineGrouper(0.1)
	storylines := grouper.Group(scenes, 5)
	require.Len(t, storylines, 3)

	for i, storyline := range storylines {
		assert.Equal(t, scenes[i].StartTime, storyline.StartTime)
		assert.Equal(t, scenes[i].EndTime, storyline.EndTime)
		assert.Equal(t, []string{scenes[i].ID}, sceneIDs(storyline.Scenes))
		assert.Contains(t, storyline.Description, "single scene")
	}
	assert.Equal(t, "storyline_2", storylines[1].ID)
	assert.Equal(t, "Storyline 2", storylines[1].Name)
	assert.InDelta(t, 15.0, storylines[1].Duration, 0.001)
}

func TestGroupAnchorsByDurationWithProximity(t *testing.T) {
	// Longest scenes are scene_2 (17.5s) and scene_5 (17s). The radius is
	// 10% of the 72s timeline, 7.2s.
	scenes := makeScenes([]model.TimeSpan{
		{Start: 0, End: 12.5},
		{Start: 12.5, End: 30},
		{Start: 30, End: 41},
		{Start: 41, End: 55},
		{Start: 55, End: 72},
	})

	grouper := services.NewStorylineGrouper(0.1)
	storylines := grouper.Group(scenes, 2)
	require.Len(t, storylines, 2)

	// scene_1 ends where the anchor starts and scene_3 starts where the
	// anchor ends, so both join scene_2's storyline.
	first := storylines[0]
	assert.Equal(t, []string{"scene_1", "scene_2", "scene_3"}, sceneIDs(first.Scenes))
	assert.InDelta(t, 0.0, first.StartTime, 0.001)
	assert.InDelta(t, 41.0, first.EndTime, 0.001)
	assert.Contains(t, first.Description, "across 3 scenes")

	// scene_4 borders scene_5's start; scene_3 is 14s away and stays out.
	second := storylines[1]
	assert.Equal(t, []string{"scene_4", "scene_5"}, sceneIDs(second.Scenes))
	assert.InDelta(t, 41.0, second.StartTime, 0.001)
	assert.InDelta(t, 72.0, second.EndTime, 0.001)
	assert.InDelta(t, 31.0, second.Duration, 0.001)
}

func TestGroupSharesConnectiveScenes(t *testing.T) {
	// The middle scene borders both anchors, so it appears in both
	// storylines. Deduplication is deliberately not performed.
	scenes := makeScenes([]model.TimeSpan{
		{Start: 0, End: 20},
		{Start: 20, End: 30},
		{Start: 30, End: 50},
	})

	grouper := services.NewStorylineGrouper(0.1)
	storylines := grouper.Group(scenes, 2)
	require.Len(t, storylines, 2)

	assert.Equal(t, []string{"scene_1", "scene_2"}, sceneIDs(storylines[0].Scenes))
	assert.Equal(t, []string{"scene_2", "scene_3"}, sceneIDs(storylines[1].Scenes))
}

func TestGroupDefaultsToThreeStorylines(t *testing.T) {
	scenes := makeScenes([]model.TimeSpan{
		{Start: 0, End: 5},
		{Start: 5, End: 15},
		{Start: 15, End: 18},
		{Start: 18, End: 40},
	})

	grouper := services.NewStorylineGrouper(0.1)
	storylines := grouper.Group(scenes, 0)
	assert.Len(t, storylines, 3)
}
