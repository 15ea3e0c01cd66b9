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

// This file tests the SceneSelector: greedy selection under the duration
// budget, the single overflow concession, and the backfill floor.
package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
)

func match(id string, score, duration float64) *model.SceneMatch {
	return &model.SceneMatch{SceneID: id, Score: score, Duration: duration}
}

func matchIDs(matches []*model.SceneMatch) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.SceneID)
	}
	return ids
}

func TestSelectScenesAllFitUnderBudget(t *testing.T) {
	selector := services.NewSceneSelector(180)
	selected := selector.SelectScenes([]*model.SceneMatch{
		match("scene_3", 0.7, 50),
		match("scene_1", 0.9, 60),
		match("scene_2", 0.8, 60),
	})

	// Everything fits in 180s; the result is in descending score order
	// regardless of input order.
	assert.Equal(t, []string{"scene_1", "scene_2", "scene_3"}, matchIDs(selected))
}

func TestSelectScenesOverflowAcceptedWhenCloserToTarget(t *testing.T) {
	// 70s selected, the next 50s scene overflows to 120s. That is 20s past
	// the 100s target versus 30s short without it, so the scene is taken
	// and selection ends.
	selector := services.NewSceneSelector(100)
	selected := selector.SelectScenes([]*model.SceneMatch{
		match("scene_1", 0.9, 70),
		match("scene_2", 0.8, 50),
	})

	assert.Equal(t, []string{"scene_1", "scene_2"}, matchIDs(selected))
}

func TestSelectScenesOverflowAcceptedOnDistanceTie(t *testing.T) {
	// Two 40s scenes leave the total at 80s; a third lands at 120s. Both
	// are 20s from the 100s target, and the tie goes to taking the scene.
	selector := services.NewSceneSelector(100)
	selected := selector.SelectScenes([]*model.SceneMatch{
		match("scene_1", 0.9, 40),
		match("scene_2", 0.8, 40),
		match("scene_3", 0.7, 40),
		match("scene_4", 0.6, 40),
		match("scene_5", 0.5, 40),
	})

	assert.Equal(t, []string{"scene_1", "scene_2", "scene_3"}, matchIDs(selected))
}

func TestSelectScenesOverflowRejectedWhenFurtherFromTarget(t *testing.T) {
	// 85s selected, adding 40s would land 25s over versus 15s under, so
	// the overflow is rejected. 85s clears the 80% floor, no backfill.
	selector := services.NewSceneSelector(100)
	selected := selector.SelectScenes([]*model.SceneMatch{
		match("scene_1", 0.9, 85),
		match("scene_2", 0.8, 40),
	})

	assert.Equal(t, []string{"scene_1"}, matchIDs(selected))
}

func TestSelectScenesBackfillsBelowFloor(t *testing.T) {
	// Greedy selection stops at 40s, well under the 80s floor, because the
	// 150s scene overshoots too far. Backfill then pulls it in anyway
	// rather than ship a clip at less than 80% of the target.
	selector := services.NewSceneSelector(100)
	selected := selector.SelectScenes([]*model.SceneMatch{
		match("scene_1", 0.9, 40),
		match("scene_2", 0.8, 150),
		match("scene_3", 0.7, 30),
	})

	require.Len(t, selected, 2)
	assert.Equal(t, []string{"scene_1", "scene_2"}, matchIDs(selected))
}

func TestSelectScenesEmptyInput(t *testing.T) {
	selector := services.NewSceneSelector(100)
	assert.Empty(t, selector.SelectScenes(nil))
}

func TestSelectorDefaultsTarget(t *testing.T) {
	selector := services.NewSceneSelector(0)
	assert.InDelta(t, services.DefaultTargetDuration, selector.TargetDuration, 0.001)
}
