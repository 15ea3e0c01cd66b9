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

// This file defines the SceneSelector, which picks the scenes for a
// storyline clip against a duration budget. Selection is greedy by score
// with a single overflow concession, then backfills with lower-scored
// scenes when the clip would otherwise run too short.
package services

import (
	"log/slog"
	"math"
	"sort"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

const (
	// DefaultTargetDuration is the clip duration budget in seconds.
	DefaultTargetDuration = 180.0
	// minFillRatio is the fraction of the target below which the selector
	// backfills with lower-scored scenes.
	minFillRatio = 0.8
)

// SceneSelector selects scenes for storyline clips.
type SceneSelector struct {
	// TargetDuration is the clip duration budget in seconds.
	TargetDuration float64
}

// NewSceneSelector creates a selector with the given duration budget.
// Non-positive values fall back to the default three minutes.
func NewSceneSelector(targetDuration float64) *SceneSelector {
	if targetDuration <= 0 {
		targetDuration = DefaultTargetDuration
	}
	return &SceneSelector{TargetDuration: targetDuration}
}

// SelectScenes chooses which matched scenes make the clip.
//
// Scenes are considered in descending score order. Each scene that fits
// under the budget is taken. The first scene that would overflow is taken
// anyway if doing so lands closer to the target than stopping short, and
// selection ends there either way. If the picked scenes cover less than 80%
// of the target and candidates remain, the selector backfills from the
// remaining scenes, still in score order, until the 80% floor is reached.
//
// The returned slice preserves score order; callers cutting a clip should
// re-sort by start time.
func (s *SceneSelector) SelectScenes(scenes []*model.SceneMatch) []*model.SceneMatch {
	byScore := make([]*model.SceneMatch, len(scenes))
	copy(byScore, scenes)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].Score > byScore[j].Score
	})

	selected := make([]*model.SceneMatch, 0, len(byScore))
	picked := make(map[*model.SceneMatch]bool, len(byScore))
	total := 0.0

	for _, scene := range byScore {
		if total+scene.Duration <= s.TargetDuration {
			selected = append(selected, scene)
			picked[scene] = true
			total += scene.Duration
			continue
		}
		// One overflow concession: take the scene if that lands at least
		// as close to the target as stopping here.
		if math.Abs(total+scene.Duration-s.TargetDuration) <= math.Abs(total-s.TargetDuration) {
			selected = append(selected, scene)
			picked[scene] = true
			total += scene.Duration
		}
		break
	}

	slog.Info("scene selection pass complete",
		"selected", len(selected), "candidates", len(byScore),
		"total_duration", total, "target_duration", s.TargetDuration)

	if total < minFillRatio*s.TargetDuration && len(selected) < len(byScore) {
		slog.Info("clip under minimum duration, backfilling with lower-scored scenes",
			"total_duration", total, "floor", minFillRatio*s.TargetDuration)
		for _, scene := range byScore {
			if picked[scene] {
				continue
			}
			selected = append(selected, scene)
			picked[scene] = true
			total += scene.Duration
			if total >= minFillRatio*s.TargetDuration {
				break
			}
		}
	}

	return selected
}
