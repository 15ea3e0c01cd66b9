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

// White-box tests for the matcher's unexported scoring helpers.
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextBonusNeverExceedsOne(t *testing.T) {
	// Scene 1 of narrative 0 sits next to another claim of narrative 0,
	// which is the configuration that earns the bonus.
	transitions := []transition{
		{storylineIdx: 0, sceneIdx: 0},
		{storylineIdx: 0, sceneIdx: 1},
		{storylineIdx: 1, sceneIdx: 2},
	}

	for _, score := range []float64{0.0, 0.2, 0.5, 0.8333, 0.9, 1.0} {
		boosted := applyContextBonus(score, 1, 0, transitions)
		assert.LessOrEqual(t, boosted, 1.0, "score %f boosted past 1.0", score)
		assert.GreaterOrEqual(t, boosted, score, "score %f shrank", score)
	}

	// The 1.2 factor applies below the clamp.
	assert.InDelta(t, 0.6, applyContextBonus(0.5, 1, 0, transitions), 0.001)
}

func TestContextBonusSkipsSequenceEdges(t *testing.T) {
	transitions := []transition{
		{storylineIdx: 0, sceneIdx: 0},
		{storylineIdx: 0, sceneIdx: 1},
		{storylineIdx: 0, sceneIdx: 2},
	}

	// First and last transitions never get the bonus, whatever their
	// neighbors claim.
	assert.InDelta(t, 0.5, applyContextBonus(0.5, 0, 0, transitions), 0.001)
	assert.InDelta(t, 0.5, applyContextBonus(0.5, 2, 0, transitions), 0.001)
}

func TestContextBonusNeedsANeighborOfTheSameNarrative(t *testing.T) {
	// Strictly alternating narratives: the middle scene's neighbors both
	// belong to the other narrative, so its score is untouched.
	transitions := []transition{
		{storylineIdx: 0, sceneIdx: 0},
		{storylineIdx: 1, sceneIdx: 1},
		{storylineIdx: 0, sceneIdx: 2},
	}
	assert.InDelta(t, 0.5, applyContextBonus(0.5, 1, 1, transitions), 0.001)
}
