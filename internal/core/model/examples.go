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

// This file, `examples.go`, provides factory functions for hardcoded example
// instances of the data models. They serve two purposes: tests use them as
// ready-made fixtures, and the API layer returns them from its documentation
// endpoints so clients can see the exact request shape the matchers expect.
package model

// GetExampleScene creates a sample analyzed Scene, complete with a
// transcript and a pair of frame embeddings, as the pipeline would produce
// it for a short dialogue scene.
func GetExampleScene() *Scene {
	scene := NewScene(1, TimeSpan{Start: 0.0, End: 12.5})
	scene.AudioAnalysis = &AudioAnalysisResult{
		Transcript: "Captain, the storm is getting worse. We have to turn back now.",
		Language:   "en",
		Segments: []*TranscriptSegment{
			{Start: 0.4, End: 4.2, Text: "Captain, the storm is getting worse."},
			{Start: 4.8, End: 7.1, Text: "We have to turn back now."},
		},
		AudioFeatures: map[string]float64{"energy": 0.72, "tempo": 1.1},
	}
	scene.FrameAnalysis = &FrameAnalysisResult{
		Embeddings:   [][]float32{{0.11, -0.42, 0.87}, {0.09, -0.40, 0.90}},
		FrameInfo:    []*FrameInfo{{Time: 3.1, RelativePosition: 0.25}, {Time: 9.3, RelativePosition: 0.75}},
		EmbeddingDim: 3,
		NumFrames:    2,
	}
	return scene
}

// GetExampleUserStoryline creates a sample narrative request of the shape
// the full matcher accepts.
func GetExampleUserStoryline() *UserStoryline {
	return &UserStoryline{
		Title:       "The Captain's Dilemma",
		Description: "The captain must choose between the safety of the crew and completing the voyage as the storm closes in.",
		Characters:  []string{"Captain Reyes"},
		Keywords:    []string{"storm", "turn back", "voyage"},
	}
}

// GetExampleCharacters creates the character roster that accompanies the
// example storyline.
func GetExampleCharacters() []*Character {
	return []*Character{
		{
			Name:        "Captain Reyes",
			Description: "Weathered captain of the fishing vessel, torn between duty and caution.",
			Keywords:    []string{"captain", "helm", "orders"},
		},
		{
			Name:        "Mateo",
			Description: "First mate, the voice of the crew.",
			Keywords:    []string{"first mate", "crew"},
		},
	}
}

// GetExamplePlot creates a sample plot of the shape the simple matcher
// accepts.
func GetExamplePlot() *Plot {
	return &Plot{
		ID:          "plot_1",
		Title:       "Storm at Sea",
		Description: "A fishing vessel is caught in a violent storm and the crew fights to keep her afloat.",
		Keywords:    []string{"storm", "sea", "crew"},
	}
}
