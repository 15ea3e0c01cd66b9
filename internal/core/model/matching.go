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

// This file, `matching.go`, contains the structs exchanged with the
// storyline matchers: the user-authored narrative descriptions that come in,
// and the scored scene matches that come out.
package model

// Character describes a person the user expects to appear in their
// narratives. Keywords are free-form hints (catchphrases, props, places)
// that help the matcher recognize the character in a transcript.
type Character struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// UserStoryline is a narrative a user wants located inside a video:
// a title, a prose description, the characters involved, and keywords
// that should surface in matching scenes.
type UserStoryline struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Characters  []string `json:"characters,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Text renders the storyline as a single string for embedding.
func (u *UserStoryline) Text() string {
	out := u.Title + ". " + u.Description
	for _, k := range u.Keywords {
		out += " " + k
	}
	return out
}

// SceneMatch is one scene scored against one user storyline. Score is the
// final combined value in [0, 1]; the per-character and per-keyword maps
// preserve the breakdown so callers can explain why a scene matched.
type SceneMatch struct {
	SceneID          string             `json:"scene_id"`
	Score            float64            `json:"score"`
	CharacterMatches map[string]float64 `json:"character_matches,omitempty"`
	KeywordMatches   map[string]float64 `json:"keyword_matches,omitempty"`
	AudioRelevance   float64            `json:"audio_relevance"`
	StartTime        float64            `json:"start_time"`
	EndTime          float64            `json:"end_time"`
	Duration         float64            `json:"duration"`
	Transcript       string             `json:"transcript,omitempty"`
}

// StorylineWithScenes is the matcher output for one user storyline: the
// narrative echoed back together with its matched scenes, ordered by
// descending score. Score aggregates the member scene scores.
type StorylineWithScenes struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Characters    []*Character  `json:"characters,omitempty"`
	Keywords      []string      `json:"keywords,omitempty"`
	Scenes        []*SceneMatch `json:"scenes"`
	TotalDuration float64       `json:"total_duration"`
	Score         float64       `json:"score"`
}

// Plot is the lightweight narrative input accepted by the simple matcher.
type Plot struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Text renders the plot as a single string for embedding.
func (p *Plot) Text() string {
	out := p.Title + ". " + p.Description
	for _, k := range p.Keywords {
		out += " " + k
	}
	return out
}

// PlotMatch is the simple matcher's scored pairing of one scene with one
// plot, with the text and image components reported separately.
type PlotMatch struct {
	SceneID         string  `json:"scene_id"`
	PlotID          string  `json:"plot_id"`
	Score           float64 `json:"score"`
	TextSimilarity  float64 `json:"text_similarity"`
	ImageSimilarity float64 `json:"image_similarity"`
	StartTime       float64 `json:"start_time"`
	EndTime         float64 `json:"end_time"`
}
