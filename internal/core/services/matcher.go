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

// This file defines the StorylineMatcher, which locates user-described
// narratives inside an analyzed video. The matcher embeds scene transcripts
// and narrative descriptions into a shared vector space, clusters scenes
// around each narrative, scores members against similarity thresholds, and
// rewards scenes that sit inside an unbroken run of the same narrative.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// Scoring thresholds and weights for the matcher. All similarity values are
// cosine similarities in [−1, 1].
const (
	// MinMatchScore is the floor a scene's similarity must exceed to be
	// reported as a match.
	MinMatchScore = 0.2
	// CoreSimilarityThreshold selects the scenes that form the core of a
	// narrative cluster.
	CoreSimilarityThreshold = 0.4
	// ExpansionSimilarityThreshold controls how aggressively the cluster
	// absorbs scenes similar to its core members.
	ExpansionSimilarityThreshold = 0.6

	characterNameScore      = 0.8 // Character name quoted verbatim in the transcript.
	characterKeywordWeight  = 0.5 // Scaled by the fraction of character keywords present.
	characterSemanticWeight = 0.4 // Applied to description-vs-transcript similarity.
	keywordExactScore       = 0.8 // Keyword quoted verbatim in the transcript.
	keywordSemanticWeight   = 0.5 // Applied to keyword-vs-transcript similarity.
	contextBonusFactor      = 1.2 // Reward for scenes inside a run of the same narrative.

	// defaultAudioRelevance is reported for every match until dedicated
	// audio scoring lands; the field exists so the response shape is stable.
	defaultAudioRelevance = 0.5
)

// StorylineMatcher matches analyzed scenes against user narratives.
type StorylineMatcher struct {
	embedder analyzers.TextEmbedder

	// CoreThreshold and ExpansionThreshold control the clustering passes.
	// Raising ExpansionThreshold can only shrink a narrative's cluster,
	// never grow it.
	CoreThreshold      float64
	ExpansionThreshold float64
}

// NewStorylineMatcher creates a matcher on top of the given text embedder
// with the default clustering thresholds.
func NewStorylineMatcher(embedder analyzers.TextEmbedder) *StorylineMatcher {
	return &StorylineMatcher{
		embedder:           embedder,
		CoreThreshold:      CoreSimilarityThreshold,
		ExpansionThreshold: ExpansionSimilarityThreshold,
	}
}

// sceneCluster is the set of scene indices associated with one narrative,
// plus the cluster's average narrative similarity used to break ties when a
// scene belongs to several narratives.
type sceneCluster struct {
	sceneIndices  []int
	avgSimilarity float64
}

// transition marks the scene where the dominant narrative changes along the
// timeline.
type transition struct {
	storylineIdx int
	sceneIdx     int
}

// MatchScenesToStorylines scores every scene against every narrative and
// returns one StorylineWithScenes per narrative, ordered by descending
// aggregate score. Scenes inside a narrative are ordered by descending
// individual score. A scene may appear under several narratives.
func (m *StorylineMatcher) MatchScenesToStorylines(
	ctx context.Context,
	scenes []*model.Scene,
	storylines []*model.UserStoryline,
	characters []*model.Character,
) ([]*model.StorylineWithScenes, error) {
	slog.Info("matching scenes to storylines",
		"scene_count", len(scenes), "storyline_count", len(storylines))

	characterMap := make(map[string]*model.Character, len(characters))
	for _, c := range characters {
		characterMap[c.Name] = c
	}

	sceneEmbeddings, storylineEmbeddings, err := m.createEmbeddings(ctx, scenes, storylines, characterMap)
	if err != nil {
		return nil, fmt.Errorf("failed to embed scenes and storylines: %w", err)
	}

	clusters, err := m.clusterRelatedScenes(ctx, scenes, storylines, sceneEmbeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to cluster scenes: %w", err)
	}
	transitions := detectStorylineTransitions(scenes, clusters)

	results := make([]*model.StorylineWithScenes, 0, len(storylines))
	for storylineIdx, storyline := range storylines {
		matched := make([]*model.SceneMatch, 0)
		for _, idx := range clusters[storylineIdx].sceneIndices {
			scene := scenes[idx]
			score := cosineSimilarity(sceneEmbeddings[idx], storylineEmbeddings[storylineIdx])
			if score <= MinMatchScore {
				continue
			}

			characterMatches, err := m.matchCharacters(ctx, scene, storyline, characterMap)
			if err != nil {
				return nil, err
			}
			keywordMatches, err := m.matchKeywords(ctx, scene, storyline.Keywords)
			if err != nil {
				return nil, err
			}
			score = applyContextBonus(score, idx, storylineIdx, transitions)

			matched = append(matched, &model.SceneMatch{
				SceneID:          scene.ID,
				Score:            math.Min(1.0, score),
				CharacterMatches: characterMatches,
				KeywordMatches:   keywordMatches,
				AudioRelevance:   defaultAudioRelevance,
				StartTime:        scene.StartTime,
				EndTime:          scene.EndTime,
				Duration:         scene.Duration,
				Transcript:       scene.Transcript(),
			})
		}

		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Score > matched[j].Score
		})

		var totalDuration, scoreSum float64
		for _, s := range matched {
			totalDuration += s.Duration
			scoreSum += s.Score
		}
		aggregate := 0.0
		if len(matched) > 0 {
			aggregate = scoreSum / float64(len(matched))
		}

		resolved := make([]*model.Character, 0, len(storyline.Characters))
		for _, name := range storyline.Characters {
			if c, ok := characterMap[name]; ok {
				resolved = append(resolved, c)
			}
		}

		results = append(results, &model.StorylineWithScenes{
			Title:         storyline.Title,
			Description:   storyline.Description,
			Characters:    resolved,
			Keywords:      storyline.Keywords,
			Scenes:        matched,
			TotalDuration: totalDuration,
			Score:         aggregate,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	totalMatches := 0
	for _, r := range results {
		totalMatches += len(r.Scenes)
	}
	slog.Info("storyline matching complete",
		"match_count", totalMatches, "storyline_count", len(results))
	return results, nil
}

// createEmbeddings embeds every scene transcript and every narrative. The
// narrative text for scoring includes the storyline's characters (name,
// description, keywords) so casting details pull the vector toward the
// right scenes.
func (m *StorylineMatcher) createEmbeddings(
	ctx context.Context,
	scenes []*model.Scene,
	storylines []*model.UserStoryline,
	characterMap map[string]*model.Character,
) (sceneEmbeddings [][]float32, storylineEmbeddings [][]float32, err error) {
	sceneEmbeddings = make([][]float32, len(scenes))
	for i, scene := range scenes {
		sceneEmbeddings[i], err = m.embedder.EmbedText(ctx, scene.Transcript())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to embed scene %s: %w", scene.ID, err)
		}
	}

	storylineEmbeddings = make([][]float32, len(storylines))
	for i, storyline := range storylines {
		text := storylineText(storyline)
		for _, name := range storyline.Characters {
			if c, ok := characterMap[name]; ok {
				text += fmt.Sprintf(" %s. %s. %s", c.Name, c.Description, strings.Join(c.Keywords, " "))
			}
		}
		storylineEmbeddings[i], err = m.embedder.EmbedText(ctx, text)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to embed storyline %q: %w", storyline.Title, err)
		}
	}
	return sceneEmbeddings, storylineEmbeddings, nil
}

// storylineText renders the narrative body used for clustering, without
// character expansions.
func storylineText(s *model.UserStoryline) string {
	return fmt.Sprintf("%s. %s. %s", s.Title, s.Description, strings.Join(s.Keywords, " "))
}

// clusterRelatedScenes builds the candidate scene set for each narrative in
// two passes: scenes whose similarity to the narrative clears the core
// threshold seed the cluster, then any scene sufficiently similar to a core
// scene is pulled in. The expansion pass is what lets a wordless reaction
// shot ride in on the dialogue scenes around it.
func (m *StorylineMatcher) clusterRelatedScenes(
	ctx context.Context,
	scenes []*model.Scene,
	storylines []*model.UserStoryline,
	sceneEmbeddings [][]float32,
) (map[int]*sceneCluster, error) {
	// Pairwise scene similarity, reused across narratives.
	sceneSim := make([][]float64, len(scenes))
	for i := range scenes {
		sceneSim[i] = make([]float64, len(scenes))
		for j := range scenes {
			sceneSim[i][j] = cosineSimilarity(sceneEmbeddings[i], sceneEmbeddings[j])
		}
	}

	clusters := make(map[int]*sceneCluster, len(storylines))
	for storylineIdx, storyline := range storylines {
		embedding, err := m.embedder.EmbedText(ctx, storylineText(storyline))
		if err != nil {
			return nil, fmt.Errorf("failed to embed storyline %q: %w", storyline.Title, err)
		}

		similarity := make([]float64, len(scenes))
		for i := range scenes {
			similarity[i] = cosineSimilarity(embedding, sceneEmbeddings[i])
		}

		core := make([]int, 0)
		for i := range scenes {
			if similarity[i] > m.CoreThreshold {
				core = append(core, i)
			}
		}

		related := make(map[int]bool, len(core))
		for _, idx := range core {
			related[idx] = true
			for j := range scenes {
				if sceneSim[idx][j] > m.ExpansionThreshold {
					related[j] = true
				}
			}
		}

		indices := make([]int, 0, len(related))
		for idx := range related {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		avg := 0.0
		if len(indices) > 0 {
			for _, idx := range indices {
				avg += similarity[idx]
			}
			avg /= float64(len(indices))
		}
		clusters[storylineIdx] = &sceneCluster{sceneIndices: indices, avgSimilarity: avg}
	}
	return clusters, nil
}

// detectStorylineTransitions walks the scenes in timeline order and records
// each point where the dominant narrative changes. Scenes claimed by
// several narratives side with the one whose cluster has the higher average
// similarity.
func detectStorylineTransitions(scenes []*model.Scene, clusters map[int]*sceneCluster) []transition {
	order := make([]int, len(scenes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scenes[order[a]].StartTime < scenes[order[b]].StartTime
	})

	sceneToStorylines := make(map[int][]int)
	for storylineIdx, cluster := range clusters {
		for _, sceneIdx := range cluster.sceneIndices {
			sceneToStorylines[sceneIdx] = append(sceneToStorylines[sceneIdx], storylineIdx)
		}
	}
	// Map iteration order is random; keep claims deterministic.
	for _, claims := range sceneToStorylines {
		sort.Ints(claims)
	}

	var sequence []transition
	current := -1
	for _, sceneIdx := range order {
		claims := sceneToStorylines[sceneIdx]
		if len(claims) == 0 {
			continue
		}
		best := claims[0]
		for _, claim := range claims[1:] {
			if clusters[claim].avgSimilarity > clusters[best].avgSimilarity {
				best = claim
			}
		}
		if best != current {
			sequence = append(sequence, transition{storylineIdx: best, sceneIdx: sceneIdx})
			current = best
		}
	}
	return sequence
}

// applyContextBonus boosts a scene's score when it sits strictly between
// transitions and borders a run of its own narrative, then clamps to 1.0.
func applyContextBonus(score float64, sceneIdx, storylineIdx int, transitions []transition) float64 {
	position := -1
	for i, tr := range transitions {
		if tr.storylineIdx == storylineIdx && tr.sceneIdx == sceneIdx {
			position = i
			break
		}
	}
	if position <= 0 || position >= len(transitions)-1 {
		return math.Min(1.0, score)
	}
	prev := transitions[position-1].storylineIdx
	next := transitions[position+1].storylineIdx
	if prev == storylineIdx || next == storylineIdx {
		score *= contextBonusFactor
	}
	return math.Min(1.0, score)
}

// matchCharacters scores each of the narrative's characters against the
// scene transcript. A verbatim name mention wins outright; otherwise the
// character's keywords are counted, and as a last resort the description is
// compared semantically.
func (m *StorylineMatcher) matchCharacters(
	ctx context.Context,
	scene *model.Scene,
	storyline *model.UserStoryline,
	characterMap map[string]*model.Character,
) (map[string]float64, error) {
	transcript := strings.ToLower(scene.Transcript())
	out := make(map[string]float64)

	for _, name := range storyline.Characters {
		character, ok := characterMap[name]
		if !ok {
			continue
		}
		if strings.Contains(transcript, strings.ToLower(name)) {
			out[name] = characterNameScore
			continue
		}

		matchedKeywords := 0
		for _, kw := range character.Keywords {
			if strings.Contains(transcript, strings.ToLower(kw)) {
				matchedKeywords++
			}
		}
		if matchedKeywords > 0 {
			out[name] = characterKeywordWeight * float64(matchedKeywords) / float64(len(character.Keywords))
			continue
		}

		if character.Description != "" && transcript != "" {
			descEmb, err := m.embedder.EmbedText(ctx, character.Description)
			if err != nil {
				return nil, fmt.Errorf("failed to embed character %q: %w", name, err)
			}
			transcriptEmb, err := m.embedder.EmbedText(ctx, scene.Transcript())
			if err != nil {
				return nil, fmt.Errorf("failed to embed transcript of %s: %w", scene.ID, err)
			}
			out[name] = cosineSimilarity(descEmb, transcriptEmb) * characterSemanticWeight
		} else {
			out[name] = 0.0
		}
	}
	return out, nil
}

// matchKeywords scores each narrative keyword against the scene transcript,
// preferring verbatim mentions and falling back to semantic similarity.
func (m *StorylineMatcher) matchKeywords(
	ctx context.Context,
	scene *model.Scene,
	keywords []string,
) (map[string]float64, error) {
	transcript := strings.ToLower(scene.Transcript())
	out := make(map[string]float64)

	for _, keyword := range keywords {
		if strings.Contains(transcript, strings.ToLower(keyword)) {
			out[keyword] = keywordExactScore
			continue
		}
		if transcript == "" {
			out[keyword] = 0.0
			continue
		}
		kwEmb, err := m.embedder.EmbedText(ctx, keyword)
		if err != nil {
			return nil, fmt.Errorf("failed to embed keyword %q: %w", keyword, err)
		}
		transcriptEmb, err := m.embedder.EmbedText(ctx, scene.Transcript())
		if err != nil {
			return nil, fmt.Errorf("failed to embed transcript of %s: %w", scene.ID, err)
		}
		out[keyword] = cosineSimilarity(kwEmb, transcriptEmb) * keywordSemanticWeight
	}
	return out, nil
}
