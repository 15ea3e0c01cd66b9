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

// This file defines the StorylineGrouper, the pipeline stage that turns a
// flat list of scenes into storylines. Grouping is purely temporal: the
// longest scenes anchor the storylines and nearby scenes join them. The
// grouper asks nothing of the analysis results, so it works even for scenes
// whose audio or frame stages failed.
package services

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// DefaultProximityRadiusPercent is the fraction of the total video duration
// used as the scene proximity radius.
const DefaultProximityRadiusPercent = 0.1

// StorylineGrouper groups scenes into storylines by temporal proximity.
type StorylineGrouper struct {
	// ProximityRadiusPercent is the scene proximity radius expressed as a
	// fraction of total video duration.
	ProximityRadiusPercent float64
}

// NewStorylineGrouper creates a grouper with the given proximity radius.
// Non-positive values fall back to the default.
func NewStorylineGrouper(proximityRadiusPercent float64) *StorylineGrouper {
	if proximityRadiusPercent <= 0 {
		proximityRadiusPercent = DefaultProximityRadiusPercent
	}
	return &StorylineGrouper{ProximityRadiusPercent: proximityRadiusPercent}
}

// Group organizes scenes into at most numStorylines storylines.
//
// When the video has no more scenes than requested storylines, every scene
// becomes its own storyline. Otherwise the numStorylines longest scenes are
// chosen as anchors, and every scene whose start or end falls within the
// proximity radius of an anchor joins that anchor's storyline. A scene may
// belong to several storylines; the deduplication non-goal is deliberate,
// overlapping narratives share their connective scenes.
//
// The input scene order is preserved as the timeline: the total video
// duration used for the radius is the end time of the last scene.
func (g *StorylineGrouper) Group(scenes []*model.Scene, numStorylines int) []*model.Storyline {
	if len(scenes) == 0 {
		slog.Warn("no scenes provided to storyline grouper")
		return []*model.Storyline{}
	}
	if numStorylines <= 0 {
		numStorylines = 3
	}
	slog.Info("grouping scenes into storylines",
		"scene_count", len(scenes), "num_storylines", numStorylines)

	if len(scenes) <= numStorylines {
		out := make([]*model.Storyline, 0, len(scenes))
		for i, scene := range scenes {
			out = append(out, &model.Storyline{
				ID:          fmt.Sprintf("storyline_%d", i+1),
				Name:        fmt.Sprintf("Storyline %d", i+1),
				Description: fmt.Sprintf("Narrative consisting of a single scene lasting %.1f seconds", scene.Duration),
				Scenes:      []*model.Scene{scene},
				StartTime:   scene.StartTime,
				EndTime:     scene.EndTime,
				Duration:    scene.Duration,
			})
		}
		return out
	}

	// The longest scenes anchor the storylines.
	anchors := make([]*model.Scene, len(scenes))
	copy(anchors, scenes)
	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].Duration > anchors[j].Duration
	})
	anchors = anchors[:numStorylines]

	videoDuration := scenes[len(scenes)-1].EndTime
	radius := videoDuration * g.ProximityRadiusPercent

	out := make([]*model.Storyline, 0, numStorylines)
	for i, anchor := range anchors {
		members := []*model.Scene{anchor}
		for _, scene := range scenes {
			if scene.ID == anchor.ID {
				continue
			}
			if math.Abs(scene.StartTime-anchor.EndTime) < radius ||
				math.Abs(scene.EndTime-anchor.StartTime) < radius {
				members = append(members, scene)
			}
		}
		sort.SliceStable(members, func(a, b int) bool {
			return members[a].StartTime < members[b].StartTime
		})

		start := members[0].StartTime
		end := members[len(members)-1].EndTime
		duration := end - start
		out = append(out, &model.Storyline{
			ID:          fmt.Sprintf("storyline_%d", i+1),
			Name:        fmt.Sprintf("Storyline %d", i+1),
			Description: fmt.Sprintf("Narrative lasting %.1f seconds across %d scenes", duration, len(members)),
			Scenes:      members,
			StartTime:   start,
			EndTime:     end,
			Duration:    duration,
		})
	}
	return out
}
