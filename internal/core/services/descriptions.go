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

// This file defines the SceneDescriptionService, which turns analyzed
// scenes into human-readable descriptions by captioning each scene's
// first stored frame and appending the scene's dialogue.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// DefaultMaxDescribedScenes caps how many scenes one description request
// sends to the captioning model.
const DefaultMaxDescribedScenes = 10

// SceneDescriptionService captions scenes through an image captioner. A
// scene is describable when its frame stage stored at least one frame
// with a path on disk; scenes without stored frames are skipped, not
// failed.
type SceneDescriptionService struct {
	captioner analyzers.ImageCaptioner
	prompt    string
}

// NewSceneDescriptionService creates the service around the given
// captioner. The prompt is passed with every frame; empty means the
// captioner's own default.
func NewSceneDescriptionService(captioner analyzers.ImageCaptioner, prompt string) *SceneDescriptionService {
	return &SceneDescriptionService{captioner: captioner, prompt: prompt}
}

// describableFramePath returns the path of the scene's first stored frame,
// or the empty string when the scene has nothing to caption.
func describableFramePath(scene *model.Scene) string {
	if scene.FrameAnalysis == nil || len(scene.FrameAnalysis.FrameInfo) == 0 {
		return ""
	}
	return scene.FrameAnalysis.FrameInfo[0].FramePath
}

// DescribeScenes captions up to maxScenes scenes and returns descriptions
// keyed by scene id. When sceneIDs is non-empty only those scenes are
// considered. A scene whose transcript is non-empty gets the dialogue
// appended to its caption. Captioner failures skip the scene; one bad
// frame never fails the batch.
func (s *SceneDescriptionService) DescribeScenes(
	ctx context.Context,
	scenes []*model.Scene,
	sceneIDs []string,
	maxScenes int,
) map[string]string {
	if maxScenes <= 0 {
		maxScenes = DefaultMaxDescribedScenes
	}

	wanted := make(map[string]bool, len(sceneIDs))
	for _, id := range sceneIDs {
		wanted[id] = true
	}

	out := make(map[string]string)
	for _, scene := range scenes {
		if len(out) >= maxScenes {
			break
		}
		if len(wanted) > 0 && !wanted[scene.ID] {
			continue
		}
		framePath := describableFramePath(scene)
		if framePath == "" {
			slog.Warn("scene has no stored frames to describe", "scene_id", scene.ID)
			continue
		}

		caption, err := s.captioner.CaptionImage(ctx, framePath, s.prompt)
		if err != nil {
			slog.Warn("failed to caption scene frame",
				"scene_id", scene.ID, "frame_path", framePath, "error", err)
			continue
		}
		if transcript := scene.Transcript(); transcript != "" {
			caption = fmt.Sprintf("%s (Dialogue: %q)", caption, transcript)
		}
		out[scene.ID] = caption
	}

	slog.Info("scene descriptions generated", "described", len(out), "scenes", len(scenes))
	return out
}
