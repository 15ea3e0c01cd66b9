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

// This file tests the SceneDescriptionService against a function-backed
// captioner: which scenes get captioned, how dialogue is appended, and
// that one failing frame never fails the batch.
package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
	test "github.com/jaycherian/gcp-go-storyline-engine/internal/testutil"
)

// sceneWithFrame builds an analyzed scene whose frame stage stored one
// frame at the given path. An empty path leaves the frame stage with no
// stored frames.
func sceneWithFrame(sequence int, start, end float64, framePath string) *model.Scene {
	scene := model.NewScene(sequence, model.TimeSpan{Start: start, End: end})
	scene.FrameAnalysis = &model.FrameAnalysisResult{}
	if framePath != "" {
		scene.FrameAnalysis.FrameInfo = []*model.FrameInfo{{Time: start, FramePath: framePath}}
	}
	return scene
}

func TestDescribeScenesCaptionsFirstStoredFrame(t *testing.T) {
	captioner := &test.FakeImageCaptioner{
		Fn: func(_ context.Context, imagePath string, _ string) (string, error) {
			return "a frame from " + imagePath, nil
		},
	}
	service := services.NewSceneDescriptionService(captioner, "")

	silent := sceneWithFrame(1, 0, 10, "/frames/scene_1_f0.jpg")
	talking := sceneWithFrame(2, 10, 20, "/frames/scene_2_f0.jpg")
	talking.AudioAnalysis = &model.AudioAnalysisResult{Transcript: "we meet again"}
	frameless := model.NewScene(3, model.TimeSpan{Start: 20, End: 30})

	descriptions := service.DescribeScenes(context.Background(),
		[]*model.Scene{silent, talking, frameless}, nil, 0)

	require.Len(t, descriptions, 2)
	assert.Equal(t, "a frame from /frames/scene_1_f0.jpg", descriptions["scene_1"])
	assert.Equal(t, `a frame from /frames/scene_2_f0.jpg (Dialogue: "we meet again")`, descriptions["scene_2"])
	assert.NotContains(t, descriptions, "scene_3")
	assert.Equal(t, 2, captioner.Calls())
}

func TestDescribeScenesFiltersAndCaps(t *testing.T) {
	captioner := &test.FakeImageCaptioner{
		Fn: func(_ context.Context, _ string, _ string) (string, error) {
			return "caption", nil
		},
	}
	service := services.NewSceneDescriptionService(captioner, "")

	var scenes []*model.Scene
	for i := 1; i <= 15; i++ {
		scenes = append(scenes, sceneWithFrame(i, float64(i), float64(i+1),
			fmt.Sprintf("/frames/scene_%d_f0.jpg", i)))
	}

	// An explicit id list restricts the batch to those scenes.
	descriptions := service.DescribeScenes(context.Background(), scenes,
		[]string{"scene_4", "scene_9"}, 0)
	require.Len(t, descriptions, 2)
	assert.Contains(t, descriptions, "scene_4")
	assert.Contains(t, descriptions, "scene_9")

	// Without a list the default cap bounds the batch.
	descriptions = service.DescribeScenes(context.Background(), scenes, nil, 0)
	assert.Len(t, descriptions, services.DefaultMaxDescribedScenes)

	descriptions = service.DescribeScenes(context.Background(), scenes, nil, 3)
	require.Len(t, descriptions, 3)
	assert.Contains(t, descriptions, "scene_1")
	assert.Contains(t, descriptions, "scene_3")
}

func TestDescribeScenesSkipsFailedCaptions(t *testing.T) {
	captioner := &test.FakeImageCaptioner{
		Fn: func(_ context.Context, imagePath string, _ string) (string, error) {
			if imagePath == "/frames/scene_2_f0.jpg" {
				return "", errors.New("model unavailable")
			}
			return "caption", nil
		},
	}
	service := services.NewSceneDescriptionService(captioner, "")

	scenes := []*model.Scene{
		sceneWithFrame(1, 0, 10, "/frames/scene_1_f0.jpg"),
		sceneWithFrame(2, 10, 20, "/frames/scene_2_f0.jpg"),
		sceneWithFrame(3, 20, 30, "/frames/scene_3_f0.jpg"),
	}

	descriptions := service.DescribeScenes(context.Background(), scenes, nil, 0)

	require.Len(t, descriptions, 2)
	assert.Contains(t, descriptions, "scene_1")
	assert.Contains(t, descriptions, "scene_3")
	assert.NotContains(t, descriptions, "scene_2")
	assert.Equal(t, 3, captioner.Calls())
}
