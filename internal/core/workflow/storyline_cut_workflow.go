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

// This file implements the storyline cut workflow: given a matched
// storyline, it selects the scenes that best fill the clip duration
// budget, renders them into a single video with FFmpeg, uploads the clip
// to GCS, and hands back a signed streaming URL.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/commands"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
)

// signedClipTTL bounds how long a rendered clip link stays valid.
const signedClipTTL = 4 * time.Hour

// StorylineCutWorkflow renders preview clips for matched storylines. Scene
// selection happens in score order against the duration budget; cutting
// happens in playback order.
type StorylineCutWorkflow struct {
	cor.BaseCommand
	selector    *services.SceneSelector
	clipService *services.ClipService
	chain       cor.Chain
}

// NewStorylineCutPipeline is the constructor for the cut workflow.
func NewStorylineCutPipeline(
	selector *services.SceneSelector,
	clipService *services.ClipService,
	ffmpegPath string,
	clipBucket string,
) *StorylineCutWorkflow {
	w := &StorylineCutWorkflow{
		BaseCommand: *cor.NewBaseCommand("storyline-cut-workflow"),
		selector:    selector,
		clipService: clipService,
	}

	out := cor.NewBaseChain(w.GetName())
	// Render the selected scenes into one file, then persist it.
	out.AddCommand(commands.NewClipExtractor("render-clip", ffmpegPath))
	out.AddCommand(commands.NewClipUpload("upload-clip", clipService.StorageClient, clipBucket))
	w.chain = out
	return w
}

// Execute runs the render and upload chain. The input parameter must hold
// the *model.ClipJob to process.
func (w *StorylineCutWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// CutStoryline selects scenes from the matched storyline, renders them and
// returns a signed URL for the uploaded clip. taskID scopes the clip's
// location in the bucket.
func (w *StorylineCutWorkflow) CutStoryline(
	ctx context.Context,
	taskID string,
	videoPath string,
	storyline *model.StorylineWithScenes,
) (string, error) {
	selected := w.selector.SelectScenes(storyline.Scenes)
	if len(selected) == 0 {
		return "", fmt.Errorf("storyline %q has no scenes to cut", storyline.Title)
	}

	// Selection is in score order; playback wants time order.
	ordered := make([]*model.SceneMatch, len(selected))
	copy(ordered, selected)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartTime < ordered[j].StartTime
	})

	job := &model.ClipJob{
		TaskID:    taskID,
		VideoPath: videoPath,
		Scenes:    ordered,
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.SetTaskID(taskID)
	chainCtx.Add(cor.CtxIn, job)
	defer chainCtx.Close()

	w.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for _, err := range chainCtx.GetErrors() {
			return "", fmt.Errorf("clip rendering failed: %w", err)
		}
	}

	objectURL, ok := chainCtx.Get(cor.CtxIn).(string)
	if !ok || objectURL == "" {
		return "", fmt.Errorf("clip rendering produced no output for storyline %q", storyline.Title)
	}

	return w.clipService.GenerateSignedURL(ctx, objectURL, signedClipTTL)
}
