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

package clients

import (
	"context"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// FrameClient calls the frame analysis sidecar, which samples frames from
// one scene and embeds them with a vision model. It implements
// analyzers.FrameAnalyzer.
type FrameClient struct {
	http    *HTTP
	baseURL string
}

// NewFrameClient creates a client for the frame service at baseURL.
func NewFrameClient(http *HTTP, baseURL string) *FrameClient {
	return &FrameClient{http: http, baseURL: baseURL}
}

type frameReq struct {
	VideoPath string  `json:"video_path"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// AnalyzeFrames samples and embeds frames between start and end.
func (f *FrameClient) AnalyzeFrames(ctx context.Context, videoPath string, start, end float64) (*model.FrameAnalysisResult, error) {
	out := &model.FrameAnalysisResult{}
	req := frameReq{VideoPath: videoPath, StartTime: start, EndTime: end}
	if err := f.http.postJSON(ctx, f.baseURL+"/embed", req, out); err != nil {
		return nil, err
	}
	return out, nil
}
