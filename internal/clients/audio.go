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

// AudioClient calls the audio analysis sidecar, which transcribes one
// scene's audio and computes its acoustic descriptors. It implements
// analyzers.AudioAnalyzer.
type AudioClient struct {
	http    *HTTP
	baseURL string
}

// NewAudioClient creates a client for the audio service at baseURL.
func NewAudioClient(http *HTTP, baseURL string) *AudioClient {
	return &AudioClient{http: http, baseURL: baseURL}
}

type audioReq struct {
	VideoPath string  `json:"video_path"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// AnalyzeAudio transcribes and characterizes the audio between start and
// end. The sidecar responds with the same shape the pipeline stores, so
// the response decodes straight into the model.
func (a *AudioClient) AnalyzeAudio(ctx context.Context, videoPath string, start, end float64) (*model.AudioAnalysisResult, error) {
	out := &model.AudioAnalysisResult{}
	req := audioReq{VideoPath: videoPath, StartTime: start, EndTime: end}
	if err := a.http.postJSON(ctx, a.baseURL+"/analyze", req, out); err != nil {
		return nil, err
	}
	return out, nil
}
