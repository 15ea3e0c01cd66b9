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

// SegmenterClient calls the scene segmentation sidecar, which runs shot
// boundary detection over a video and returns the cut points. It
// implements analyzers.SceneSegmenter.
type SegmenterClient struct {
	http    *HTTP
	baseURL string
}

// NewSegmenterClient creates a client for the segmentation service at baseURL.
func NewSegmenterClient(http *HTTP, baseURL string) *SegmenterClient {
	return &SegmenterClient{http: http, baseURL: baseURL}
}

type segmentReq struct {
	VideoPath string `json:"video_path"`
}

type segmentResp struct {
	Scenes []struct {
		StartTime float64 `json:"start_time"`
		EndTime   float64 `json:"end_time"`
	} `json:"scenes"`
}

// SegmentScenes returns the ordered scene boundaries of the video. An
// empty list is a valid response and means the detector found no cuts.
func (s *SegmenterClient) SegmentScenes(ctx context.Context, videoPath string) ([]model.TimeSpan, error) {
	var resp segmentResp
	if err := s.http.postJSON(ctx, s.baseURL+"/segment", segmentReq{VideoPath: videoPath}, &resp); err != nil {
		return nil, err
	}
	spans := make([]model.TimeSpan, 0, len(resp.Scenes))
	for _, sc := range resp.Scenes {
		spans = append(spans, model.TimeSpan{Start: sc.StartTime, End: sc.EndTime})
	}
	return spans, nil
}
