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

// This file, `persistent.go`, defines the models written to BigQuery. The
// full VideoAnalysisResult stays in blob storage; what lands in the
// warehouse is a flat summary row per completed analysis, suitable for
// dashboards and cross-video queries.
package model

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisRecord is the BigQuery row summarizing one completed analysis.
// The struct tags map directly to the column names of the analysis table.
type AnalysisRecord struct {
	ID                  string    `json:"id" bigquery:"id"`
	TaskID              string    `json:"task_id" bigquery:"task_id"`
	VideoFileName       string    `json:"video_file_name" bigquery:"video_file_name"`
	Duration            float64   `json:"duration" bigquery:"duration"`
	TotalScenes         int       `json:"total_scenes" bigquery:"total_scenes"`
	StorylineCount      int       `json:"storyline_count" bigquery:"storyline_count"`
	AnalysisTimeSeconds float64   `json:"analysis_time_seconds" bigquery:"analysis_time_seconds"`
	CompletedAt         time.Time `json:"completed_at" bigquery:"completed_at"`
}

// NewAnalysisRecord flattens a finished analysis into its warehouse row.
// The record ID is a UUIDv5 hash of the task id, so re-inserting the same
// task produces the same key rather than a duplicate identity.
func NewAnalysisRecord(taskID string, result *VideoAnalysisResult) *AnalysisRecord {
	out := &AnalysisRecord{
		ID:             uuid.NewSHA1(uuid.NameSpaceURL, []byte(taskID)).String(),
		TaskID:         taskID,
		VideoFileName:  result.VideoFileName,
		Duration:       result.Duration,
		TotalScenes:    result.TotalScenes,
		StorylineCount: len(result.Storylines),
		CompletedAt:    time.Now(),
	}
	if result.Metadata != nil {
		out.AnalysisTimeSeconds = result.Metadata.AnalysisTimeSeconds
	}
	return out
}
