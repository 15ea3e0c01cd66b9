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

// This file centralizes the BigQuery SQL used by the analysis services.
// Queries are `fmt.Sprintf` templates; the placeholders are filled with the
// fully qualified table name and query parameters at runtime.
package services

const (
	// QryFindAnalysisByTaskID looks up the warehouse row of one analysis by
	// its task id.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the analysis table.
	// - `%s`: The task id to find.
	QryFindAnalysisByTaskID = "SELECT * FROM `%s` WHERE task_id = '%s'"

	// QryListRecentAnalyses returns the most recent completed analyses,
	// newest first.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the analysis table.
	// - `%d`: The maximum number of rows to return.
	QryListRecentAnalyses = "SELECT * FROM `%s` ORDER BY completed_at DESC LIMIT %d"

	// QryListAnalysesForVideo returns every completed analysis of one video
	// file, newest first. The same file can be analyzed repeatedly with
	// different storyline counts, so this is a list rather than a lookup.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the analysis table.
	// - `%s`: The video file name.
	QryListAnalysesForVideo = "SELECT * FROM `%s` WHERE video_file_name = '%s' ORDER BY completed_at DESC"
)
