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

// This file defines the command that records a completed analysis in
// BigQuery. The blob store already holds the full result; this row is the
// queryable summary the catalog endpoints are built on.
//
// The command streams the row through a BigQuery Inserter rather than
// running an INSERT statement. The client library maps the struct fields
// to table columns through the `bigquery` struct tags on AnalysisRecord.
// A write failure here does not fail the task: the analysis result itself
// is already persisted, so the catalog row is recorded as an error and the
// chain continues.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/services"
)

// AnalysisPersistToBigQuery is a command that saves an analysis summary
// row to BigQuery.
type AnalysisPersistToBigQuery struct {
	cor.BaseCommand
	service *services.AnalysisService
}

// NewAnalysisPersistToBigQuery is the constructor for the
// AnalysisPersistToBigQuery command.
func NewAnalysisPersistToBigQuery(name string, service *services.AnalysisService) *AnalysisPersistToBigQuery {
	return &AnalysisPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), service: service}
}

// IsExecutable requires an assembled result in the context before running.
func (s *AnalysisPersistToBigQuery) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(GetAnalysisResultName()) != nil
}

// Execute builds the summary record and streams it into the analysis table.
func (s *AnalysisPersistToBigQuery) Execute(context cor.Context) {
	result := context.Get(GetAnalysisResultName()).(*model.VideoAnalysisResult)
	record := model.NewAnalysisRecord(context.GetTaskID(), result)

	if err := s.service.Insert(context.GetContext(), record); err != nil {
		slog.Error("failed to write analysis record to BigQuery",
			"task_id", record.TaskID, "video", record.VideoFileName, "error", err)
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.Add(s.GetOutputParam(), result)
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), result)
	slog.Info("persisted analysis record",
		"task_id", record.TaskID, "video", record.VideoFileName)
}
