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

// Package services contains the business logic for interacting with data
// sources. This file, `analyses.go`, defines the AnalysisService, the data
// access layer over the BigQuery table of completed analyses.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
	"google.golang.org/api/iterator"
)

// AnalysisService reads and writes the warehouse rows that summarize
// completed analyses.
type AnalysisService struct {
	BigqueryClient *bigquery.Client // Client for interacting with Google BigQuery.
	DatasetName    string           // The BigQuery dataset (e.g. "storyline_ds").
	AnalysisTable  string           // The table holding analysis summary rows.
}

// GetFQN returns the complete, queryable name for the analysis table,
// formatted with dots instead of colons.
// Example: `gcp-project-id.storyline_ds.analyses`
func (s *AnalysisService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.AnalysisTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Insert appends the summary row of a completed analysis.
func (s *AnalysisService) Insert(ctx context.Context, record *model.AnalysisRecord) error {
	inserter := s.BigqueryClient.Dataset(s.DatasetName).Table(s.AnalysisTable).Inserter()
	return inserter.Put(ctx, record)
}

// Get retrieves the summary row of one analysis by its task id.
func (s *AnalysisService) Get(ctx context.Context, taskID string) (*model.AnalysisRecord, error) {
	queryText := fmt.Sprintf(QryFindAnalysisByTaskID, s.GetFQN(), taskID)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	record := &model.AnalysisRecord{}
	err = itr.Next(record)
	return record, err
}

// ListRecent returns up to limit of the most recently completed analyses,
// newest first.
func (s *AnalysisService) ListRecent(ctx context.Context, limit int) ([]*model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	queryText := fmt.Sprintf(QryListRecentAnalyses, s.GetFQN(), limit)
	return s.readAll(ctx, queryText)
}

// ListForVideo returns every completed analysis of the named video file,
// newest first.
func (s *AnalysisService) ListForVideo(ctx context.Context, videoFileName string) ([]*model.AnalysisRecord, error) {
	queryText := fmt.Sprintf(QryListAnalysesForVideo, s.GetFQN(), videoFileName)
	return s.readAll(ctx, queryText)
}

// readAll runs a query and drains the iterator into a record slice.
func (s *AnalysisService) readAll(ctx context.Context, queryText string) ([]*model.AnalysisRecord, error) {
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.AnalysisRecord, 0)
	for {
		record := &model.AnalysisRecord{}
		err = itr.Next(record)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
