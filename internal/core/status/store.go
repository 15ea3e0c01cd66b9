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

// This file defines the Store, the authority on task state. Live state is
// an in-memory map guarded by a mutex; completed results are persisted
// through the BlobStore so they survive a process restart. Reads fall back
// to blob storage for tasks the current process has never seen, which is
// what lets a restarted server keep answering for analyses finished by a
// previous one.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// resultPrefix is where completed analysis results live in blob storage.
const resultPrefix = "results"

// Reporter is the narrow interface pipeline commands use to publish task
// state. *Store satisfies it; tests substitute a recording implementation.
type Reporter interface {
	// SetStatus updates the live state of a task. Progress is a fraction in
	// [0, 1] and never moves backward while a task is processing.
	SetStatus(taskID string, st model.TaskStatus, message string, progress float64)

	// SaveResult persists the final artifact of a task and marks the task
	// completed.
	SaveResult(ctx context.Context, taskID string, result *model.VideoAnalysisResult) error
}

// Store tracks the state of every analysis task this process knows about.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*model.TaskState
	blobs BlobStore
}

// NewStore creates a Store backed by the given blob store.
func NewStore(blobs BlobStore) *Store {
	return &Store{
		tasks: make(map[string]*model.TaskState),
		blobs: blobs,
	}
}

// Init scans blob storage for results persisted by previous runs and
// registers their tasks as completed. Results are hydrated lazily on first
// read rather than loaded up front.
func (s *Store) Init(ctx context.Context) error {
	keys, err := s.blobs.List(ctx, resultPrefix)
	if err != nil {
		return fmt.Errorf("failed to scan persisted results: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		taskID := strings.TrimSuffix(path.Base(key), ".json")
		if taskID == "" {
			continue
		}
		if _, ok := s.tasks[taskID]; ok {
			continue
		}
		s.tasks[taskID] = &model.TaskState{
			TaskID:      taskID,
			Status:      model.TaskStatusCompleted,
			Message:     "Analysis complete",
			Progress:    1.0,
			LastUpdated: time.Now(),
		}
	}
	slog.Info("status store initialized", "recovered_tasks", len(s.tasks))
	return nil
}

// SetStatus updates the live state of a task, creating the entry on first
// use. Progress regressions while processing are ignored so observers only
// ever see the fraction move forward.
func (s *Store) SetStatus(taskID string, st model.TaskStatus, message string, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.tasks[taskID]
	if !ok {
		state = &model.TaskState{TaskID: taskID}
		s.tasks[taskID] = state
	}
	if st == model.TaskStatusProcessing && state.Status == model.TaskStatusProcessing && progress < state.Progress {
		progress = state.Progress
	}
	state.Status = st
	state.Message = message
	state.Progress = progress
	state.LastUpdated = time.Now()
}

// Counts reports how many known tasks sit in each lifecycle state.
func (s *Store) Counts() map[model.TaskStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[model.TaskStatus]int)
	for _, state := range s.tasks {
		out[state.Status]++
	}
	return out
}

// SetError marks a task failed with the given message.
func (s *Store) SetError(taskID string, message string) {
	s.SetStatus(taskID, model.TaskStatusError, message, 0)
}

// SaveResult persists the final artifact of a task through the blob store
// and transitions the task to completed. The blob write happens before the
// in-memory flip, so a task is never reported completed without a durable
// result behind it.
func (s *Store) SaveResult(ctx context.Context, taskID string, result *model.VideoAnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for task %s: %w", taskID, err)
	}
	if err = s.blobs.Write(ctx, resultKey(taskID), data); err != nil {
		return fmt.Errorf("failed to persist result for task %s: %w", taskID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[taskID] = &model.TaskState{
		TaskID:      taskID,
		Status:      model.TaskStatusCompleted,
		Message:     "Analysis complete",
		Progress:    1.0,
		LastUpdated: time.Now(),
		Result:      result,
	}
	return nil
}

// GetStatus returns the current state of a task. Completed tasks whose
// results only exist in blob storage (after a restart, or finished by
// another replica) are hydrated transparently. Unknown tasks yield a
// not_found state rather than an error.
func (s *Store) GetStatus(ctx context.Context, taskID string) *model.TaskState {
	s.mu.Lock()
	state, ok := s.tasks[taskID]
	// Snapshot under the lock; SetStatus mutates the shared struct in
	// place, so the pointer must never be dereferenced outside it.
	var snapshot model.TaskState
	if ok {
		snapshot = *state
	}
	if ok && (state.Status != model.TaskStatusCompleted || state.Result != nil) {
		s.mu.Unlock()
		return &snapshot
	}
	s.mu.Unlock()

	// Either a completed entry awaiting hydration or a task this process
	// has never seen. Both resolve through blob storage.
	result, err := s.loadResult(ctx, taskID)
	if err != nil {
		if !errors.Is(err, ErrBlobNotFound) {
			slog.Warn("failed to load persisted result", "task_id", taskID, "error", err)
		}
		if ok {
			return &snapshot
		}
		return &model.TaskState{
			TaskID:      taskID,
			Status:      model.TaskStatusNotFound,
			Message:     "Task not found",
			LastUpdated: time.Now(),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	hydrated := &model.TaskState{
		TaskID:      taskID,
		Status:      model.TaskStatusCompleted,
		Message:     "Analysis complete",
		Progress:    1.0,
		LastUpdated: time.Now(),
		Result:      result,
	}
	s.tasks[taskID] = hydrated
	out := *hydrated
	return &out
}

// loadResult reads and decodes a persisted result from blob storage.
func (s *Store) loadResult(ctx context.Context, taskID string) (*model.VideoAnalysisResult, error) {
	data, err := s.blobs.Read(ctx, resultKey(taskID))
	if err != nil {
		return nil, err
	}
	var result model.VideoAnalysisResult
	if err = json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode persisted result for task %s: %w", taskID, err)
	}
	return &result, nil
}

func resultKey(taskID string) string {
	return path.Join(resultPrefix, taskID+".json")
}
