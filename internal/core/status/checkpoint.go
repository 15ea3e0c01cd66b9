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

// This file defines the CheckpointStore. The audio and frame stages write a
// checkpoint per (task, scene, stage) after each successful per-scene
// analysis, and read before analyzing, so a rerun of an interrupted task
// resumes from the last completed scene instead of paying for finished
// work twice.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"
)

// Stage identifies the pipeline stage a checkpoint belongs to.
type Stage string

const (
	// StageAudioAnalysis covers per-scene transcription and audio features.
	StageAudioAnalysis Stage = "audio"
	// StageFrameAnalysis covers per-scene frame sampling and embeddings.
	StageFrameAnalysis Stage = "frames"
)

// CheckpointKey uniquely identifies one unit of resumable work.
type CheckpointKey struct {
	TaskID  string
	SceneID string
	Stage   Stage
}

// blobKey maps the composite key to one object per checkpoint, so stages
// and scenes never overwrite each other.
func (k CheckpointKey) blobKey() string {
	return path.Join("checkpoints", k.TaskID, fmt.Sprintf("%s.%s.json", k.SceneID, k.Stage))
}

// checkpointEnvelope wraps the stage payload with bookkeeping.
type checkpointEnvelope struct {
	SavedAt time.Time       `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
}

// CheckpointStore persists per-scene stage results through a BlobStore.
type CheckpointStore struct {
	blobs BlobStore
}

// NewCheckpointStore creates a checkpoint store backed by blobs.
func NewCheckpointStore(blobs BlobStore) *CheckpointStore {
	return &CheckpointStore{blobs: blobs}
}

// Save persists a stage payload under its composite key. Saving the same
// key twice replaces the previous checkpoint.
func (c *CheckpointStore) Save(ctx context.Context, key CheckpointKey, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint %v: %w", key, err)
	}
	envelope, err := json.Marshal(&checkpointEnvelope{SavedAt: time.Now(), Payload: body})
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint envelope %v: %w", key, err)
	}
	if err = c.blobs.Write(ctx, key.blobKey(), envelope); err != nil {
		return fmt.Errorf("failed to write checkpoint %v: %w", key, err)
	}
	return nil
}

// Load reads a checkpoint into out. It returns false when no checkpoint
// exists for the key, and an error only for storage or decoding failures.
func (c *CheckpointStore) Load(ctx context.Context, key CheckpointKey, out any) (bool, error) {
	data, err := c.blobs.Read(ctx, key.blobKey())
	if errors.Is(err, ErrBlobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read checkpoint %v: %w", key, err)
	}
	var envelope checkpointEnvelope
	if err = json.Unmarshal(data, &envelope); err != nil {
		return false, fmt.Errorf("failed to decode checkpoint envelope %v: %w", key, err)
	}
	if err = json.Unmarshal(envelope.Payload, out); err != nil {
		return false, fmt.Errorf("failed to decode checkpoint payload %v: %w", key, err)
	}
	return true, nil
}
