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

// This file defines the command that renders a storyline clip with FFmpeg.
//
// Logic Flow:
// The command receives a ClipJob whose scenes are already ordered for
// playback. It writes an FFmpeg concat demuxer manifest with one
// file/inpoint/outpoint group per scene, then runs FFmpeg in stream copy
// mode so no re-encoding happens. Cutting on stream copy snaps to
// keyframes, which is an accepted tradeoff for preview clips.
//
//  1. Get the *model.ClipJob from the COR context.
//  2. Write the concat manifest to a temp file.
//  3. Resolve the output path (the job's, or a temp file).
//  4. Build and execute the `ffmpeg` command-line instruction.
//  5. On success, pipe the rendered file path to the next command.
//  6. Track all created temporary files in the context for later cleanup.
package commands

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/cor"
	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

const (
	// ClipTempFilePrefix names the temp files the clip renderer creates.
	ClipTempFilePrefix = "storyline-clip-"
	// concatManifestPrefix names the concat demuxer manifests.
	concatManifestPrefix = "storyline-segments-"
)

// ClipExtractor is a command implementation that wraps FFmpeg to cut the
// selected scenes out of a source video and join them into a single clip.
type ClipExtractor struct {
	cor.BaseCommand
	commandPath string // The path to the FFmpeg executable (e.g., "/usr/bin/ffmpeg").
}

// NewClipExtractor is the constructor for creating a new ClipExtractor.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - commandPath: The file system path to the FFmpeg executable.
func NewClipExtractor(name string, commandPath string) *ClipExtractor {
	if commandPath == "" {
		commandPath = "ffmpeg"
	}
	return &ClipExtractor{BaseCommand: *cor.NewBaseCommand(name), commandPath: commandPath}
}

// Execute renders the clip described by the job in the input parameter.
func (c *ClipExtractor) Execute(context cor.Context) {
	job := context.Get(c.GetInputParam()).(*model.ClipJob)

	fail := func(err error) {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
	}

	if len(job.Scenes) == 0 {
		fail(errors.New("clip job has no scenes to render"))
		return
	}

	manifest, err := c.writeManifest(job)
	if err != nil {
		fail(err)
		return
	}
	context.AddTempFile(manifest)

	outputPath := job.OutputPath
	if outputPath == "" {
		tempFile, err := os.CreateTemp("", ClipTempFilePrefix+"*.mp4")
		if err != nil {
			fail(err)
			return
		}
		outputPath = tempFile.Name()
		_ = tempFile.Close()
		context.AddTempFile(outputPath)
	}

	// Stream copy keeps rendering fast regardless of source resolution.
	cmd := exec.CommandContext(context.GetContext(), c.commandPath,
		"-y",
		"-hide_banner",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		outputPath)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fail(fmt.Errorf("ffmpeg clip render failed: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), outputPath)
}

// writeManifest writes the concat demuxer input listing every scene of the
// job as a file/inpoint/outpoint group against the source video.
func (c *ClipExtractor) writeManifest(job *model.ClipJob) (string, error) {
	var b strings.Builder
	for _, scene := range job.Scenes {
		fmt.Fprintf(&b, "file '%s'\n", job.VideoPath)
		fmt.Fprintf(&b, "inpoint %f\n", scene.StartTime)
		fmt.Fprintf(&b, "outpoint %f\n", scene.StartTime+scene.Duration)
	}

	manifest, err := os.CreateTemp("", concatManifestPrefix)
	if err != nil {
		return "", err
	}
	if _, err := manifest.WriteString(b.String()); err != nil {
		_ = manifest.Close()
		return "", err
	}
	if err := manifest.Close(); err != nil {
		return "", err
	}
	return manifest.Name(), nil
}
