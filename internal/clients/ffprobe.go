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
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-storyline-engine/internal/core/model"
)

// FFprobeExtractor implements analyzers.MetadataExtractor by shelling out
// to ffprobe and parsing its JSON report. It is the one analyzer that runs
// locally rather than in a sidecar, since ffprobe ships with ffmpeg on the
// serving image anyway.
type FFprobeExtractor struct {
	commandPath string
}

// NewFFprobeExtractor creates an extractor using the ffprobe binary at
// commandPath. An empty path means "ffprobe" on the PATH.
func NewFFprobeExtractor(commandPath string) *FFprobeExtractor {
	if commandPath == "" {
		commandPath = "ffprobe"
	}
	return &FFprobeExtractor{commandPath: commandPath}
}

// ffprobeReport mirrors the subset of `ffprobe -print_format json` output
// the extractor reads. ffprobe reports numbers as strings.
type ffprobeReport struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ExtractMetadata probes videoPath and returns its technical properties.
// A file ffprobe cannot read yields an error, which callers treat as an
// unreadable video.
func (f *FFprobeExtractor) ExtractMetadata(ctx context.Context, videoPath string) (*model.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, f.commandPath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", videoPath, err)
	}

	var report ffprobeReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("ffprobe output parse: %w", err)
	}

	meta := &model.VideoMetadata{FileName: filepath.Base(videoPath)}
	meta.Duration, _ = strconv.ParseFloat(report.Format.Duration, 64)
	for _, stream := range report.Streams {
		switch stream.CodecType {
		case "video":
			if meta.Width == 0 {
				meta.Width = stream.Width
				meta.Height = stream.Height
				meta.FrameRate = parseFrameRate(stream.RFrameRate)
				if meta.FrameRate == 0 {
					meta.FrameRate = parseFrameRate(stream.AvgFrameRate)
				}
			}
		case "audio":
			meta.HasAudio = true
		}
	}
	if meta.Width == 0 {
		return nil, fmt.Errorf("no video stream in %s", videoPath)
	}
	return meta, nil
}

// parseFrameRate converts ffprobe's rational frame rate ("30000/1001")
// into frames per second.
func parseFrameRate(in string) float64 {
	if in == "" || in == "0/0" {
		return 0
	}
	parts := strings.SplitN(in, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}
