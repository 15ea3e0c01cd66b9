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

// This file contains general-purpose utilities for the cloud package:
// hierarchical TOML configuration loading, and resilient calls against the
// Generative AI API with retry and token accounting.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

// Cloud constants for configuration loading and API interaction policies.
const (
	ConfigFileBaseName  = ".env"              // Base name for configuration files.
	ConfigFileExtension = ".toml"             // Extension for configuration files.
	ConfigSeparator     = "."                 // Separator in runtime-specific names (".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // Environment variable holding the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // Environment variable selecting the runtime overlay.
	MaxRetries          = 3                   // Maximum attempts for a failed generative call.
)

// fileExists checks if a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// configFilePaths resolves the base and runtime overlay file paths from
// the GCP_CONFIG_PREFIX and GCP_RUNTIME environment variables. The
// runtime defaults to "test" so test runs never pick up a production
// overlay by accident.
func configFilePaths() (base string, overlay string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}

	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = "test"
	}

	base = prefix + ConfigFileBaseName + ConfigFileExtension
	overlay = prefix + ConfigFileBaseName + ConfigSeparator + runtime + ConfigFileExtension
	return base, overlay
}

// LoadConfig provides hierarchical configuration loading: the base
// ".env.toml" is decoded first, then the runtime overlay (for example
// ".env.test.toml") is decoded over it, so overlay values win. A
// missing file is skipped; a malformed one is fatal.
func LoadConfig(baseConfig interface{}) {
	base, overlay := configFilePaths()
	fmt.Printf("Base Configuration File: %s\n", base)
	fmt.Printf("Environment Configuration File: %s\n", overlay)

	for _, path := range []string{base, overlay} {
		if !fileExists(path) {
			continue
		}
		if _, err := toml.DecodeFile(path, baseConfig); err != nil {
			log.Fatalf("failed to decode configuration file %s with error: %s", path, err)
		}
	}
}

// GenerateMultiModalResponse executes a multi-modal request against a
// generative model with retries and token accounting. tryCount is the
// current attempt number, starting at 0.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	tryCount int,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (value string, err error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		if tryCount < MaxRetries {
			retryCounter.Add(ctx, 1)
			return GenerateMultiModalResponse(ctx, inputTokenCounter, outputTokenCounter, retryCounter, tryCount+1, model, content)
		}
		return "", err
	}
	inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
	outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))

	var out strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				out.WriteString(fmt.Sprint(part.Text))
			}
		}
	}
	value = strings.TrimPrefix(out.String(), "```json")
	value = strings.TrimSuffix(value, "```")
	return value, nil
}

// NewTextPart creates the content slice for a plain text prompt.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}

// NewFileData creates a file reference part for a multi-modal prompt.
func NewFileData(in string, mimeType string) genai.FileData {
	return genai.FileData{FileURI: in, MIMEType: mimeType}
}
