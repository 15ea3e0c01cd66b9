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

package cloud

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// GeminiCaptioner produces short textual descriptions of video frames
// through a rate-limited multi-modal model. It is used when a frame
// embedding alone is not enough and the matcher needs words to compare
// against a storyline description.
type GeminiCaptioner struct {
	Model              *QuotaAwareGenerativeAIModel
	DefaultPrompt      string
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewGeminiCaptioner creates a captioner around the given model. The
// defaultPrompt is applied when the caller does not supply one.
func NewGeminiCaptioner(model *QuotaAwareGenerativeAIModel, defaultPrompt string) *GeminiCaptioner {
	meter := otel.Meter("github.com/jaycherian/gcp-go-storyline-engine")
	inputTokens, _ := meter.Int64Counter("caption-input-tokens")
	outputTokens, _ := meter.Int64Counter("caption-output-tokens")
	retries, _ := meter.Int64Counter("caption-retries")
	return &GeminiCaptioner{
		Model:              model,
		DefaultPrompt:      defaultPrompt,
		inputTokenCounter:  inputTokens,
		outputTokenCounter: outputTokens,
		retryCounter:       retries,
	}
}

// CaptionImage sends the frame at imagePath to the model together with the
// prompt and returns the model's text response.
func (c *GeminiCaptioner) CaptionImage(ctx context.Context, imagePath string, prompt string) (string, error) {
	if prompt == "" {
		prompt = c.DefaultPrompt
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read frame image: %w", err)
	}
	mimeType := "image/jpeg"
	if strings.HasSuffix(strings.ToLower(imagePath), ".png") {
		mimeType = "image/png"
	}
	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
				{Text: prompt},
			},
		},
	}
	return GenerateMultiModalResponse(
		ctx,
		c.inputTokenCounter,
		c.outputTokenCounter,
		c.retryCounter,
		0,
		c.Model,
		content)
}
