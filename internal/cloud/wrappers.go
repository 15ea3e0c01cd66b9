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

// This file implements decorators around the Generative AI client that add
// rate limiting and retries. Vertex AI enforces per-minute quotas; the
// wrappers keep the pipeline inside them and absorb transient failures
// instead of surfacing every network hiccup as a task error.
package cloud

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel decorates a generative model with a rate
// limiter and retry-on-failure behavior.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // Generation parameters passed on every call.
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               rate.Limiter // Controls request frequency against the model quota.
}

// NewQuotaAwareModel wraps a model configuration with a limiter that allows
// a burst of requestsPerSecond calls replenished once per second.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               *rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// GenerateContent applies rate limiting before delegating to the wrapped
// model. A rate-limited call sleeps and requeues itself; a failed call
// retries up to three times, with the attempt count carried in the context.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (resp *genai.GenerateContentResponse, err error) {
	if q.RateLimit.Allow() {
		resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
		if err != nil {
			retryCount, ok := ctx.Value(retryContextKey).(int)
			if !ok {
				retryCount = 0
			}
			if retryCount > 3 {
				return nil, errors.New("failed generation on max retries")
			}
			errCtx := context.WithValue(ctx, retryContextKey, retryCount+1)
			// Give the service time to recover before trying again.
			time.Sleep(time.Minute * 1)
			return q.ModelHandle.GenerateContent(errCtx, q.ModelName, content, q.GenerativeContentConfig)
		}
		return resp, err
	}
	// Rate limited: pause this request and requeue it.
	time.Sleep(time.Second * 5)
	return q.GenerateContent(ctx, content)
}

// ctxKey is a private context key type for retry bookkeeping.
type ctxKey string

const retryContextKey ctxKey = "retry"

// QuotaAwareEmbedder decorates the embedding API with the same rate
// limiting discipline. It implements the pipeline's TextEmbedder
// capability. Safe for concurrent use.
type QuotaAwareEmbedder struct {
	ModelName   string
	ModelHandle *genai.Models
	Dim         int           // Output vector length for the configured model.
	RateLimit   *rate.Limiter // Shared limiter across concurrent embed calls.
}

// NewQuotaAwareEmbedder wraps the embedding model named in the
// configuration with a limiter derived from its per-minute quota.
func NewQuotaAwareEmbedder(name string, modelHandle *genai.Models, dimension int, maxRequestsPerMinute int) *QuotaAwareEmbedder {
	if maxRequestsPerMinute <= 0 {
		maxRequestsPerMinute = 60
	}
	return &QuotaAwareEmbedder{
		ModelName:   name,
		ModelHandle: modelHandle,
		Dim:         dimension,
		RateLimit:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxRequestsPerMinute)), maxRequestsPerMinute),
	}
}

// EmbedText returns the embedding of the given text. Empty text yields a
// zero vector without spending quota, which is what degraded scenes with no
// transcript flow through.
func (q *QuotaAwareEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, q.Dim), nil
	}
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := q.ModelHandle.EmbedContent(ctx, q.ModelName, genai.Text(text), nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, errors.New("embedding response contained no vectors")
	}
	return resp.Embeddings[0].Values, nil
}

// Dimension returns the length of the vectors EmbedText produces.
func (q *QuotaAwareEmbedder) Dimension() int {
	return q.Dim
}
