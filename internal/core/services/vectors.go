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

// This file holds the small amount of vector math the matchers need:
// cosine similarity, L2 normalization, and mean pooling over frame
// embeddings. Everything operates on float32 slices as produced by the
// embedding backends.
package services

import "math"

// cosineSimilarity returns the cosine of the angle between a and b. Zero
// vectors and mismatched lengths yield 0 so degraded scenes (for example an
// empty transcript embedded to a zero vector) score as unrelated instead of
// erroring out.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// l2Normalize scales v to unit length, returning a new slice. A zero vector
// is returned unchanged.
func l2Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	scale := 1.0 / math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) * scale)
	}
	return out
}

// meanVector pools a set of equal-length vectors into their element-wise
// mean. An empty input yields nil.
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := range v {
			if i < len(out) {
				out[i] += float64(v[i])
			}
		}
	}
	mean := make([]float32, len(out))
	for i, sum := range out {
		mean[i] = float32(sum / float64(len(vectors)))
	}
	return mean
}
