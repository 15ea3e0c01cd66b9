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

// This file, `clips.go`, defines the ClipService, which hands out secure,
// time-limited URLs for the storyline clips rendered by the cut workflow
// and stored in Google Cloud Storage.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// gcsURLPrefix is the https form of GCS object URIs the cut workflow
// records for rendered clips.
const gcsURLPrefix = "https://storage.mtls.cloud.google.com/"

// ClipService generates signed URLs for rendered storyline clips so
// browsers can stream them straight from GCS without credentials.
type ClipService struct {
	StorageClient *storage.Client                   // Client for interacting with Google Cloud Storage.
	IAMClient     *credentials.IamCredentialsClient // Client for interacting with IAM, used for signing URLs.
	SignerEmail   string                            // The service account email used to sign URLs.
}

// GenerateSignedURL creates a time-limited GET URL for a private GCS
// object, signed with the service's signer account. gcsURI is the https
// object URL as stored on the clip record.
func (s *ClipService) GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error) {
	if !strings.HasPrefix(gcsURI, gcsURLPrefix) {
		return "", fmt.Errorf("invalid GCS URI format: %s", gcsURI)
	}
	path := strings.TrimPrefix(gcsURI, gcsURLPrefix)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid GCS URI: unable to determine bucket and object from %s", gcsURI)
	}
	bucketName := parts[0]
	objectName := parts[1]

	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),

		// The SignBytes function signs the request data through the IAM
		// Credentials API, so no local service account key is needed when
		// running on GCP infrastructure.
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
		GoogleAccessID: s.SignerEmail,
	}

	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", bucketName, objectName, err)
	}
	return u, nil
}

// ObjectURL renders the https URL of a clip object, the form accepted by
// GenerateSignedURL.
func ObjectURL(bucket, object string) string {
	return gcsURLPrefix + bucket + "/" + object
}
