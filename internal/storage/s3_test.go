package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		contentType string
		wantErr     bool
	}{
		{contentType: "application/x-ndjson"},
		{contentType: "application/json"},
		{contentType: "audio/wav", wantErr: true},
		{contentType: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			err := ValidateContentType(tt.contentType)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid content type")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewS3Service(t *testing.T) {
	_, err := NewS3Service(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "S3_BUCKET")

	svc, err := NewS3Service(context.Background(), S3Config{
		Bucket:    "materials",
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	url, err := svc.GenerateDownloadURL(context.Background(), "catalog.ndjson")
	require.NoError(t, err)
	assert.Contains(t, url, "http://localhost:9000/materials/catalog.ndjson")
}
