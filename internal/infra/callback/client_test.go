package callback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
)

func newTestClient(t *testing.T, baseURL string, maxRetries int) *Client {
	t.Helper()
	return NewClient(baseURL, maxRetries, time.Millisecond, zap.NewNop())
}

func TestReportMetadataPostsRecord(t *testing.T) {
	var got entity.MetadataRecord
	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := entity.MetadataRecord{
		Filename:   "clip.mp4",
		ClientID:   "c1",
		Duration:   12.5,
		Resolution: "640x480",
		Codec:      "h264",
	}

	err := newTestClient(t, srv.URL, 3).ReportMetadata(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "/internal/metadata-extraction-status", path)
	assert.Equal(t, rec, got)
}

func TestReportEnhancementPostsResult(t *testing.T) {
	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 3).ReportEnhancement(context.Background(), entity.EnhancementResult{
		Filename:     "clip.mp4",
		EnhancedFile: "/storage/processed/enhanced_clip.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "/internal/enhancement-status", path)
}

func TestReportRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 3).ReportMetadata(context.Background(), entity.MetadataRecord{Filename: "clip.mp4"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReportGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 3).ReportMetadata(context.Background(), entity.MetadataRecord{Filename: "clip.mp4"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrDeliveryFailure))
	assert.Equal(t, int32(3), calls.Load())
}
