package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
	"github.com/AstraLink99/backend-video-processing/internal/infra/storage"
	"github.com/AstraLink99/backend-video-processing/internal/notify"
	"github.com/AstraLink99/backend-video-processing/internal/store"
)

type fakePublisher struct {
	mu   sync.Mutex
	jobs []entity.JobDescriptor
	err  error
}

func (f *fakePublisher) PublishJob(_ context.Context, job entity.JobDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakePublisher) published() []entity.JobDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.JobDescriptor(nil), f.jobs...)
}

type testAPI struct {
	router   http.Handler
	pub      *fakePublisher
	records  *store.MetadataStore
	content  *storage.ContentStore
	registry *notify.Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	content, err := storage.NewContentStore(t.TempDir())
	require.NoError(t, err)

	pub := &fakePublisher{}
	records := store.NewMetadataStore()
	registry := notify.NewRegistry(30*time.Second, zap.NewNop())

	h := NewHandlers(records, registry, pub, content, HandlersConfig{
		DefaultClientID: "test_client",
		MaxUploadMB:     64,
	}, zap.NewNop())

	return &testAPI{
		router:   NewRouter(h, content.Root()),
		pub:      pub,
		records:  records,
		content:  content,
		registry: registry,
	}
}

// mp4Bytes carries an ftyp box so mimetype detection sees video/mp4.
func mp4Bytes() []byte {
	head := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypisom")...)
	return append(head, bytes.Repeat([]byte{0x42}, 64)...)
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadPersistsFileAndPublishesJob(t *testing.T) {
	a := newTestAPI(t)

	req := uploadRequest(t, "clip.mp4", mp4Bytes(), map[string]string{"client_id": "c1"})
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "clip.mp4", resp["filename"])

	jobs := a.pub.published()
	require.Len(t, jobs, 1)
	assert.Equal(t, entity.JobDescriptor{Filename: "clip.mp4", ClientID: "c1"}, jobs[0])

	path, err := a.content.UploadPath("clip.mp4")
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mp4Bytes(), got)
}

func TestUploadDefaultsClientID(t *testing.T) {
	a := newTestAPI(t)

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, uploadRequest(t, "clip.mp4", mp4Bytes(), nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	jobs := a.pub.published()
	require.Len(t, jobs, 1)
	assert.Equal(t, "test_client", jobs[0].ClientID)
}

func TestUploadStripsPathComponents(t *testing.T) {
	a := newTestAPI(t)

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, uploadRequest(t, "../../escape/clip.mp4", mp4Bytes(), nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "clip.mp4", resp["filename"])
}

func TestUploadRejectsMissingFileField(t *testing.T) {
	a := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("client_id", "c1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, a.pub.published())
}

func TestUploadRejectsNonVideoContent(t *testing.T) {
	a := newTestAPI(t)

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, uploadRequest(t, "notes.txt", []byte("just some plain text"), nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, a.pub.published())
}

func TestUploadReportsPublishFailure(t *testing.T) {
	a := newTestAPI(t)
	a.pub.err = errors.New("broker gone")

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, uploadRequest(t, "clip.mp4", mp4Bytes(), nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestReportMetadataStoresRecord(t *testing.T) {
	a := newTestAPI(t)

	rec := entity.MetadataRecord{
		Filename:           "clip.mp4",
		ClientID:           "c1",
		Duration:           12.5,
		Resolution:         "640x480",
		Codec:              "h264",
		ProcessedVideoPath: "/storage/processed/enhanced_clip.mp4",
	}
	rr := postJSON(t, a.router, "/internal/metadata-extraction-status", rec)
	require.Equal(t, http.StatusOK, rr.Code)

	got, ok := a.records.Get("clip.mp4")
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestReportMetadataIsIdempotentOverwrite(t *testing.T) {
	a := newTestAPI(t)

	first := entity.MetadataRecord{Filename: "video.mp4", Codec: "h264"}
	second := entity.MetadataRecord{Filename: "video.mp4", Codec: "vp8"}

	require.Equal(t, http.StatusOK, postJSON(t, a.router, "/internal/metadata-extraction-status", first).Code)
	require.Equal(t, http.StatusOK, postJSON(t, a.router, "/internal/metadata-extraction-status", second).Code)

	got, ok := a.records.Get("video.mp4")
	require.True(t, ok)
	assert.Equal(t, "vp8", got.Codec)
	assert.Equal(t, 1, a.records.Len())
}

func TestReportMetadataWithoutFilenameIsNoOp(t *testing.T) {
	a := newTestAPI(t)

	rr := postJSON(t, a.router, "/internal/metadata-extraction-status", map[string]any{"duration": 3.2})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, a.records.Len())
}

func TestReportMetadataPersistsWhenClientDisconnected(t *testing.T) {
	a := newTestAPI(t)

	rec := entity.MetadataRecord{Filename: "clip.mp4", ClientID: "nobody-home"}
	rr := postJSON(t, a.router, "/internal/metadata-extraction-status", rec)
	require.Equal(t, http.StatusOK, rr.Code)

	// push was a no-op, the record is still retrievable by polling
	req := httptest.NewRequest(http.MethodGet, "/metadata/clip.mp4", nil)
	getRR := httptest.NewRecorder()
	a.router.ServeHTTP(getRR, req)
	assert.Equal(t, http.StatusOK, getRR.Code)
}

func TestGetMetadataNotFound(t *testing.T) {
	a := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/metadata/unknown.mp4", nil)
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
	assert.Equal(t, "metadata not found", apiErr.Error)
}

func TestGetMetadataReturnsStoredRecord(t *testing.T) {
	a := newTestAPI(t)

	rec := entity.MetadataRecord{
		Filename:           "clip.mp4",
		Duration:           12.5,
		Resolution:         "640x480",
		Codec:              "h264",
		ProcessedVideoPath: "/storage/processed/enhanced_clip.mp4",
	}
	a.records.Put(rec)

	req := httptest.NewRequest(http.MethodGet, "/metadata/clip.mp4", nil)
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got entity.MetadataRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, rec, got)
}

func TestServeArtifactFromContentStore(t *testing.T) {
	a := newTestAPI(t)

	path, err := a.content.ProcessedPath("enhanced_clip.mp4")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("derived bytes"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/storage/processed/enhanced_clip.mp4", nil)
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "derived bytes", rr.Body.String())
}

func TestCallbackFansOutToOpenChannel(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/c1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return a.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := entity.MetadataRecord{Filename: "clip.mp4", ClientID: "c1", Codec: "h264"}
	resp, err := http.Post(srv.URL+"/internal/metadata-extraction-status", "application/json", bytes.NewReader(mustJSON(t, rec)))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ev entity.NotificationEvent
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, entity.EventMetadataDone, ev.Status)
	assert.Equal(t, "clip.mp4", ev.Filename)
	require.NotNil(t, ev.Metadata)
	assert.Equal(t, "h264", ev.Metadata.Codec)
}

func TestEnhancementCallbackFansOut(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/c2"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return a.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	res := entity.EnhancementResult{
		Filename:     "clip.mp4",
		ClientID:     "c2",
		EnhancedFile: "/storage/processed/enhanced_clip.mp4",
	}
	resp, err := http.Post(srv.URL+"/internal/enhancement-status", "application/json", bytes.NewReader(mustJSON(t, res)))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ev entity.NotificationEvent
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, entity.EventEnhancementDone, ev.Status)
	assert.Equal(t, "/storage/processed/enhanced_clip.mp4", ev.EnhancedFile)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
