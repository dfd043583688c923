package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
	"github.com/AstraLink99/backend-video-processing/internal/domain/port"
	"github.com/AstraLink99/backend-video-processing/internal/infra/metrics"
	"github.com/AstraLink99/backend-video-processing/internal/infra/storage"
	"github.com/AstraLink99/backend-video-processing/internal/notify"
	"github.com/AstraLink99/backend-video-processing/internal/store"
)

const maxMultipartMemory = 32 << 20

type Handlers struct {
	records         *store.MetadataStore
	registry        *notify.Registry
	publisher       port.JobPublisher
	content         *storage.ContentStore
	defaultClientID string
	maxUploadBytes  int64
	validate        *validator.Validate
	upgrader        websocket.Upgrader
	logger          *zap.Logger
}

type HandlersConfig struct {
	DefaultClientID string
	MaxUploadMB     int64
}

func NewHandlers(
	records *store.MetadataStore,
	registry *notify.Registry,
	publisher port.JobPublisher,
	content *storage.ContentStore,
	cfg HandlersConfig,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		records:         records,
		registry:        registry,
		publisher:       publisher,
		content:         content,
		defaultClientID: cfg.DefaultClientID,
		maxUploadBytes:  cfg.MaxUploadMB << 20,
		validate:        validator.New(),
		upgrader: websocket.Upgrader{
			// the frontend is served from a different origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type uploadParams struct {
	ClientID string `validate:"required,max=64"`
}

// Upload persists the incoming file and publishes one job descriptor.
// The publish happens only after the write is fully flushed, so a worker
// reading the path after we respond sees complete content.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	tracer := otel.Tracer("api")
	ctx, span := tracer.Start(r.Context(), "upload")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeMultipartError(w, err)
		return
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		if strings.Contains(err.Error(), "no such file") {
			writeJSONError(w, `missing video file: form field key should be "file"`, http.StatusBadRequest)
		} else {
			writeJSONError(w, "an error occurred while uploading the file: "+err.Error(), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	clientID := r.FormValue("client_id")
	if clientID == "" {
		clientID = r.URL.Query().Get("client_id")
	}
	if clientID == "" {
		clientID = h.defaultClientID
	}

	if err := h.validate.Struct(uploadParams{ClientID: clientID}); err != nil {
		writeJSONError(w, "invalid client_id", http.StatusBadRequest)
		return
	}

	mime, err := mimetype.DetectReader(file)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !allowedUploadType(mime.String()) {
		writeJSONError(w, "unsupported file type: "+mime.String(), http.StatusBadRequest)
		return
	}

	filename, err := storage.SanitizeFilename(fh.Filename)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("upload.filename", filename),
		attribute.String("upload.client_id", clientID),
	)

	if _, err := h.content.SaveUpload(filename, file); err != nil {
		h.logger.Error("failed to persist upload", zap.String("filename", filename), zap.Error(err))
		writeJSONError(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	job := entity.JobDescriptor{Filename: filename, ClientID: clientID}
	if err := h.publisher.PublishJob(ctx, job); err != nil {
		h.logger.Error("failed to publish job", zap.String("filename", filename), zap.Error(err))
		writeJSONError(w, "failed to enqueue processing job", http.StatusInternalServerError)
		return
	}

	metrics.UploadsTotal.Inc()
	h.logger.Info("upload accepted",
		zap.String("filename", filename),
		zap.String("client_id", clientID),
		zap.String("mime", mime.String()),
	)

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "Video uploaded successfully!",
		"filename": filename,
	})
}

// ReportMetadata is the workers' callback. A payload without a filename is
// accepted and ignored; the record store is untouched.
func (h *Handlers) ReportMetadata(w http.ResponseWriter, r *http.Request) {
	var rec entity.MetadataRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSONError(w, "invalid metadata payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if rec.Filename == "" {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Metadata received successfully"})
		return
	}

	h.records.Put(rec)
	h.logger.Info("stored metadata", zap.String("filename", rec.Filename))

	h.registry.Push(rec.ClientID, entity.NotificationEvent{
		Status:   entity.EventMetadataDone,
		Filename: rec.Filename,
		Metadata: &rec,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Metadata received successfully",
		"data":    rec,
	})
}

// ReportEnhancement mirrors ReportMetadata for the enhancement worker;
// nothing is persisted, the event is forwarded to the client.
func (h *Handlers) ReportEnhancement(w http.ResponseWriter, r *http.Request) {
	var res entity.EnhancementResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeJSONError(w, "invalid enhancement payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if res.Filename == "" {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Enhancement status received"})
		return
	}

	h.logger.Info("enhancement reported",
		zap.String("filename", res.Filename),
		zap.String("enhanced_file", res.EnhancedFile),
	)

	h.registry.Push(res.ClientID, entity.NotificationEvent{
		Status:       entity.EventEnhancementDone,
		Filename:     res.Filename,
		EnhancedFile: res.EnhancedFile,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Enhancement status received",
		"data":    res,
	})
}

func (h *Handlers) GetMetadata(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	rec, ok := h.records.Get(filename)
	if !ok {
		writeJSONError(w, "metadata not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// OpenChannel upgrades the request and hands the socket to the registry.
// Blocks for the lifetime of the connection.
func (h *Handlers) OpenChannel(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if err := h.validate.Struct(uploadParams{ClientID: clientID}); err != nil {
		writeJSONError(w, "invalid client_id", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("client_id", clientID), zap.Error(err))
		return
	}

	h.registry.Serve(clientID, ws)
}

func allowedUploadType(mime string) bool {
	// octet-stream is allowed because some containers are not detectable
	// from their first bytes
	return strings.HasPrefix(mime, "video/") || mime == "application/octet-stream"
}
