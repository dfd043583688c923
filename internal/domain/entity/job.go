package entity

// JobDescriptor is the message published to the video tasks exchange at
// upload time and consumed by every worker class. Immutable once published.
// Filename doubles as the job identity; there is no separate job id, so
// reusing a filename across concurrent jobs collides downstream
// (last write wins in all stores).
type JobDescriptor struct {
	Filename string `json:"filename"`
	ClientID string `json:"client_id"`
}

// MetadataRecord is produced by the metadata worker and posted back to the
// ingestion service, which stores it keyed by Filename.
type MetadataRecord struct {
	Filename           string  `json:"filename"`
	ClientID           string  `json:"client_id,omitempty"`
	Duration           float64 `json:"duration"`
	Resolution         string  `json:"resolution"`
	Codec              string  `json:"codec"`
	ProcessedVideoPath string  `json:"processed_video_path"`
}

// EnhancementResult is posted back by the enhancement worker once the
// derived artifact has been written.
type EnhancementResult struct {
	Filename     string `json:"filename"`
	ClientID     string `json:"client_id,omitempty"`
	EnhancedFile string `json:"enhanced_file"`
}

const (
	EventMetadataDone    = "metadata_done"
	EventEnhancementDone = "enhancement_done"
)

// NotificationEvent is pushed to a connected client over its websocket.
// Transient; never persisted. Metadata is set for metadata_done events,
// EnhancedFile for enhancement_done events.
type NotificationEvent struct {
	Status       string          `json:"status"`
	Filename     string          `json:"filename"`
	Metadata     *MetadataRecord `json:"metadata,omitempty"`
	EnhancedFile string          `json:"enhanced_file,omitempty"`
}
