package entity

import "errors"

// Error taxonomy. Broker errors are the only class allowed to terminate a
// process, and only at startup. Everything else is contained within the
// job or push that raised it.
var (
	ErrBrokerUnavailable = errors.New("broker unavailable")
	ErrStorageIO         = errors.New("storage i/o failure")
	ErrProbeFailure      = errors.New("probe failure")
	ErrTranscodeFailure  = errors.New("transcode failure")
	ErrDeliveryFailure   = errors.New("delivery failure")
)
