package port

import (
	"context"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
)

type JobPublisher interface {
	PublishJob(ctx context.Context, job entity.JobDescriptor) error
}
