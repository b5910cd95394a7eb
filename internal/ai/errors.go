package ai

import (
	"context"
	"errors"

	"pdf-rag-platform/models"
)

// Reason maps a provider error to the degradation reason reported to callers.
func Reason(err error) models.DegradeReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.ReasonTimeout
	case errors.Is(err, ErrCircuitOpen):
		return models.ReasonCircuitOpen
	case errors.Is(err, ErrEmptyResponse):
		return models.ReasonEmptyResponse
	default:
		return models.ReasonUpstreamError
	}
}
