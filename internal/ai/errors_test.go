package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdf-rag-platform/models"
)

func TestReason(t *testing.T) {
	assert.Equal(t, models.ReasonTimeout, Reason(fmt.Errorf("embed: %w", context.DeadlineExceeded)))
	assert.Equal(t, models.ReasonCircuitOpen, Reason(ErrCircuitOpen))
	assert.Equal(t, models.ReasonEmptyResponse, Reason(fmt.Errorf("gemini embedding 0: %w", ErrEmptyResponse)))
	assert.Equal(t, models.ReasonUpstreamError, Reason(errors.New("connection refused")))
}
