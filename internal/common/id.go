package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job-" prefix.
// Format: job-<8 hex chars>
func NewJobID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "job-" + raw[:8]
}
