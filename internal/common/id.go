package common

import (
	"github.com/google/uuid"
)

// NewHoldingID generates a unique holding ID with the "hold_" prefix
// Format: hold_<uuid>
func NewHoldingID() string {
	return "hold_" + uuid.New().String()
}

// NewAnalysisID generates a unique analysis ID with the "analysis_" prefix
// Format: analysis_<uuid>
func NewAnalysisID() string {
	return "analysis_" + uuid.New().String()
}
