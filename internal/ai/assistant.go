// Package ai holds the LLM-backed resume field extraction stage.
package ai

import (
	"context"

	"github.com/spigell/recruiter/internal/candidate"
)

// FieldExtractor turns resume text into a candidate record.
type FieldExtractor interface {
	Extract(ctx context.Context, text string) (*candidate.Record, error)
}
