// Package dedup keeps one durable set of processed keys per pipeline stage so
// that no email, resume text or candidate is processed twice.
package dedup

import (
	"fmt"
	"strings"
)

// Stage names a pipeline stage with its own processed set.
type Stage string

const (
	StageEmails    Stage = "emails"
	StageText      Stage = "text"
	StageParsed    Stage = "parsed"
	StageEnriched  Stage = "enriched"
	StageScheduled Stage = "scheduled"
)

// Stages lists all known stages in pipeline order.
var Stages = []Stage{StageEmails, StageText, StageParsed, StageEnriched, StageScheduled}

// fileNames keeps the on-disk names used by earlier versions of the pipeline.
var fileNames = map[Stage]string{
	StageEmails:    "processed_emails.json",
	StageText:      "processed_text_hashes.json",
	StageParsed:    "processed_candidates.json",
	StageEnriched:  "enriched_candidates.json",
	StageScheduled: "scheduled_candidates.json",
}

// ParseStage converts a configuration value into a Stage.
func ParseStage(s string) (Stage, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, stage := range Stages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// FileName returns the tracking file name of the stage.
func (s Stage) FileName() string {
	if name, ok := fileNames[s]; ok {
		return name
	}
	return "processed_" + string(s) + ".json"
}
