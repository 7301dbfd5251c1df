package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/candidate"
	"github.com/spigell/recruiter/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

// Extractor asks Gemini for the candidate fields of a resume.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewExtractor creates an Extractor. Prompts and replies are logged at debug
// level, cut to maxLogLength runes.
func NewExtractor(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Extract implements ai.FieldExtractor.
func (e *Extractor) Extract(ctx context.Context, text string) (*candidate.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("resume text is empty")
	}

	message := "Resume:\n" + text

	e.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.Preview(message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.Preview(raw, e.maxLogLen)),
	)

	return parseResponse(raw)
}

func parseResponse(raw string) (*candidate.Record, error) {
	object, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in gemini response: %s", utils.Preview(raw, defaultMaxLogLength))
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(object), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	record, err := candidate.FromMap(data)
	if err != nil {
		return nil, fmt.Errorf("decode candidate fields: %w", err)
	}

	return record, nil
}

// extractJSON returns the outermost {...} block of raw, ignoring code fences
// and surrounding prose.
func extractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
