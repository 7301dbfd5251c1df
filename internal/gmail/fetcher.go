// Package gmail downloads resume attachments from a Gmail mailbox.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/spigell/recruiter/internal/dedup"
	"github.com/spigell/recruiter/internal/logger"
)

// Scope is the OAuth scope needed to read messages.
const Scope = gm.GmailReadonlyScope

const user = "me"

// DefaultQuery lists messages that carry attachments.
const DefaultQuery = "has:attachment"

// DefaultKeywords select attachments by file name.
var DefaultKeywords = []string{"resume", "cv", "job application"}

// ProcessedSet tracks message IDs that were already handled.
type ProcessedSet interface {
	Contains(ctx context.Context, stage dedup.Stage, key string) bool
	Record(ctx context.Context, stage dedup.Stage, key string) error
}

// Options configures a Fetcher.
type Options struct {
	Dir      string
	Query    string
	Keywords []string
}

// Result counts what a fetch did.
type Result struct {
	Messages   int
	Duplicates int
	Downloaded []string
	Ignored    int
	Failed     int
}

// Fetcher downloads attachments whose file names match a keyword.
type Fetcher struct {
	service   *gm.Service
	opts      Options
	processed ProcessedSet
	logger    *zap.Logger
}

// New creates a Fetcher using httpClient for the Gmail API.
func New(ctx context.Context, httpClient *http.Client, opts Options, processed ProcessedSet, l *zap.Logger, extra ...option.ClientOption) (*Fetcher, error) {
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, extra...)

	service, err := gm.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	if strings.TrimSpace(opts.Query) == "" {
		opts.Query = DefaultQuery
	}
	if len(opts.Keywords) == 0 {
		opts.Keywords = DefaultKeywords
	}

	return &Fetcher{
		service:   service,
		opts:      opts,
		processed: processed,
		logger:    logger.WithStage(l, "fetch"),
	}, nil
}

// Fetch walks all messages matching the query. A message is recorded as
// processed only when all of its matching attachments were saved.
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(f.opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating resumes directory: %w", err)
	}

	result := &Result{}

	err := f.service.Users.Messages.List(user).Q(f.opts.Query).Pages(ctx, func(page *gm.ListMessagesResponse) error {
		for _, msg := range page.Messages {
			result.Messages++

			if f.processed.Contains(ctx, dedup.StageEmails, msg.Id) {
				result.Duplicates++
				continue
			}

			if err := f.fetchMessage(ctx, msg.Id, result); err != nil {
				result.Failed++
				f.logger.Warn("fetching message", zap.String(logger.FieldSource, msg.Id), zap.Error(err))
				continue
			}

			if err := f.processed.Record(ctx, dedup.StageEmails, msg.Id); err != nil {
				f.logger.Error("recording processed message", zap.String(logger.FieldSource, msg.Id), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("listing messages: %w", err)
	}

	f.logger.Info("fetch finished",
		zap.Int("messages", result.Messages),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("downloaded", len(result.Downloaded)),
		zap.Int("ignored", result.Ignored),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

func (f *Fetcher) fetchMessage(ctx context.Context, id string, result *Result) error {
	message, err := f.service.Users.Messages.Get(user, id).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting message: %w", err)
	}
	if message.Payload == nil {
		return nil
	}

	for _, part := range attachments(message.Payload) {
		if !MatchesKeyword(part.Filename, f.opts.Keywords) {
			result.Ignored++
			f.logger.Debug("skipping attachment", zap.String("file", part.Filename))
			continue
		}

		attachment, err := f.service.Users.Messages.Attachments.Get(user, id, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("getting attachment %s: %w", part.Filename, err)
		}

		data, err := decode(attachment.Data)
		if err != nil {
			return fmt.Errorf("decoding attachment %s: %w", part.Filename, err)
		}

		path, err := f.save(id, part.Filename, data)
		if err != nil {
			return err
		}

		result.Downloaded = append(result.Downloaded, path)
		f.logger.Info("downloaded attachment", zap.String(logger.FieldSource, id), zap.String("path", path))
	}

	return nil
}

func (f *Fetcher) save(messageID, filename string, data []byte) (string, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		name = "attachment"
	}
	path := filepath.Join(f.opts.Dir, name)

	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(f.opts.Dir, messageID+"_"+name)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking %s: %w", path, err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}

// MatchesKeyword reports whether filename contains any keyword, ignoring case.
func MatchesKeyword(filename string, keywords []string) bool {
	name := strings.ToLower(filename)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// attachments flattens nested multipart payloads into the parts that carry a file.
func attachments(part *gm.MessagePart) []*gm.MessagePart {
	var out []*gm.MessagePart
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		out = append(out, part)
	}
	for _, child := range part.Parts {
		out = append(out, attachments(child)...)
	}
	return out
}

func decode(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
