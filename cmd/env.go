package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/ai"
	"github.com/spigell/recruiter/internal/ai/gemini"
	"github.com/spigell/recruiter/internal/calendar"
	"github.com/spigell/recruiter/internal/dedup"
	"github.com/spigell/recruiter/internal/enrich"
	"github.com/spigell/recruiter/internal/gmail"
	"github.com/spigell/recruiter/internal/googleauth"
	"github.com/spigell/recruiter/internal/lock"
	"github.com/spigell/recruiter/internal/logger"
	"github.com/spigell/recruiter/internal/records"
	"github.com/spigell/recruiter/internal/scheduling"
	"github.com/spigell/recruiter/internal/secrets"
	"github.com/spigell/recruiter/internal/textextract"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	lockFile = ".recruiter.lock"
)

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo},
}

// env carries what every command needs: logger, config and the tracking store.
type env struct {
	ctx    context.Context
	logger *zap.Logger
	config *Config
	redis  *redis.Client
	store  *dedup.Store
	lock   lock.Lock
	cancel context.CancelFunc
	closed bool
}

func setup(ctx context.Context) *env {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	e := &env{ctx: ctx, logger: logger, config: config}

	backend := strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	if backend == "redis" {
		client, err := newRedisClient(ctx, config.Redis)
		if err != nil {
			logger.Fatal("connecting to redis", zap.Error(err), zap.String("addr", config.Redis.Addr))
		}
		e.redis = client
	}

	store, err := dedup.Open(ctx, dedup.Options{
		Backend:     backend,
		Dir:         config.DataDir,
		SQLitePath:  config.path(config.Storage.SQLitePath),
		Redis:       e.redis,
		RedisPrefix: config.Redis.Prefix + ":processed",
	})
	if err != nil {
		logger.Fatal("opening tracking storage", zap.Error(err), zap.String("backend", backend))
	}
	e.store = dedup.NewStore(store, logger)

	return e
}

func newRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis.addr is required for the redis backend")
	}

	var password string
	if cfg.PasswordFile != "" {
		p, err := secrets.Load(secrets.Source{Name: "redis password", File: cfg.PasswordFile})
		if err != nil {
			return nil, err
		}
		password = p
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return client, nil
}

// acquire takes the run lock. Only one command may mutate tracking state at a time.
func (e *env) acquire() {
	var (
		held lock.Lock
		err  error
	)

	if e.redis != nil {
		held, err = lock.AcquireRedis(e.ctx, e.redis, e.config.Redis.Prefix+":lock", e.config.Redis.LockTTL)
	} else {
		held, err = lock.AcquireFile(filepath.Join(e.config.DataDir, lockFile))
	}

	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			e.fatal("acquiring run lock", zap.Error(err),
				zap.String("hint", "wait for the other run to finish"),
			)
		}
		e.fatal("acquiring run lock", zap.Error(err))
	}

	e.lock = held

	// Work started after this point stops once the lock can no longer be trusted.
	ctx, cancel := context.WithCancel(e.ctx)
	e.ctx, e.cancel = ctx, cancel

	if lost := held.Lost(); lost != nil {
		go func() {
			select {
			case <-lost:
				e.logger.Error("run lock lost, stopping the run",
					zap.String("hint", "check the redis connection and redis.lock-ttl"),
				)
				cancel()
			case <-ctx.Done():
			}
		}()
	}
}

func (e *env) close() {
	if e.closed {
		return
	}
	e.closed = true

	if e.lock != nil {
		if err := e.lock.Release(context.WithoutCancel(e.ctx)); err != nil {
			e.logger.Warn("releasing run lock", zap.Error(err))
		}
	}
	if e.cancel != nil {
		e.cancel()
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing tracking storage", zap.Error(err))
	}
	if e.redis != nil {
		e.redis.Close()
	}
	_ = e.logger.Sync()
}

// fatal releases the lock and storage before exiting.
func (e *env) fatal(msg string, fields ...zap.Field) {
	e.close()
	e.logger.Fatal(msg, fields...)
}

func (e *env) newFetcher() (*gmail.Fetcher, error) {
	cfg := e.config.Gmail

	client, err := googleauth.Client(e.ctx, cfg.Config, googleauth.TerminalPrompt, e.logger, gmail.Scope)
	if err != nil {
		return nil, fmt.Errorf("authorizing gmail: %w", err)
	}

	return gmail.New(e.ctx, client, gmail.Options{
		Dir:      e.config.ResumesDir(),
		Query:    cfg.Query,
		Keywords: cfg.Keywords,
	}, e.store, e.logger)
}

func (e *env) newTextExtractor() *textextract.Extractor {
	return textextract.New(textextract.Options{
		InputDir:  e.config.ResumesDir(),
		OutputDir: e.config.TextDir(),
		Workers:   e.config.Extract.Workers,
	}, e.store, e.logger)
}

func (e *env) newParser() (*ai.Parser, error) {
	extractor, err := e.newFieldExtractor()
	if err != nil {
		return nil, err
	}

	return ai.NewParser(extractor, e.store, e.config.TextDir(), e.config.ParsedDir(), e.logger), nil
}

func (e *env) newFieldExtractor() (ai.FieldExtractor, error) {
	cfg := e.config.AI

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := e.logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(e.ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewExtractor(generator, genLogger, cfg.Gemini.MaxLogLength), nil
}

func (e *env) newEnricher() *enrich.Runner {
	return enrich.NewRunner(e.config.ParsedDir(), e.config.EnrichedDir(), e.store, e.logger)
}

func (e *env) newRecords() *records.Store {
	return records.New(e.config.InterviewsDir(), e.logger)
}

func (e *env) newScheduler(params scheduling.Params) (*scheduling.Scheduler, error) {
	cfg := e.config.Calendar

	client, err := googleauth.Client(e.ctx, cfg.Config, googleauth.TerminalPrompt, e.logger, calendar.Scope)
	if err != nil {
		return nil, fmt.Errorf("authorizing calendar: %w", err)
	}

	sink, err := calendar.New(e.ctx, client, calendar.Options{
		CalendarID:     cfg.CalendarID,
		SendUpdates:    cfg.SendUpdates,
		RequestTimeout: cfg.RequestTimeout,
		Breaker:        cfg.Breaker,
	}, e.logger)
	if err != nil {
		return nil, err
	}

	return scheduling.New(params, sink, e.newRecords(), e.store, scheduling.WithLogger(e.logger)), nil
}

// confirm asks the operator before booking anything unless autoApprove is set.
func (e *env) confirm(autoApprove bool, fields ...zap.Field) bool {
	e.logger.Info("interviews are about to be booked", fields...)
	if autoApprove {
		return true
	}

	_, action, err := prompt.Run()
	if err != nil {
		e.fatal("exiting", zap.Error(err))
	}

	if action != PromptYes {
		e.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return false
	}
	return true
}
