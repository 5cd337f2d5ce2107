// ABOUTME: Wires configuration into the database, blob store, OCR engine and pipeline
// ABOUTME: Shared by every command that touches stored canvassing data
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/harperreed/canvass/config"
	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/ocr"
	"github.com/harperreed/canvass/pipeline"
	"github.com/harperreed/canvass/resolve"
	"github.com/harperreed/canvass/storage"
	"github.com/harperreed/canvass/templates"
	"go.uber.org/zap"
)

// Text is the OCR text toolchain. It needs no database.
type Text struct {
	Parser  *ocr.Parser
	Scorer  templates.Scorer
	Set     func() *templates.TemplateSet
	Watcher *templates.Watcher // nil unless a templates file is configured
}

func buildText(cfg *config.Config, logger *zap.Logger) (*Text, error) {
	vocab := ocr.DefaultVocabulary()
	if cfg.VocabularyFile != "" {
		v, err := ocr.LoadVocabulary(cfg.VocabularyFile)
		if err != nil {
			return nil, err
		}
		vocab = v
	}

	t := &Text{}
	if cfg.TemplatesFile != "" {
		w, err := templates.NewWatcher(cfg.TemplatesFile, logger)
		if err != nil {
			return nil, err
		}
		t.Watcher = w
		t.Scorer = w
		t.Set = func() *templates.TemplateSet { return w.Matcher().Set() }
	} else {
		m := templates.NewMatcher(templates.DefaultTemplateSet())
		t.Scorer = m
		t.Set = m.Set
	}

	t.Parser = ocr.NewParser(ocr.NewExtractor(vocab), ocr.NewSegmenter(vocab, t.Scorer), cfg.Clock())
	return t, nil
}

func (t *Text) Close() error {
	if t.Watcher != nil {
		return t.Watcher.Close()
	}
	return nil
}

// App holds the opened stores and the services built on them.
type App struct {
	*Text
	Config     *config.Config
	Logger     *zap.Logger
	Store      *db.Store
	Blobs      storage.Store
	Uploader   *pipeline.Uploader
	Supervisor *pipeline.Supervisor
}

// OpenApp opens the database and blob store and builds the pipeline.
func OpenApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	text, err := buildText(cfg, logger)
	if err != nil {
		return nil, err
	}

	database, err := db.OpenDatabase(cfg.DBPath)
	if err != nil {
		_ = text.Close()
		return nil, err
	}
	store := db.NewStore(database)

	blobs, err := storage.Open(cfg.StorageBackend, cfg.StorageDir, logger)
	if err != nil {
		_ = store.Close()
		_ = text.Close()
		return nil, err
	}

	engine, err := newEngine(ctx, cfg, logger)
	if err != nil {
		_ = blobs.Close()
		_ = store.Close()
		_ = text.Close()
		return nil, err
	}

	now := cfg.Clock()
	uploader := pipeline.NewUploader(pipeline.Deps{
		Store:    store,
		Blobs:    blobs,
		Engine:   engine,
		Parser:   text.Parser,
		Scorer:   text.Scorer,
		Resolver: resolve.New(store, logger.Named("resolve"), now),
		Logger:   logger.Named("pipeline"),
		Now:      now,
	}, pipeline.Options{
		OCRTimeout:     cfg.OCRTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	logger.Debug("application opened",
		zap.String("db", cfg.DBPath),
		zap.String("storage", cfg.StorageBackend),
		zap.String("ocr_engine", cfg.OCREngine))

	return &App{
		Text:       text,
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Blobs:      blobs,
		Uploader:   uploader,
		Supervisor: pipeline.NewSupervisor(store, logger.Named("supervisor")),
	}, nil
}

func (a *App) Close() error {
	return errors.Join(a.Blobs.Close(), a.Store.Close(), a.Text.Close())
}

// newEngine returns nil for the "none" engine; uploads then read as empty text.
func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ocr.Engine, error) {
	switch cfg.OCREngine {
	case config.EngineNone:
		logger.Warn("OCR disabled; every upload will fail handle extraction")
		return nil, nil
	case config.EngineVision:
		var creds []byte
		if cfg.VisionCredentialsFile != "" {
			data, err := os.ReadFile(cfg.VisionCredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read vision credentials: %w", err)
			}
			creds = data
		}
		return ocr.NewVision(ctx, cfg.VisionAPIKey, creds)
	default:
		if cfg.OCRSpaceAPIKey == "" {
			logger.Warn("OCR_SPACE_API_KEY is not set; OCR requests will fail")
		}
		o := ocr.NewOCRSpace(cfg.OCRSpaceAPIKey, cfg.OCRTimeout)
		if cfg.OCRSpaceEndpoint != "" {
			o.Endpoint = cfg.OCRSpaceEndpoint
		}
		o.Language = cfg.OCRLanguage
		return o, nil
	}
}
