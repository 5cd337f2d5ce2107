// ABOUTME: Runtime configuration loaded from .env files and the environment
// ABOUTME: Resolves default database and screenshot locations under the XDG data home
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v6"
	"github.com/harperreed/canvass/logging"
	"github.com/joho/godotenv"
)

// OCR engine names.
const (
	EngineOCRSpace = "ocrspace"
	EngineVision   = "vision"
	EngineNone     = "none"
)

// Config holds every setting the commands share.
type Config struct {
	DBPath         string `env:"CANVASS_DB_PATH"`
	StorageDir     string `env:"CANVASS_STORAGE_DIR"`
	StorageBackend string `env:"CANVASS_STORAGE_BACKEND" envDefault:"disk"`
	Address        string `env:"CANVASS_ADDRESS" envDefault:":8080"`
	MaxUploadBytes int64  `env:"CANVASS_MAX_UPLOAD_BYTES" envDefault:"10485760"`
	Timezone       string `env:"CANVASS_TIMEZONE" envDefault:"Asia/Jakarta"`

	TemplatesFile  string `env:"CANVASS_TEMPLATES_FILE"`
	VocabularyFile string `env:"CANVASS_VOCABULARY_FILE"`

	OCREngine             string        `env:"OCR_ENGINE" envDefault:"ocrspace"`
	OCRTimeout            time.Duration `env:"OCR_TIMEOUT" envDefault:"30s"`
	OCRSpaceAPIKey        string        `env:"OCR_SPACE_API_KEY"`
	OCRSpaceEndpoint      string        `env:"OCR_SPACE_ENDPOINT"`
	OCRLanguage           string        `env:"OCR_LANGUAGE" envDefault:"eng"`
	VisionAPIKey          string        `env:"GOOGLE_VISION_API_KEY"`
	VisionCredentialsFile string        `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// Load reads the given .env files, or ./.env when none are named, then parses
// the environment. Variables already set in the environment win over files.
// A missing default .env is not an error; a missing named file is.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(xdg.DataHome, "canvass", "canvass.db")
	}
	if c.StorageDir == "" {
		c.StorageDir = filepath.Join(xdg.DataHome, "canvass", "blobs")
	}
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.OCREngine {
	case EngineOCRSpace, EngineVision, EngineNone:
	default:
		errs = append(errs, fmt.Errorf("OCR_ENGINE must be ocrspace, vision or none, got %q", c.OCREngine))
	}
	switch c.StorageBackend {
	case "disk", "badger":
	default:
		errs = append(errs, fmt.Errorf("CANVASS_STORAGE_BACKEND must be disk or badger, got %q", c.StorageBackend))
	}
	if c.OCRTimeout <= 0 {
		errs = append(errs, errors.New("OCR_TIMEOUT must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("CANVASS_MAX_UPLOAD_BYTES must be positive"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("CANVASS_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the timezone staff work in. Day boundaries such as
// "today" and the follow-up cadence are computed in it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clock returns the current time in Location.
func (c *Config) Clock() func() time.Time {
	loc := c.Location()
	return func() time.Time { return time.Now().In(loc) }
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Options {
	return logging.Options{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
	}
}
