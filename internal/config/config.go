// Package config loads the muallim configuration from a TOML file and
// provides defaults so a zero-config run works out of the box.
//
// Cleaning rules, heading-marker patterns and extraction thresholds are
// deliberately data, not code: subjects select profiles by key at call time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration.
type Config struct {
	// DataDir holds the metadata database and indexes.
	// Defaults to ~/.muallim/data.
	DataDir string `toml:"data_dir"`

	Extractor ExtractorConfig `toml:"extractor"`
	Chunker   ChunkerConfig   `toml:"chunker"`
	Ingest    IngestConfig    `toml:"ingest"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Assembler AssemblerConfig `toml:"assembler"`
	Session   SessionConfig   `toml:"session"`

	// Subjects maps subject keys to their language and cleaning profile.
	Subjects map[string]SubjectConfig `toml:"subjects"`

	// Cleaners maps profile names to cleaning rule sets.
	Cleaners map[string]CleanerConfig `toml:"cleaners"`

	// Languages maps language keys to heading-marker pattern sets.
	Languages map[string]LanguageConfig `toml:"languages"`
}

// ExtractorConfig tunes the text-layer quality gate and column detection.
type ExtractorConfig struct {
	// MinCharDensity is the minimum extracted characters per 1000 square
	// points of page area for the text layer to count as high quality.
	MinCharDensity float64 `toml:"min_char_density" validate:"gt=0"`

	// MinScriptRatio is the minimum share of recognisable-script runes
	// (Arabic/Latin letters and digits) among non-space runes.
	MinScriptRatio float64 `toml:"min_script_ratio" validate:"gt=0,lte=1"`

	// MinOCRChars is the minimum character count for OCR output to pass.
	MinOCRChars int `toml:"min_ocr_chars" validate:"gt=0"`

	// GutterMinWidth is the minimum horizontal glyph-free gap, in page
	// points, for a column gutter.
	GutterMinWidth float64 `toml:"gutter_min_width" validate:"gt=0"`

	// GutterCenterBand bounds where a gutter may sit, as a fraction of
	// page width around the centre (0.2 means 30%..70%).
	GutterCenterBand float64 `toml:"gutter_center_band" validate:"gt=0,lt=0.5"`

	// OCRTimeout bounds one OCR call. On timeout the page is marked
	// unextractable and the batch continues.
	OCRTimeout time.Duration `toml:"ocr_timeout" validate:"gt=0"`
}

// ChunkerConfig bounds emitted chunk sizes, in runes.
type ChunkerConfig struct {
	MinChars int `toml:"min_chars" validate:"gt=0"`
	MaxChars int `toml:"max_chars" validate:"gtfield=MinChars"`
}

// IngestConfig tunes the batch pipeline.
type IngestConfig struct {
	// Concurrency is the default number of documents processed in parallel.
	Concurrency int `toml:"concurrency" validate:"gt=0"`

	// IndexRetryAttempts bounds retries for a failed index half.
	IndexRetryAttempts int `toml:"index_retry_attempts" validate:"gte=1"`

	// IndexRetryBackoff is the base backoff between retries (doubled each
	// attempt).
	IndexRetryBackoff time.Duration `toml:"index_retry_backoff" validate:"gt=0"`
}

// RetrievalConfig tunes hybrid search.
type RetrievalConfig struct {
	// TopK is the default fused result count.
	TopK int `toml:"top_k" validate:"gt=0"`

	// KDense and KSparse are the per-leg candidate counts fed to fusion.
	KDense  int `toml:"k_dense" validate:"gt=0"`
	KSparse int `toml:"k_sparse" validate:"gt=0"`

	// RRFKappa is the reciprocal-rank-fusion smoothing constant.
	RRFKappa int `toml:"rrf_kappa" validate:"gt=0"`
}

// OllamaConfig configures the embedding and generation services.
type OllamaConfig struct {
	BaseURL        string        `toml:"base_url" validate:"required,url"`
	EmbedModel     string        `toml:"embed_model" validate:"required"`
	Dimensions     int           `toml:"dimensions" validate:"gt=0"`
	EmbedTimeout   time.Duration `toml:"embed_timeout" validate:"gt=0"`
	EmbedRPS       float64       `toml:"embed_rps" validate:"gt=0"`
	GenModel       string        `toml:"gen_model" validate:"required"`
	GenTimeout     time.Duration `toml:"gen_timeout" validate:"gt=0"`
	GenTemperature float64       `toml:"gen_temperature" validate:"gte=0,lte=2"`
	GenMaxTokens   int           `toml:"gen_max_tokens" validate:"gt=0"`
}

// AssemblerConfig bounds the generation context.
type AssemblerConfig struct {
	// TokenBudget caps the assembled context size; lowest-ranked chunks
	// are dropped first when over budget.
	TokenBudget int `toml:"token_budget" validate:"gt=0"`
}

// SessionConfig bounds conversation memory.
type SessionConfig struct {
	// WindowSize is the number of remembered turns per session.
	WindowSize int `toml:"window_size" validate:"gt=0"`
}

// SubjectConfig binds a subject to its language and cleaning profile.
type SubjectConfig struct {
	// Language keys into Config.Languages for marker patterns.
	Language string `toml:"language" validate:"required"`

	// OCRLanguage is the OCR engine language hint (e.g. "ara+eng").
	OCRLanguage string `toml:"ocr_language" validate:"required"`

	// Cleaner keys into Config.Cleaners.
	Cleaner string `toml:"cleaner" validate:"required"`
}

// CleanerConfig is one named cleaning rule set. All rules are data so
// profiles can be tested in isolation and tuned per curriculum.
type CleanerConfig struct {
	// CaptionPatterns are line-anchored regexes for figure/diagram
	// captions to strip.
	CaptionPatterns []string `toml:"caption_patterns"`

	// ProtectOperators lists symbols to space out and preserve
	// (mathematical operators, unit symbols).
	ProtectOperators []string `toml:"protect_operators"`

	// StripIsolatedLatin removes single Latin letters stranded inside
	// Arabic text by OCR of labelled diagrams.
	StripIsolatedLatin bool `toml:"strip_isolated_latin"`

	// NormaliseArabic enables diacritic removal, tatweel stripping and
	// Arabic punctuation spacing.
	NormaliseArabic bool `toml:"normalise_arabic"`

	// NormaliseBullets rewrites bullet glyphs to "- ".
	NormaliseBullets bool `toml:"normalise_bullets"`

	// ReflowOptions puts multiple-choice options (A. B. C. D.) on their
	// own lines.
	ReflowOptions bool `toml:"reflow_options"`
}

// MarkerRule is one heading-marker pattern for a language.
type MarkerRule struct {
	// Class is the structural class: unit, chapter, lesson or numbered.
	Class string `toml:"class" validate:"oneof=unit chapter lesson numbered"`

	// Pattern is a line-anchored regular expression.
	Pattern string `toml:"pattern" validate:"required"`
}

// LanguageConfig is the marker pattern set for one language.
type LanguageConfig struct {
	Markers []MarkerRule `toml:"markers" validate:"dive"`
}

// Load reads the config file at path, layering it over defaults and
// validating the result. An empty path loads pure defaults; a missing file
// at an explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".muallim", "data")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, including cross-references from
// subjects to cleaner profiles and languages.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	for subject, sc := range c.Subjects {
		if _, ok := c.Cleaners[sc.Cleaner]; !ok {
			return fmt.Errorf("subject %q: unknown cleaner profile %q", subject, sc.Cleaner)
		}
		if _, ok := c.Languages[sc.Language]; !ok {
			return fmt.Errorf("subject %q: unknown language %q", subject, sc.Language)
		}
	}
	return nil
}

// Subject returns the configuration for a subject key, or false when the
// subject is not configured.
func (c *Config) Subject(key string) (SubjectConfig, bool) {
	sc, ok := c.Subjects[key]
	return sc, ok
}

// SubjectKeys returns the configured subject keys.
func (c *Config) SubjectKeys() []string {
	keys := make([]string, 0, len(c.Subjects))
	for k := range c.Subjects {
		keys = append(keys, k)
	}
	return keys
}
