// Package cli implements the muallim command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/muallim-cli/internal/adapters/driven/embedding/ollama"
	ollamallm "github.com/custodia-labs/muallim-cli/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/muallim-cli/internal/adapters/driven/ocr/tesseract"
	"github.com/custodia-labs/muallim-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/muallim-cli/internal/chunker"
	"github.com/custodia-labs/muallim-cli/internal/cleaner"
	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driving"
	"github.com/custodia-labs/muallim-cli/internal/core/services"
	"github.com/custodia-labs/muallim-cli/internal/extractor"
	"github.com/custodia-labs/muallim-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Services wired by ensureServices. Tests inject fakes directly.
var (
	cfg       *config.Config
	store     *sqlite.Store
	docStore  driven.DocumentStore
	ingestor  driving.Ingestor
	retriever driving.Retriever
	assistant driving.Assistant
)

var rootCmd = &cobra.Command{
	Use:   "muallim",
	Short: "Curriculum tutoring from your own textbooks",
	Long: `Muallim ingests curriculum PDFs into a local hybrid search index
and answers student questions grounded in the indexed material.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// ensureServices builds the full service graph once. Commands call it
// lazily so tests can pre-populate the package vars with fakes.
func ensureServices() error {
	if ingestor != nil && retriever != nil && assistant != nil {
		return nil
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	store, err = sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	docStore = store.DocumentStore()

	var ocr driven.OCREngine
	if engine := tesseract.NewEngine(); engine.Available() {
		ocr = engine
	} else {
		logger.Warn("tesseract or pdftoppm not found; scanned pages will be flagged unextractable")
	}

	cleaners, err := cleaner.NewSet(cfg)
	if err != nil {
		return err
	}
	chunkers, err := chunker.NewSet(cfg.Chunker, cfg.Languages)
	if err != nil {
		return err
	}

	embedder := ollama.NewEmbeddingService(cfg.Ollama)

	ingestor = services.NewIngestService(
		extractor.New(cfg.Extractor, ocr),
		cleaners,
		chunkers,
		embedder,
		docStore,
		store.VectorIndex(),
		store.SparseIndex(),
		cfg.Subjects,
		cfg.Ingest,
	)

	retriever = services.NewRetrievalService(
		docStore,
		store.SparseIndex(),
		store.VectorIndex(),
		embedder,
		cfg.Subjects,
		cfg.Retrieval,
	)

	assembler, err := services.NewAssembler(cfg.Assembler)
	if err != nil {
		return err
	}
	assistant = services.NewAssistantService(
		retriever,
		assembler,
		ollamallm.NewGenerationService(cfg.Ollama),
		services.NewSessionManager(cfg.Session.WindowSize),
		driven.GenerateOptions{
			MaxTokens:   cfg.Ollama.GenMaxTokens,
			Temperature: cfg.Ollama.GenTemperature,
		},
	)

	return nil
}

func closeServices() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
		store = nil
	}
}
