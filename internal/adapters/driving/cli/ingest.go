package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/muallim-cli/internal/core/ports/driving"
	"github.com/custodia-labs/muallim-cli/internal/logger"
)

var (
	ingestSubjects    []string
	ingestConcurrency int
	ingestWatch       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest curriculum PDFs into the index",
	Long: `Processes every PDF under the subject directories of the given root
(<dir>/<subject>/*.pdf): extracts text with OCR fallback, cleans and
chunks it along the heading hierarchy, and writes both search indexes.

Re-ingesting a PDF replaces its previous version. With --watch the
command keeps running and ingests PDFs as they appear or change.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestSubjects, "subject", "s", nil, "restrict to these subjects")
	ingestCmd.Flags().IntVarP(&ingestConcurrency, "concurrency", "c", 0, "parallel documents (0 = config default)")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory for new PDFs")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	root := args[0]
	opts := driving.IngestOptions{
		Concurrency: ingestConcurrency,
		Subjects:    ingestSubjects,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := ingestor.IngestDir(ctx, root, opts)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestReport(cmd, report)

	if !ingestWatch {
		if _, failed := report.Counts(); failed > 0 {
			return fmt.Errorf("%d documents did not ingest completely", failed)
		}
		return nil
	}

	return watchAndIngest(ctx, cmd, root)
}

func printIngestReport(cmd *cobra.Command, report *driving.IngestReport) {
	for _, doc := range report.Documents {
		switch {
		case doc.Err != nil:
			cmd.Printf("  FAIL %s: %v\n", doc.SourcePath, doc.Err)
		case doc.FailedChunks > 0:
			cmd.Printf("  PART %s: %d chunks committed, %d failed\n",
				doc.SourcePath, doc.Chunks, doc.FailedChunks)
		default:
			cmd.Printf("  OK   %s: %d pages, %d chunks\n",
				doc.SourcePath, doc.Pages, doc.Chunks)
		}
		if len(doc.UnextractablePages) > 0 {
			cmd.Printf("       pages flagged for review: %v\n", doc.UnextractablePages)
		}
	}

	succeeded, failed := report.Counts()
	cmd.Printf("\nIngested %d documents (%d failed, %d pages flagged)\n",
		succeeded, failed, report.UnextractablePages())
}

// watchAndIngest re-ingests PDFs as they are created or modified under the
// subject directories. Runs until the context is cancelled.
func watchAndIngest(ctx context.Context, cmd *cobra.Command, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(root, entry.Name())); err != nil {
				return fmt.Errorf("watch %s: %w", entry.Name(), err)
			}
		}
	}

	cmd.Println("Watching for changes (ctrl-c to stop)...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			subject := filepath.Base(filepath.Dir(event.Name))
			report, err := ingestor.IngestFile(ctx, event.Name, subject)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				cmd.Printf("  FAIL %s: %v\n", event.Name, err)
				continue
			}
			printIngestReport(cmd, &driving.IngestReport{Documents: []driving.DocumentReport{report}})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}
