package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/muallim-cli/internal/core/ports/driving"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [dir]", ingestCmd.Use)
}

func TestIngestCmd_Long(t *testing.T) {
	assert.Contains(t, ingestCmd.Long, "OCR fallback")
	assert.Contains(t, ingestCmd.Long, "Re-ingesting")
}

func TestIngestCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestIngestCmd_HasFlags(t *testing.T) {
	require.NotNil(t, ingestCmd.Flags().Lookup("subject"))
	require.NotNil(t, ingestCmd.Flags().Lookup("concurrency"))
	require.NotNil(t, ingestCmd.Flags().Lookup("watch"))
}

func TestIngestCmd_PrintsReport(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "/books"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "OK   /books/physics/currents.pdf: 12 pages, 30 chunks")
	assert.Contains(t, buf.String(), "Ingested 1 documents (0 failed, 0 pages flagged)")
	assert.Equal(t, "/books", ingestor.(*stubIngestor).lastRoot)
}

func TestIngestCmd_PassesOptions(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "--subject", "physics", "--concurrency", "2", "/books"})
	defer func() {
		rootCmd.SetArgs(nil)
		ingestSubjects = nil
		ingestConcurrency = 0
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	opts := ingestor.(*stubIngestor).lastOpts
	assert.Equal(t, []string{"physics"}, opts.Subjects)
	assert.Equal(t, 2, opts.Concurrency)
}

func TestIngestCmd_ReportsPartialFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestor.(*stubIngestor).report = &driving.IngestReport{
		Documents: []driving.DocumentReport{
			{SourcePath: "/books/physics/a.pdf", Subject: "physics", Pages: 5, Chunks: 8, FailedChunks: 2},
			{SourcePath: "/books/physics/b.pdf", Subject: "physics", Err: errors.New("open pdf: corrupted")},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "/books"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 documents did not ingest completely")
	assert.Contains(t, buf.String(), "PART /books/physics/a.pdf: 8 chunks committed, 2 failed")
	assert.Contains(t, buf.String(), "FAIL /books/physics/b.pdf: open pdf: corrupted")
}

func TestIngestCmd_ReportsFlaggedPages(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestor.(*stubIngestor).report = &driving.IngestReport{
		Documents: []driving.DocumentReport{
			{SourcePath: "/books/physics/a.pdf", Subject: "physics", Pages: 5, Chunks: 8,
				UnextractablePages: []int{2, 4}},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "/books"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "pages flagged for review: [2 4]")
	assert.Contains(t, buf.String(), "2 pages flagged")
}
