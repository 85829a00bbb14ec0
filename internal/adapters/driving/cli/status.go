package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexed content per subject",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	stats, err := docStore.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	if len(stats) == 0 {
		cmd.Println("No documents indexed yet. Run 'muallim ingest <dir>' first.")
		return nil
	}

	cmd.Printf("%-20s %10s %10s\n", "SUBJECT", "DOCUMENTS", "CHUNKS")
	for _, s := range stats {
		cmd.Printf("%-20s %10d %10d\n", s.Subject, s.Documents, s.Chunks)
	}
	return nil
}
