package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

var (
	searchSubject string
	searchLimit   int
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed curriculum content",
	Long: `Performs hybrid search over one subject's committed chunks.
Combines keyword (BM25) and semantic (vector) rankings with reciprocal
rank fusion. If one search leg is unavailable the results come from the
surviving leg and are marked degraded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchSubject, "subject", "s", "", "subject to search (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = config default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	_ = searchCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	resp, err := retriever.Search(cmd.Context(), args[0], searchSubject, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}
	return outputSearchTable(cmd, resp)
}

type searchResultJSON struct {
	ChunkID string   `json:"chunk_id"`
	Path    []string `json:"path"`
	Text    string   `json:"text"`
	Score   float64  `json:"score"`
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.RetrievalResponse) error {
	out := struct {
		Results     []searchResultJSON `json:"results"`
		Degraded    bool               `json:"degraded"`
		DegradedLeg string             `json:"degraded_leg,omitempty"`
	}{
		Results:     make([]searchResultJSON, 0, len(resp.Results)),
		Degraded:    resp.Degraded,
		DegradedLeg: resp.DegradedLeg,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, searchResultJSON{
			ChunkID: r.Chunk.ID,
			Path:    r.Chunk.Path,
			Text:    r.Chunk.Text,
			Score:   r.Result.Score,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.RetrievalResponse) error {
	if resp.Degraded {
		cmd.Printf("Warning: %s search unavailable, results may be incomplete\n\n", resp.DegradedLeg)
	}
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range resp.Results {
		location := strings.Join(r.Chunk.Path, " > ")
		if location == "" {
			location = "(front matter)"
		}
		cmd.Printf("  [%d] %s (%.4f)\n", i+1, location, r.Result.Score)
		cmd.Printf("      %s\n", snippet(r.Chunk.Text, 160))
		cmd.Println()
	}
	return nil
}

// snippet truncates text to limit runes on a rune boundary.
func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
