package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

var (
	askSubject string
	askMode    string
	askSession string
	askReset   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the curriculum",
	Long: `Retrieves relevant curriculum chunks, assembles them with the recent
conversation turns into a prompt and generates a grounded answer.

Modes: answer (direct answer), quiz (multiple-choice questions),
explain (step-by-step explanation). Sessions remember the last few
turns; use --reset to start a session over.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSubject, "subject", "s", "", "subject to answer from (required)")
	askCmd.Flags().StringVarP(&askMode, "mode", "m", string(domain.ModeAnswer), "answer mode: answer, quiz or explain")
	askCmd.Flags().StringVar(&askSession, "session", "default", "conversation session ID")
	askCmd.Flags().BoolVar(&askReset, "reset", false, "clear the session before asking")
	_ = askCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	if askReset {
		assistant.Reset(askSession)
	}

	answer, err := assistant.Ask(cmd.Context(), args[0], askSubject, askSession, domain.AnswerMode(askMode))
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if answer.Degraded {
		cmd.Println("Warning: retrieval was degraded, the answer may miss relevant material")
		cmd.Println()
	}

	cmd.Println(strings.TrimSpace(answer.Text))

	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, src := range answer.Sources {
			location := strings.Join(src.Chunk.Path, " > ")
			if location == "" {
				location = "(front matter)"
			}
			cmd.Printf("  [%d] %s\n", i+1, location)
		}
	}
	return nil
}
