package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var processSession string

var processCmd = &cobra.Command{
	Use:   "process <transcript>",
	Short: "Extract knowledge from a session transcript",
	Long: `Parse a JSONL session transcript, extract decisions, patterns, tasks and
insights, and store the ones not already known.

The session id defaults to the conversation id in the transcript, then to
the file name.

Examples:
  tenax process ~/.claude/projects/app/5f1c.jsonl
  tenax process transcript.jsonl --session sprint-12`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, args[0], processSession)
	},
}

func init() {
	processCmd.Flags().StringVarP(&processSession, "session", "s", "", "session id (default: from transcript)")
}

func runProcess(ctx context.Context, p *printer, s *service.Service, path, sessionID string) error {
	res, err := s.ProcessTranscript(ctx, path, sessionID)
	if err != nil {
		return err
	}

	p.printf("%s %s\n\n", p.success("✓ Processed"), res.Session.ID)
	p.printf("  %s\n\n", res.Session.Summary)
	printCounts(p, "Added", res.Added)
	if dup := res.Extracted.Total() - res.Added.Total(); dup > 0 {
		p.printf("  %s\n", p.hint(plural(dup, "duplicate")+" skipped"))
	}
	if res.Heuristic {
		p.printf("  %s\n", p.hint("no markers found; used heuristic extraction"))
	}
	if res.Skipped > 0 {
		p.printf("  %s\n", p.failure(plural(res.Skipped, "malformed line")+" ignored"))
	}
	if verbose {
		p.printf("  Tokens (est.): %d\n", res.TokenEstimate)
		for _, it := range res.Items {
			p.printf("  + %s %s\n", p.status("["+string(it.Kind())+"]"), models.Headline(it))
		}
	}
	return nil
}

func printCounts(p *printer, label string, c models.ItemCounts) {
	p.printf("  %s:\n", label)
	p.printf("    Decisions: %d\n", c.Decisions)
	p.printf("    Patterns:  %d\n", c.Patterns)
	p.printf("    Tasks:     %d\n", c.Tasks)
	p.printf("    Insights:  %d\n", c.Insights)
}
