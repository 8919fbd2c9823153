package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var recordCmd = &cobra.Command{
	Use:   "record [file|-]",
	Short: "Store items from a JSON batch",
	Long: `Store decisions, patterns, tasks and insights given as JSON.

The batch is read from a file, or from stdin when the argument is "-" or
missing:

  {"sessionId": "...",
   "decisions": [{"topic": "...", "decision": "...", "rationale": "...", "supersedes": "..."}],
   "patterns":  [{"name": "...", "description": "...", "usage": "..."}],
   "tasks":     [{"title": "...", "description": "...", "priority": "high"}],
   "insights":  [{"content": "...", "context": "..."}]}

Examples:
  tenax record batch.json
  echo '{"insights":[{"content":"CI caches go modules"}]}' | tenax record`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open batch: %w", err)
			}
			defer f.Close()
			in = f
		}
		return runRecord(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, in)
	},
}

func runRecord(ctx context.Context, p *printer, s *service.Service, in io.Reader) error {
	batch, err := service.DecodeBatch(in)
	if err != nil {
		return err
	}
	if batch.Len() == 0 {
		return fmt.Errorf("nothing to record: the batch has no items")
	}

	res, err := s.RecordItems(ctx, batch)
	if err != nil {
		return err
	}

	p.printf("%s %s\n\n", p.success("✓ Recorded"), plural(res.Added.Total(), "item"))
	printCounts(p, "Added", res.Added)
	if n := res.Duplicates.Total(); n > 0 {
		p.printf("  %s\n", p.hint(plural(n, "duplicate")+" skipped"))
	}
	for _, r := range res.Rejected {
		p.printf("  %s %s #%d: %s\n", p.failure("✗"), r.Type, r.Index, r.Reason)
	}
	for _, it := range res.Items {
		p.printf("  + %s %s %s\n", p.status("["+string(it.Kind())+"]"), models.Headline(it), p.hint(it.ItemID()))
	}
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
