package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var (
	searchTypes []string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over stored knowledge",
	Long: `Search decisions, patterns, tasks and insights by meaning.

Results are ranked by cosine similarity to the query.

Examples:
  tenax search "database choice"
  tenax search "error handling" -t pattern,decision
  tenax search "open work" -t task -n 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := parseTypes(searchTypes)
		if err != nil {
			return err
		}
		return runSearch(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, args[0], searchLimit, types)
	},
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil, "filter by item types")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max results (default from config)")
}

func runSearch(ctx context.Context, p *printer, s *service.Service, query string, limit int, types []models.ItemType) error {
	hits, err := s.Search(ctx, query, limit, types...)
	if err != nil {
		return notInitialized(err)
	}

	if len(hits) == 0 {
		p.printf("No results found.\n")
		return nil
	}

	p.printf("Found %d results:\n\n", len(hits))
	for i, h := range hits {
		p.printf("%d. %s %s\n", i+1, p.status(fmt.Sprintf("[%s]", h.Type)), models.Headline(h.Item))
		p.printf("   %s\n", p.hint(fmt.Sprintf("score %.3f  id %s", h.Score, h.Item.ItemID())))
		if verbose {
			p.printf("   %s\n", models.Truncate(h.Item.EmbeddingText(), 200))
		}
		p.printf("\n")
	}
	return nil
}

// parseTypes validates -t values.
func parseTypes(raw []string) ([]models.ItemType, error) {
	var out []models.ItemType
	for _, r := range raw {
		t, ok := models.ParseItemType(r)
		if !ok {
			return nil, fmt.Errorf("unknown item type %q (want decision, pattern, task or insight)", r)
		}
		out = append(out, t)
	}
	return out, nil
}
