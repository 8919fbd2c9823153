package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/metrics"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc)
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the report as JSON")
}

func runStats(ctx context.Context, p *printer, s *service.Service) error {
	st, err := s.Stats(ctx)
	if err != nil {
		return notInitialized(err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		p.printf("%s\n", data)
		return nil
	}

	p.printf("%s\n\n", p.status("Project memory"))
	p.printf("  Sessions:   %d\n", st.Index.TotalSessions)
	p.printf("  Decisions:  %d\n", st.Index.TotalDecisions)
	p.printf("  Patterns:   %d\n", st.Index.TotalPatterns)
	p.printf("  Tasks:      %d pending, %d completed\n", st.Index.TotalTasks.Pending, st.Index.TotalTasks.Completed)
	p.printf("  Insights:   %d\n", st.Index.TotalInsights)
	p.printf("  Topics:     %d\n", st.Topics)
	p.printf("  Vectors:    %d\n", st.Vectors)
	p.printf("  Model:      %s (%d dims)\n", st.Model, st.Dimension)
	if !st.Updated.IsZero() {
		p.printf("  Updated:    %s\n", st.Updated.Format("2006-01-02 15:04:05"))
	}

	items := st.Index.TotalDecisions + st.Index.TotalPatterns + st.Index.TotalInsights +
		st.Index.TotalTasks.Pending + st.Index.TotalTasks.Completed
	if items != st.Vectors {
		p.printf("\n  %s\n", p.failure("index and vectors differ; run 'tenax reconcile'"))
	}

	if verbose {
		printMetrics(p, st.Metrics)
	}
	return nil
}

func printMetrics(p *printer, m metrics.Snapshot) {
	p.printf("\n%s\n", p.status("Timings (this process)"))
	ops := []struct {
		name string
		snap *metrics.OperationSnapshot
	}{
		{"extraction", m.Extraction},
		{"embedding", m.Embedding},
		{"vector search", m.VectorSearch},
		{"vector write", m.VectorWrite},
		{"index save", m.IndexSave},
	}
	timed := false
	for _, op := range ops {
		if op.snap == nil {
			continue
		}
		timed = true
		p.printf("  %-14s %4d calls  avg %7.1fms  max %5dms  %d items\n",
			op.name, op.snap.Count, op.snap.AvgTimeMs, op.snap.MaxTimeMs, op.snap.Items)
	}
	if !timed {
		p.printf("  %s\n", p.hint("no operations timed yet"))
	}
}
