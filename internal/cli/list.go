package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var (
	listLimit  int
	listStatus string
	listTopic  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List decisions, patterns, tasks, insights or sessions",
	Long: `List stored knowledge, newest first.

Subcommands:
  decisions  List decisions (default)
  patterns   List patterns
  tasks      List tasks
  insights   List insights
  sessions   List processed sessions

Examples:
  tenax list
  tenax list decisions --topic database
  tenax list tasks --status pending
  tenax list sessions -n 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, "decisions")
	},
}

func listSubcommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, name)
		},
	}
}

func init() {
	listCmd.PersistentFlags().IntVarP(&listLimit, "limit", "n", 50, "max results")
	listCmd.PersistentFlags().StringVar(&listStatus, "status", "", "filter tasks by status (pending, completed)")
	listCmd.PersistentFlags().StringVar(&listTopic, "topic", "", "filter decisions by topic")

	listCmd.AddCommand(listSubcommand("decisions", "List decisions"))
	listCmd.AddCommand(listSubcommand("patterns", "List patterns"))
	listCmd.AddCommand(listSubcommand("tasks", "List tasks"))
	listCmd.AddCommand(listSubcommand("insights", "List insights"))
	listCmd.AddCommand(listSubcommand("sessions", "List processed sessions"))
}

func runList(ctx context.Context, p *printer, s *service.Service, what string) error {
	x, err := s.Index(ctx)
	if err != nil {
		return notInitialized(err)
	}
	snap := x.Snapshot()

	if what == "sessions" {
		return listSessions(p, snap.Sessions)
	}

	var items []models.Item
	switch what {
	case "decisions":
		for i := range snap.Decisions {
			d := &snap.Decisions[i]
			if listTopic != "" && !models.EqualFold(d.Topic, listTopic) {
				continue
			}
			items = append(items, d)
		}
	case "patterns":
		for i := range snap.Patterns {
			items = append(items, &snap.Patterns[i])
		}
	case "tasks":
		for i := range snap.Tasks {
			t := &snap.Tasks[i]
			if listStatus != "" && !strings.EqualFold(string(t.Status), listStatus) {
				continue
			}
			items = append(items, t)
		}
	case "insights":
		for i := range snap.Insights {
			items = append(items, &snap.Insights[i])
		}
	default:
		return fmt.Errorf("unknown list kind %q", what)
	}

	if len(items) == 0 {
		p.printf("No %s found.\n", what)
		return nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Created().After(items[j].Created())
	})
	total := len(items)
	if listLimit > 0 && len(items) > listLimit {
		items = items[:listLimit]
	}

	p.printf("%s (%d):\n\n", strings.ToUpper(what[:1])+what[1:], total)
	for _, it := range items {
		p.printf("- %s %s\n", models.Headline(it), p.hint(it.ItemID()))
		if verbose {
			printDetail(p, it)
		}
	}
	return nil
}

func printDetail(p *printer, it models.Item) {
	switch v := it.(type) {
	case *models.Decision:
		if v.Rationale != "" {
			p.printf("  Rationale: %s\n", v.Rationale)
		}
		if v.Supersedes != "" {
			p.printf("  Supersedes: %s\n", v.Supersedes)
		}
	case *models.Pattern:
		p.printf("  %s\n", v.Description)
		if v.Usage != "" {
			p.printf("  Usage: %s\n", v.Usage)
		}
	case *models.Task:
		p.printf("  Priority: %s\n", v.Priority)
		if v.Description != "" {
			p.printf("  %s\n", v.Description)
		}
	case *models.Insight:
		if v.Context != "" {
			p.printf("  Context: %s\n", v.Context)
		}
	}
	p.printf("  Session: %s  %s\n", it.OwnerSession(), it.Created().Format("2006-01-02 15:04"))
}

func listSessions(p *printer, sessions []models.Session) error {
	if len(sessions) == 0 {
		p.printf("No sessions found.\n")
		return nil
	}

	sorted := append([]models.Session(nil), sessions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProcessedAt.After(sorted[j].ProcessedAt)
	})
	if listLimit > 0 && len(sorted) > listLimit {
		sorted = sorted[:listLimit]
	}

	p.printf("Sessions (%d):\n\n", len(sessions))
	for _, s := range sorted {
		p.printf("- %s %s\n", s.ID, p.hint(s.ProcessedAt.Format("2006-01-02 15:04")))
		p.printf("  %s\n", s.Summary)
		if verbose && len(s.Topics) > 0 {
			p.printf("  Topics: %s\n", strings.Join(s.Topics, ", "))
		}
	}
	return nil
}
