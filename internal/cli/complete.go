package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/index"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var completeCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a pending task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComplete(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, args[0])
	},
}

func runComplete(ctx context.Context, p *printer, s *service.Service, id string) error {
	t, err := s.CompleteTask(ctx, id)
	switch {
	case errors.Is(err, index.ErrNotFound):
		return fmt.Errorf("no task with id %s; use 'tenax list tasks' to find it", id)
	case errors.Is(err, index.ErrTaskCompleted):
		return fmt.Errorf("task %s is already completed", id)
	case err != nil:
		return notInitialized(err)
	}
	p.printf("%s %s\n", p.success("✓ Completed"), t.Title)
	return nil
}
