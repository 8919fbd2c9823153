package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/index"
	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <id>...",
	Short: "Remove items from memory",
	Long: `Remove items from the index and delete their vectors.

Nothing is removed unless every id exists. A decision that another decision
supersedes cannot be forgotten while the newer one remains.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForget(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, args)
	},
}

func runForget(ctx context.Context, p *printer, s *service.Service, ids []string) error {
	items, err := s.Forget(ctx, ids...)
	switch {
	case errors.Is(err, index.ErrNotFound):
		return fmt.Errorf("%w; use 'tenax search' or 'tenax list' to find ids", err)
	case errors.Is(err, index.ErrReferenced):
		return fmt.Errorf("%w; forget the superseding decision first", err)
	case err != nil && len(items) == 0:
		return notInitialized(err)
	}

	for _, it := range items {
		p.printf("%s %s %s\n", p.success("✓ Forgot"), p.status("["+string(it.Kind())+"]"), models.Headline(it))
	}
	if err != nil {
		// Index updated but vector rows remain; reconcile clears them.
		p.printf("%s\n", p.hint("vectors not deleted; run 'tenax reconcile'"))
		return err
	}
	return nil
}
