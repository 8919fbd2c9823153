package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair drift between the index and the vector store",
	Long: `Embed index items that have no vector and delete vectors whose item is
gone. Run it after an interrupted write or a failed forget.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc)
	},
}

func runReconcile(ctx context.Context, p *printer, s *service.Service) error {
	res, err := s.Reconcile(ctx)
	if err != nil {
		return notInitialized(err)
	}
	if res.Embedded == 0 && res.Removed == 0 {
		p.printf("%s\n", p.success("✓ Index and vectors are in sync"))
		return nil
	}
	p.printf("%s\n", p.success("✓ Reconciled"))
	p.printf("  Embedded: %d\n", res.Embedded)
	p.printf("  Removed:  %d\n", res.Removed)
	return nil
}
