package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the project memory in .tenax/",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, cfg.DataDir)
	},
}

func runInit(ctx context.Context, p *printer, s *service.Service, dataDir string) error {
	created, err := s.Initialize(ctx)
	if err != nil {
		return err
	}
	if !created {
		p.printf("%s %s\n", p.hint("Already initialized:"), dataDir)
		return nil
	}
	p.printf("%s %s\n", p.success("✓ Initialized"), dataDir)
	return nil
}
