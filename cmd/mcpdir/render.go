package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcpdir/web/internal/platform/requestctx"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <path>",
		Short: "Build the document for one path and print it",
		Example: `  mcpdir render /servers/github
  mcpdir render "/servers?sort=recent&page=2"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			// The document goes to stdout.
			logger, err := newLogger(cfg, "stderr")
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			ctx := requestctx.WithLogger(cmd.Context(), logger)
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.pipeline.BuildDocument(ctx, args[0])
			if err != nil {
				logger.Error("render failed", zap.String("path", args[0]), zap.Error(err))
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), doc.Body)
			return err
		},
	}
}
