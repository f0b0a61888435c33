package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/kokoro-openai-server/internal/server"
)

func newHealthCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a running server's health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := addr
			if target == "" {
				cfg, err := requireConfig()
				if err != nil {
					return err
				}
				target = cfg.Server.ListenAddr
			}
			if strings.HasPrefix(target, ":") {
				target = "localhost" + target
			}

			if err := server.ProbeHTTP(target); err != nil {
				return fmt.Errorf("health probe %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to probe (default: configured listen address)")

	return cmd
}
