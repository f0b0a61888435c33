package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/kokoro-openai-server/internal/tts"
)

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List available voices and aliases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, v := range tts.NewCatalog().ListWithAliases() {
				fmt.Fprintln(cmd.OutOrStdout(), v.ID)
			}
			return nil
		},
	}
}
