package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bslocal/internal/tunnel"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the bslocal version reported to the tunnel binary",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "bslocal %s\n", tunnel.PackageVersion())
			return nil
		},
	}
}
