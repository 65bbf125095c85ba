// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"soundlab/internal/report"
	"soundlab/internal/tuning"

	"github.com/spf13/cobra"
)

func (a *app) scalesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scales",
		Short: "List scale sets and detector templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), report.Scales(tuning.Scales, tuning.Templates()))
			return err
		},
	}
}
