package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLocalCommand(ctx *commandContext) *cobra.Command {
	localCmd := &cobra.Command{
		Use:   "local",
		Short: "Inspect captures held in the local fallback store",
	}
	localCmd.AddCommand(newLocalListCommand(ctx))
	localCmd.AddCommand(newLocalClearCommand(ctx))
	return localCmd
}

func newLocalListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List captures saved locally while the collection was unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openLocalAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			images, err := session.access.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list local images: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(images) == 0 {
				fmt.Fprintln(out, "No local captures")
				return nil
			}
			fmt.Fprintln(out, renderImages(images))
			return nil
		},
	}
}

func newLocalClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every capture from the local fallback store",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openLocalAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.access.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear local images: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Local captures cleared (via %s)\n", session.access.Via())
			return nil
		},
	}
}
