package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cherthat/internal/bridge"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show relay daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *bridge.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("relay status: %w", err)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Relay", statusOK, "running (pid "+strconv.Itoa(status.PID)+")", colorize))
				fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, status.Socket, colorize))
				if !status.StartedAt.IsZero() {
					fmt.Fprintln(out, renderStatusLine("Started", statusInfo, status.StartedAt.Local().Format("2006-01-02 15:04:05"), colorize))
				}
				switch {
				case status.LocalError != "":
					fmt.Fprintln(out, renderStatusLine("Fallback", statusError, status.LocalError, colorize))
				case status.LocalCount > 0:
					fmt.Fprintln(out, renderStatusLine("Fallback", statusWarn, fmt.Sprintf("%d image(s) held locally", status.LocalCount), colorize))
				default:
					fmt.Fprintln(out, renderStatusLine("Fallback", statusOK, "empty", colorize))
				}
				return nil
			})
		},
	}
}
