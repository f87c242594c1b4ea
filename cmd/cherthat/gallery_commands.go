package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cherthat/internal/capture"
	"cherthat/internal/gallery"
)

func newGalleryCommand(ctx *commandContext) *cobra.Command {
	var endpoint string

	galleryCmd := &cobra.Command{
		Use:   "gallery",
		Short: "Browse and prune the collection",
	}
	galleryCmd.PersistentFlags().StringVar(&endpoint, "url", "", "Collection images endpoint (defaults to relay.backend_url + /api/images)")

	clientFor := func() (*gallery.Client, error) {
		if value := strings.TrimSpace(endpoint); value != "" {
			return gallery.NewClient(value, nil), nil
		}
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return nil, err
		}
		return gallery.NewClient(cfg.ImagesEndpoint(), nil), nil
	}

	galleryCmd.AddCommand(newGalleryListCommand(clientFor))
	galleryCmd.AddCommand(newGalleryDeleteCommand(clientFor))
	galleryCmd.AddCommand(newGalleryWatchCommand(ctx, clientFor))
	return galleryCmd
}

func newGalleryListCommand(clientFor func() (*gallery.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the collection, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFor()
			if err != nil {
				return err
			}
			images, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			printGallery(cmd, images)
			return nil
		},
	}
}

func newGalleryDeleteCommand(clientFor func() (*gallery.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one image from the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFor()
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			if err := client.Delete(cmd.Context(), id); err != nil {
				var notFound *capture.NotFoundError
				if errors.As(err, &notFound) {
					return fmt.Errorf("image %s not found", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
}

func newGalleryWatchCommand(ctx *commandContext, clientFor func() (*gallery.Client, error)) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the collection and print it whenever it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFor()
			if err != nil {
				return err
			}
			if interval <= 0 {
				if cfg, cfgErr := ctx.ensureConfig(); cfgErr == nil {
					interval = cfg.PollInterval()
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var last string
			err = client.Poll(runCtx, interval, func(images []capture.CapturedImage, err error) {
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("Gallery", statusError, err.Error(), shouldColorize(out)))
					last = ""
					return
				}
				fingerprint := galleryFingerprint(images)
				if fingerprint == last {
					return
				}
				last = fingerprint
				printGallery(cmd, images)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval (defaults to gallery.poll_interval_ms)")
	return cmd
}

func printGallery(cmd *cobra.Command, images []capture.CapturedImage) {
	out := cmd.OutOrStdout()
	if len(images) == 0 {
		fmt.Fprintln(out, "No images saved yet")
		return
	}
	fmt.Fprintln(out, renderImages(images))
	fmt.Fprintf(out, "%d image(s)\n", len(images))
}

func galleryFingerprint(images []capture.CapturedImage) string {
	ids := make([]string, len(images))
	for i, image := range images {
		ids[i] = image.ID
	}
	return strings.Join(ids, ",")
}
