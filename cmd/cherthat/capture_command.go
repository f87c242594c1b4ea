package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cherthat/internal/bridge"
	"cherthat/internal/capture"
	"cherthat/internal/config"
	"cherthat/internal/control"
	"cherthat/internal/fallback"
	"cherthat/internal/logging"
	"cherthat/internal/relay"
)

// Headless page geometry; the image comfortably clears the size threshold.
var (
	headlessViewportWidth  = 1280.0
	headlessViewportHeight = 800.0
	headlessImageRect      = control.Rect{Top: 120, Left: 160, Bottom: 520, Right: 760}
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var sourceURL string
	var noFallback bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "capture <image-url>",
		Short: "Save an image through the capture relay",
		Long: "Drives a headless capture control: hovers an image with the given URL,\n" +
			"activates the control, and reports the label it settles on. When cherthatd\n" +
			"is not running the capture is relayed in-process using the local fallback store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newCLILogger(cfg)
			if err != nil {
				return err
			}

			b := &captureBridge{
				sender:     bridge.Sender{Path: ctx.socketPath()},
				noFallback: noFallback,
				openLocal: func() (*relay.Relay, func() error, error) {
					return openInProcessRelay(cfg, logger)
				},
			}
			outcome, err := runHeadlessCapture(cmd.Context(), cfg, b, args[0], sourceURL, timeout, logger)
			if err != nil {
				return err
			}
			return reportOutcome(cmd, outcome, b.via)
		},
	}

	cmd.Flags().StringVar(&sourceURL, "source", "", "Page URL the image was found on")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "Fail instead of relaying in-process when cherthatd is unreachable")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Maximum time to wait for the relay")
	return cmd
}

// runHeadlessCapture hovers and activates a single image on an in-memory page
// and waits for the control to settle.
func runHeadlessCapture(
	ctx context.Context,
	cfg *config.Config,
	b control.Bridge,
	imageURL, sourceURL string,
	timeout time.Duration,
	logger *slog.Logger,
) (control.Outcome, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return control.Outcome{}, &capture.ValidationError{Field: "image_url", Message: "image_url is required"}
	}

	settled := make(chan control.Outcome, 1)
	opts := control.OptionsFromConfig(cfg)
	opts.Logger = logger
	opts.OnSettled = func(outcome control.Outcome) {
		select {
		case settled <- outcome:
		default:
		}
	}

	page := control.NewMemoryPage(sourceURL, headlessViewportWidth, headlessViewportHeight)
	manager := control.NewManager(page, b, opts)
	defer manager.Close()

	if manager.Suppressed() {
		return control.Outcome{}, fmt.Errorf("capture disabled: %s is the gallery page", sourceURL)
	}

	image := control.NewMemoryImage(headlessImageRect, imageURL)
	manager.ObserveInsertion(image)
	manager.PointerEnter(image)
	if manager.Control() == nil {
		return control.Outcome{}, errors.New("capture control did not appear")
	}
	manager.Activate()

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-settled:
		return outcome, nil
	case <-timer.C:
		return control.Outcome{}, fmt.Errorf("capture: no reply from relay within %s", timeout)
	case <-ctx.Done():
		return control.Outcome{}, ctx.Err()
	}
}

func reportOutcome(cmd *cobra.Command, outcome control.Outcome, via string) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	switch outcome.Kind {
	case control.OutcomeSaved:
		message := "saved"
		if data := outcome.Result.Data; data != nil {
			message = data.ID
		}
		kind := statusOK
		if outcome.Result.Local {
			kind = statusWarn
			message += " (stored locally; collection unreachable)"
		}
		fmt.Fprintln(out, outcome.Label)
		fmt.Fprintln(out, renderStatusLine("Capture", kind, message, colorize))
		if via != "" {
			fmt.Fprintln(out, renderStatusLine("Relay", statusInfo, via, colorize))
		}
		return nil
	case control.OutcomeUnavailable:
		fmt.Fprintln(out, outcome.Label)
		return fmt.Errorf("capture: relay unavailable: %w", outcome.Err)
	case control.OutcomeNoURL:
		fmt.Fprintln(out, outcome.Label)
		return errors.New("capture: image has no URL")
	default:
		fmt.Fprintln(out, outcome.Label)
		message := outcome.Result.Error
		if outcome.Err != nil {
			message = outcome.Err.Error()
		}
		return fmt.Errorf("capture failed: %s", message)
	}
}

// captureBridge sends through the relay daemon and, when the daemon cannot be
// reached, submits through an in-process relay instead.
type captureBridge struct {
	sender     control.Bridge
	noFallback bool
	openLocal  func() (*relay.Relay, func() error, error)

	via string
}

func (b *captureBridge) SaveImage(ctx context.Context, req capture.CaptureRequest) (capture.Result, error) {
	result, err := b.sender.SaveImage(ctx, req)
	if err == nil || !capture.IsKind(err, capture.KindBridgeUnavailable) || b.noFallback || b.openLocal == nil {
		b.via = "cherthatd"
		return result, err
	}

	r, closeFn, openErr := b.openLocal()
	if openErr != nil {
		return capture.Result{}, &capture.BridgeUnavailableError{Err: errors.Join(err, openErr)}
	}
	defer closeFn() //nolint:errcheck
	b.via = "in-process"
	return r.Submit(ctx, req), nil
}

func openInProcessRelay(cfg *config.Config, logger *slog.Logger) (*relay.Relay, func() error, error) {
	store, err := fallback.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open fallback store: %w", err)
	}
	remote := relay.NewRemoteClient(cfg.ImagesEndpoint(), cfg.RelayTimeout())
	return relay.New(remote, store, logger, nil), store.Close, nil
}

// newCLILogger writes to the log directory only so command output stays
// clean.
func newCLILogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "cherthat.log")},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}
