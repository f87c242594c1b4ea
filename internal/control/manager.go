package control

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cherthat/internal/capture"
	"cherthat/internal/config"
	"cherthat/internal/logging"
)

// Control labels and colours.
const (
	LabelIdle        = "cher that"
	LabelSaving      = "Saving..."
	LabelSaved       = "✓ Saved!"
	LabelError       = "✗ Error"
	LabelUnavailable = "✗ Extension unavailable"
	LabelNoURL       = "✗ No URL"

	ColorSaved = "#5a7c59"
	ColorError = "#c44"
)

// State is the manager's lifecycle state.
type State int

const (
	Idle State = iota
	Showing
	PendingHide
)

func (s State) String() string {
	switch s {
	case Showing:
		return "showing"
	case PendingHide:
		return "pending_hide"
	default:
		return "idle"
	}
}

// OutcomeKind classifies how an activation ended.
type OutcomeKind string

const (
	OutcomeSaved       OutcomeKind = "saved"
	OutcomeFailed      OutcomeKind = "failed"
	OutcomeUnavailable OutcomeKind = "unavailable"
	OutcomeNoURL       OutcomeKind = "no_url"
)

// Outcome describes the terminal state reached by an activation.
type Outcome struct {
	Kind    OutcomeKind
	Label   string
	Request capture.CaptureRequest
	Result  capture.Result
	Err     error
}

// Bridge delivers a capture request to the relay and waits for one reply.
type Bridge interface {
	SaveImage(ctx context.Context, req capture.CaptureRequest) (capture.Result, error)
}

// Options tune a Manager. Zero values fall back to the defaults.
type Options struct {
	MinWidth      float64
	MinHeight     float64
	HideGrace     time.Duration
	ResultDisplay time.Duration
	ProductName   string
	GalleryURL    string

	Scheduler Scheduler
	Now       func() time.Time
	Logger    *slog.Logger
	// OnSettled is called outside the lock once an activation reaches a
	// terminal state, before the control is removed.
	OnSettled func(Outcome)
}

// OptionsFromConfig maps the [control] section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		MinWidth:      cfg.Control.MinWidth,
		MinHeight:     cfg.Control.MinHeight,
		HideGrace:     cfg.HideGrace(),
		ResultDisplay: cfg.ResultDisplay(),
		ProductName:   cfg.Control.ProductName,
		GalleryURL:    cfg.Control.GalleryURL,
	}
}

func (o *Options) applyDefaults() {
	if o.MinWidth <= 0 {
		o.MinWidth = 50
	}
	if o.MinHeight <= 0 {
		o.MinHeight = 50
	}
	if o.HideGrace <= 0 {
		o.HideGrace = 300 * time.Millisecond
	}
	if o.ResultDisplay <= 0 {
		o.ResultDisplay = 1500 * time.Millisecond
	}
	if o.ProductName == "" {
		o.ProductName = "Cher That"
	}
	if o.Scheduler == nil {
		o.Scheduler = RealScheduler{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Manager presents at most one capture control per page.
type Manager struct {
	page   Page
	bridge Bridge
	opts   Options
	logger *slog.Logger

	suppressed bool

	mu            sync.Mutex
	closed        bool
	state         State
	target        Element
	node          ControlNode
	targetHovered bool
	hideTimer     Timer
	resultTimer   Timer
	busy          bool
	generation    uint64
	inserted      int
}

// NewManager attaches a manager to page. On the gallery's own page the
// manager is inert.
func NewManager(page Page, bridge Bridge, opts Options) *Manager {
	opts.applyDefaults()
	m := &Manager{
		page:   page,
		bridge: bridge,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "control"),
	}
	m.suppressed = isGalleryPage(page, opts.ProductName, opts.GalleryURL)
	if m.suppressed {
		m.logger.Debug("gallery page detected; capture controls disabled", logging.String("url", page.URL()))
	}
	return m
}

// Suppressed reports whether the manager is inert on this page.
func (m *Manager) Suppressed() bool {
	return m.suppressed
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Target returns the element the live control belongs to, or nil.
func (m *Manager) Target() Element {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// Control returns the live control node, or nil.
func (m *Manager) Control() ControlNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.node
}

// InsertedImages returns how many eligible images ObserveInsertion has seen.
func (m *Manager) InsertedImages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserted
}

// PointerEnter handles the pointer entering el.
func (m *Manager) PointerEnter(el Element) {
	if el == nil || m.suppressed {
		return
	}
	if el.Within(ControlClass) {
		m.ControlEnter()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.eligible(el) {
		return
	}
	if m.node != nil && m.target == el {
		m.targetHovered = true
		if m.state == PendingHide {
			m.cancelHideLocked()
			m.state = Showing
		}
		return
	}
	m.showLocked(el)
}

// PointerLeave handles the pointer leaving el for related, which may be nil.
func (m *Manager) PointerLeave(el, related Element) {
	if el == nil || m.suppressed {
		return
	}
	if el.Within(ControlClass) {
		m.ControlLeave(related)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.node == nil || m.target != el {
		return
	}
	m.targetHovered = false
	if related != nil && related.Within(ControlClass) {
		return
	}
	m.scheduleHideLocked()
}

// ControlEnter cancels a pending hide.
func (m *Manager) ControlEnter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.node == nil {
		return
	}
	m.cancelHideLocked()
	if m.state == PendingHide {
		m.state = Showing
	}
}

// ControlLeave schedules a hide unless the pointer is returning to the
// target.
func (m *Manager) ControlLeave(related Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.node == nil {
		return
	}
	if m.targetHovered || (related != nil && related == m.target) {
		return
	}
	m.scheduleHideLocked()
}

// Scroll removes the control immediately regardless of pending timers.
func (m *Manager) Scroll() {
	if m.suppressed {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

// Close tears down the control and stops reacting to further events. Call it
// on page unload.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	m.closed = true
}

// ObserveInsertion records an element added to the document. Eligible images
// are counted; hover handling needs no per-element attachment.
func (m *Manager) ObserveInsertion(el Element) {
	if el == nil || m.suppressed || el.Tag() != "img" || el.Attr("src") == "" {
		return
	}
	m.mu.Lock()
	m.inserted++
	count := m.inserted
	m.mu.Unlock()
	m.logger.Debug("image inserted", logging.String(logging.FieldImageURL, el.Attr("src")), logging.Int("inserted_total", count))
}

// Activate handles a click on the control. It never blocks on the bridge.
func (m *Manager) Activate() {
	m.mu.Lock()
	if m.closed || m.node == nil || m.busy {
		m.mu.Unlock()
		return
	}
	m.busy = true
	generation := m.generation
	node := m.node

	imageURL := ResolveImageURL(m.target)
	if imageURL == "" {
		node.SetLabel(LabelNoURL)
		outcome := Outcome{Kind: OutcomeNoURL, Label: LabelNoURL}
		m.scheduleResultTeardownLocked(generation)
		m.mu.Unlock()
		m.settle(outcome)
		return
	}

	req, err := capture.NewCaptureRequest(imageURL, m.page.URL(), m.opts.Now())
	if err != nil {
		node.SetLabel(LabelNoURL)
		outcome := Outcome{Kind: OutcomeNoURL, Label: LabelNoURL, Err: err}
		m.scheduleResultTeardownLocked(generation)
		m.mu.Unlock()
		m.settle(outcome)
		return
	}
	node.SetDisabled(true)
	node.SetLabel(LabelSaving)
	bridge := m.bridge
	m.mu.Unlock()

	go m.send(bridge, generation, req)
}

func (m *Manager) send(bridge Bridge, generation uint64, req capture.CaptureRequest) {
	var (
		result capture.Result
		err    error
	)
	if bridge == nil {
		err = &capture.BridgeUnavailableError{Err: errors.New("no bridge configured")}
	} else {
		result, err = m.callBridge(bridge, req)
	}

	outcome := Outcome{Request: req, Result: result, Err: err}
	var unavailable *capture.BridgeUnavailableError
	switch {
	case errors.As(err, &unavailable):
		outcome.Kind, outcome.Label = OutcomeUnavailable, LabelUnavailable
	case err != nil || !result.Success:
		outcome.Kind, outcome.Label = OutcomeFailed, LabelError
	default:
		outcome.Kind, outcome.Label = OutcomeSaved, LabelSaved
	}

	m.mu.Lock()
	if m.generation != generation || m.node == nil {
		m.mu.Unlock()
		m.logger.Debug("capture reply dropped; control already removed", logging.String("outcome", string(outcome.Kind)))
		m.settle(outcome)
		return
	}
	m.node.SetLabel(outcome.Label)
	if outcome.Kind == OutcomeSaved {
		m.node.SetBackground(ColorSaved)
	} else {
		m.node.SetBackground(ColorError)
	}
	m.scheduleResultTeardownLocked(generation)
	m.mu.Unlock()

	m.logOutcome(outcome)
	m.settle(outcome)
}

// callBridge converts a panicking bridge into an unavailable outcome so a
// faulty transport never crashes the page.
func (m *Manager) callBridge(bridge Bridge, req capture.CaptureRequest) (result capture.Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &capture.BridgeUnavailableError{Err: errors.New("bridge panicked")}
		}
	}()
	return bridge.SaveImage(context.Background(), req)
}

func (m *Manager) logOutcome(outcome Outcome) {
	attrs := []logging.Attr{
		logging.String(logging.FieldImageURL, outcome.Request.ImageURL),
		logging.String("outcome", string(outcome.Kind)),
	}
	switch outcome.Kind {
	case OutcomeSaved:
		if outcome.Result.Data != nil {
			attrs = append(attrs, logging.String(logging.FieldImageID, outcome.Result.Data.ID))
		}
		attrs = append(attrs, logging.Bool("local", outcome.Result.Local))
		m.logger.Info("capture saved", logging.Args(attrs...)...)
	case OutcomeUnavailable:
		logging.WarnWithContext(m.logger, "relay unavailable", "control_bridge_unavailable",
			append(attrs,
				logging.Error(outcome.Err),
				logging.String(logging.FieldErrorHint, "start cherthatd"),
				logging.String(logging.FieldImpact, "capture was not saved"))...)
	default:
		message := outcome.Result.Error
		if outcome.Err != nil {
			message = outcome.Err.Error()
		}
		logging.WarnWithContext(m.logger, "capture failed", "control_capture_failed",
			append(attrs,
				logging.String("error", message),
				logging.String(logging.FieldImpact, "capture was not saved"))...)
	}
}

func (m *Manager) settle(outcome Outcome) {
	if m.opts.OnSettled != nil {
		m.opts.OnSettled(outcome)
	}
}

// ResolveImageURL reads the image source in priority order: src,
// currentSrc, data-src, data-original.
func ResolveImageURL(el Element) string {
	if el == nil {
		return ""
	}
	for _, candidate := range []string{el.Attr("src"), el.CurrentSrc(), el.Attr("data-src"), el.Attr("data-original")} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (m *Manager) eligible(el Element) bool {
	if el.Tag() != "img" || el.Attr("src") == "" {
		return false
	}
	rect := el.BoundingRect()
	return rect.Width() > m.opts.MinWidth && rect.Height() > m.opts.MinHeight
}

func (m *Manager) showLocked(el Element) {
	m.teardownLocked()

	vw, vh := m.page.Viewport()
	top, left := Position(el.BoundingRect(), vw, vh)
	node := m.page.CreateControl(ControlClass)
	node.SetLabel(LabelIdle)
	node.MoveTo(top, left)

	m.node = node
	m.target = el
	m.targetHovered = true
	m.state = Showing
}

func (m *Manager) scheduleHideLocked() {
	m.cancelHideLocked()
	generation := m.generation
	m.state = PendingHide
	m.hideTimer = m.opts.Scheduler.AfterFunc(m.opts.HideGrace, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.generation != generation || m.state != PendingHide {
			return
		}
		m.teardownLocked()
	})
}

func (m *Manager) cancelHideLocked() {
	if m.hideTimer != nil {
		m.hideTimer.Stop()
		m.hideTimer = nil
	}
}

func (m *Manager) scheduleResultTeardownLocked(generation uint64) {
	if m.resultTimer != nil {
		m.resultTimer.Stop()
	}
	m.resultTimer = m.opts.Scheduler.AfterFunc(m.opts.ResultDisplay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.generation != generation {
			return
		}
		m.teardownLocked()
	})
}

// teardownLocked removes the live control and any leftover control nodes,
// cancels timers, and returns to Idle. Each call starts a new generation so
// stale timers and replies are ignored.
func (m *Manager) teardownLocked() {
	if m.node != nil {
		m.node.Remove()
		m.node = nil
	}
	m.cancelHideLocked()
	if m.resultTimer != nil {
		m.resultTimer.Stop()
		m.resultTimer = nil
	}
	if m.page != nil {
		for _, orphan := range m.page.QueryControls(ControlClass) {
			orphan.Remove()
		}
	}
	m.target = nil
	m.targetHovered = false
	m.busy = false
	m.state = Idle
	m.generation++
}
