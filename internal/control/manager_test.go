package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cherthat/internal/capture"
)

type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance fires due timers in order, running each callback without holding
// the scheduler lock.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		var next *fakeTimer
		for _, t := range s.timers {
			if t.fired || t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.fired = true
		s.now = next.at
		s.mu.Unlock()
		next.f()
	}
}

type fakeBridge struct {
	mu       sync.Mutex
	requests []capture.CaptureRequest
	result   capture.Result
	err      error
	release  chan struct{}
}

func (b *fakeBridge) SaveImage(_ context.Context, req capture.CaptureRequest) (capture.Result, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	release := b.release
	b.mu.Unlock()
	if release != nil {
		<-release
	}
	return b.result, b.err
}

func (b *fakeBridge) calls() []capture.CaptureRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capture.CaptureRequest(nil), b.requests...)
}

type plainElement struct{ tag string }

func (e *plainElement) Tag() string { return e.tag }
func (e *plainElement) BoundingRect() Rect { return Rect{} }
func (e *plainElement) Attr(string) string { return "" }
func (e *plainElement) CurrentSrc() string { return "" }
func (e *plainElement) Within(string) bool { return false }

type harness struct {
	page    *MemoryPage
	sched   *fakeScheduler
	bridge  *fakeBridge
	manager *Manager
	settled chan Outcome
}

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newHarness(t *testing.T, pageURL string) *harness {
	t.Helper()
	h := &harness{
		page:    NewMemoryPage(pageURL, 1280, 800),
		sched:   &fakeScheduler{},
		bridge:  &fakeBridge{result: capture.Saved(capture.CapturedImage{ID: "img_1_aaaaaaaaa", ImageURL: "u"}, false)},
		settled: make(chan Outcome, 4),
	}
	h.manager = NewManager(h.page, h.bridge, Options{
		GalleryURL: "http://localhost:3000/",
		Scheduler:  h.sched,
		Now:        func() time.Time { return fixedNow },
		OnSettled:  func(o Outcome) { h.settled <- o },
	})
	t.Cleanup(h.manager.Close)
	return h
}

func (h *harness) waitSettled(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-h.settled:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("activation did not settle")
		return Outcome{}
	}
}

func (h *harness) onlyControl(t *testing.T) *MemoryControl {
	t.Helper()
	controls := h.page.Controls()
	require.Len(t, controls, 1)
	return controls[0]
}

func image(w, h float64) *MemoryImage {
	return NewMemoryImage(Rect{Top: 100, Left: 100, Bottom: 100 + h, Right: 100 + w}, "https://cdn.example.com/photo.jpg")
}

func TestSmallImagesNeverCreateControl(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")

	h.manager.PointerEnter(image(40, 200))
	h.manager.PointerEnter(image(200, 40))
	h.manager.PointerEnter(image(50, 50))

	assert.Empty(t, h.page.Controls())
	assert.Equal(t, Idle, h.manager.State())
}

func TestQualifyingImageCreatesExactlyOneControl(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := image(60, 60)

	h.manager.PointerEnter(img)
	h.manager.PointerEnter(img)

	node := h.onlyControl(t)
	assert.Equal(t, LabelIdle, node.Label())
	assert.Equal(t, Showing, h.manager.State())
	assert.Equal(t, Element(img), h.manager.Target())
}

func TestImageWithoutSrcIsIgnored(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := NewMemoryImage(Rect{Bottom: 200, Right: 200}, "")
	img.SetAttr("data-src", "https://cdn.example.com/lazy.jpg")

	h.manager.PointerEnter(img)
	assert.Empty(t, h.page.Controls())
}

func TestHoverMoveToControlAndSave(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := image(300, 200)

	h.manager.PointerEnter(img)
	node := h.onlyControl(t)

	h.manager.PointerLeave(img, node)
	h.manager.PointerEnter(node)
	assert.Equal(t, Showing, h.manager.State())
	h.sched.Advance(time.Second)
	h.onlyControl(t)

	h.manager.Activate()
	outcome := h.waitSettled(t)
	assert.Equal(t, OutcomeSaved, outcome.Kind)
	assert.Equal(t, LabelSaved, node.Label())
	assert.Equal(t, ColorSaved, node.Background())
	assert.True(t, node.Disabled())

	h.sched.Advance(1499 * time.Millisecond)
	h.onlyControl(t)
	h.sched.Advance(time.Millisecond)
	assert.Empty(t, h.page.Controls())
	assert.Equal(t, Idle, h.manager.State())
	assert.Nil(t, h.manager.Target())
}

func TestActivateSendsCaptureRequest(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := image(300, 200)
	img.SetCurrentSrc("https://cdn.example.com/photo@2x.jpg")

	h.manager.PointerEnter(img)
	h.manager.Activate()
	h.waitSettled(t)

	calls := h.bridge.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, capture.CaptureRequest{
		ImageURL:  "https://cdn.example.com/photo.jpg",
		SourceURL: "https://blog.example.com/post",
		CreatedAt: "2024-06-01T09:30:00.000Z",
	}, calls[0])
}

func TestActivateTwiceSendsOnce(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	h.bridge.release = make(chan struct{})

	h.manager.PointerEnter(image(300, 200))
	h.manager.Activate()
	h.manager.Activate()
	close(h.bridge.release)
	h.waitSettled(t)

	assert.Len(t, h.bridge.calls(), 1)
}

func TestLeaveStartsGraceAndControlEnterCancels(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := image(300, 200)

	h.manager.PointerEnter(img)
	node := h.onlyControl(t)
	h.manager.PointerLeave(img, &plainElement{tag: "div"})
	assert.Equal(t, PendingHide, h.manager.State())

	h.sched.Advance(200 * time.Millisecond)
	h.manager.PointerEnter(node)
	assert.Equal(t, Showing, h.manager.State())
	h.sched.Advance(time.Second)
	h.onlyControl(t)

	h.manager.PointerLeave(node, &plainElement{tag: "div"})
	assert.Equal(t, PendingHide, h.manager.State())
	h.sched.Advance(299 * time.Millisecond)
	h.onlyControl(t)
	h.sched.Advance(time.Millisecond)
	assert.Empty(t, h.page.Controls())
	assert.Equal(t, Idle, h.manager.State())
}

func TestLeavingControlBackToImageKeepsControl(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := image(300, 200)

	h.manager.PointerEnter(img)
	node := h.onlyControl(t)
	h.manager.PointerLeave(img, node)
	h.manager.PointerLeave(node, img)
	h.manager.PointerEnter(img)

	h.sched.Advance(time.Second)
	h.onlyControl(t)
	assert.Equal(t, Showing, h.manager.State())
}

func TestReenteringTargetCancelsPendingHide(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := image(300, 200)

	h.manager.PointerEnter(img)
	h.manager.PointerLeave(img, nil)
	h.sched.Advance(100 * time.Millisecond)
	h.manager.PointerEnter(img)

	h.sched.Advance(time.Second)
	h.onlyControl(t)
}

func TestScrollRemovesControlImmediately(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := image(300, 200)

	h.manager.PointerEnter(img)
	h.manager.PointerLeave(img, nil)
	require.Equal(t, PendingHide, h.manager.State())

	h.manager.Scroll()
	assert.Empty(t, h.page.Controls())
	assert.Equal(t, Idle, h.manager.State())

	h.sched.Advance(time.Second)
	assert.Equal(t, Idle, h.manager.State())
}

func TestNewControlReplacesPreviousAndOrphans(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	h.page.InjectControl()
	h.page.InjectControl()

	first := image(300, 200)
	h.manager.PointerEnter(first)
	h.onlyControl(t)

	second := NewMemoryImage(Rect{Top: 400, Left: 400, Bottom: 700, Right: 800}, "https://cdn.example.com/b.jpg")
	h.manager.PointerEnter(second)
	node := h.onlyControl(t)
	assert.Equal(t, Element(second), h.manager.Target())

	top, left := node.Position()
	assert.Equal(t, 660.0, top)
	assert.Equal(t, 680.0, left)
}

func TestActivateWithoutURLShowsNoURL(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	img := image(300, 200)

	h.manager.PointerEnter(img)
	img.SetAttr("src", "")
	h.manager.Activate()

	outcome := h.waitSettled(t)
	assert.Equal(t, OutcomeNoURL, outcome.Kind)
	assert.Equal(t, LabelNoURL, h.onlyControl(t).Label())
	assert.Empty(t, h.bridge.calls())

	h.sched.Advance(1500 * time.Millisecond)
	assert.Empty(t, h.page.Controls())
}

func TestBridgeUnavailableShowsDistinctState(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	h.bridge.err = &capture.BridgeUnavailableError{Err: errors.New("connection refused")}

	h.manager.PointerEnter(image(300, 200))
	h.manager.Activate()

	outcome := h.waitSettled(t)
	assert.Equal(t, OutcomeUnavailable, outcome.Kind)
	node := h.onlyControl(t)
	assert.Equal(t, LabelUnavailable, node.Label())
	assert.Equal(t, ColorError, node.Background())

	h.sched.Advance(1500 * time.Millisecond)
	assert.Empty(t, h.page.Controls())
}

func TestNilBridgeIsUnavailable(t *testing.T) {
	page := NewMemoryPage("https://blog.example.com/post", 1280, 800)
	settled := make(chan Outcome, 1)
	m := NewManager(page, nil, Options{Scheduler: &fakeScheduler{}, OnSettled: func(o Outcome) { settled <- o }})
	t.Cleanup(m.Close)

	m.PointerEnter(image(300, 200))
	m.Activate()
	select {
	case o := <-settled:
		assert.Equal(t, OutcomeUnavailable, o.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("activation did not settle")
	}
}

func TestFailedResultShowsError(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	h.bridge.result = capture.Failed(errors.New("disk full"))

	h.manager.PointerEnter(image(300, 200))
	h.manager.Activate()

	outcome := h.waitSettled(t)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	node := h.onlyControl(t)
	assert.Equal(t, LabelError, node.Label())
	assert.Equal(t, ColorError, node.Background())
}

func TestLocalSaveStillShowsSaved(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	h.bridge.result = capture.Saved(capture.CapturedImage{ID: "img_1_bbbbbbbbb", ImageURL: "u"}, true)

	h.manager.PointerEnter(image(300, 200))
	h.manager.Activate()

	assert.Equal(t, OutcomeSaved, h.waitSettled(t).Kind)
	assert.Equal(t, LabelSaved, h.onlyControl(t).Label())
}

func TestReplyAfterScrollIsDropped(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	h.bridge.release = make(chan struct{})

	h.manager.PointerEnter(image(300, 200))
	h.manager.Activate()
	assert.Equal(t, LabelSaving, h.onlyControl(t).Label())

	h.manager.Scroll()
	close(h.bridge.release)
	h.waitSettled(t)

	assert.Empty(t, h.page.Controls())
	assert.Equal(t, Idle, h.manager.State())
}

func TestGalleryPageNeverShowsControl(t *testing.T) {
	h := newHarness(t, "http://localhost:3000/")
	require.True(t, h.manager.Suppressed())

	h.manager.PointerEnter(image(300, 200))
	assert.Empty(t, h.page.Controls())

	landmark := NewMemoryPage("https://elsewhere.example.com/", 1280, 800)
	landmark.AddElement("main", "")
	landmark.AddElement("h1", "Cher That")
	m := NewManager(landmark, h.bridge, Options{Scheduler: h.sched})
	m.PointerEnter(image(300, 200))
	assert.Empty(t, landmark.Controls())
}

func TestCloseTearsDownAndIgnoresEvents(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")
	h.manager.PointerEnter(image(300, 200))
	h.manager.Close()

	assert.Empty(t, h.page.Controls())
	h.manager.PointerEnter(image(300, 200))
	assert.Empty(t, h.page.Controls())
}

func TestObserveInsertionCountsEligibleImages(t *testing.T) {
	h := newHarness(t, "https://blog.example.com/post")

	h.manager.ObserveInsertion(image(300, 200))
	h.manager.ObserveInsertion(NewMemoryImage(Rect{}, ""))
	h.manager.ObserveInsertion(&plainElement{tag: "div"})

	assert.Equal(t, 1, h.manager.InsertedImages())
}

func TestResolveImageURLPriority(t *testing.T) {
	img := NewMemoryImage(Rect{}, "")
	img.SetAttr("data-original", "orig")
	assert.Equal(t, "orig", ResolveImageURL(img))

	img.SetAttr("data-src", "lazy")
	assert.Equal(t, "lazy", ResolveImageURL(img))

	img.SetCurrentSrc("current")
	assert.Equal(t, "current", ResolveImageURL(img))

	img.SetAttr("src", "live")
	assert.Equal(t, "live", ResolveImageURL(img))

	assert.Equal(t, "", ResolveImageURL(nil))
}
