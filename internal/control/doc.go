// Package control owns the in-page capture control lifecycle.
//
// A Manager is created per page. It reacts to pointer, scroll, and unload
// events by showing at most one control next to the hovered image, hiding it
// after a short grace period, and tearing it down unconditionally on scroll.
// Activating the control resolves the image URL, sends a capture request over
// a Bridge, and shows a terminal state before removing itself.
//
// All event handlers and timer callbacks are serialised by the manager's
// mutex. Timers come from a Scheduler so callers can drive time explicitly.
// The page itself is abstracted by the Page, Element, and ControlNode
// interfaces; MemoryPage is a headless implementation.
package control
