// Package relay performs capture submissions on behalf of capture controls.
//
// A submission first attempts a remote write to the collection service. Any
// remote failure (transport error, non-2xx status, or an unusable body) is
// escalated exactly once to the local fallback store. Nothing is retried, and
// the caller always receives a capture.Result rather than an error.
//
// The relay also answers the message protocol used across the bridge:
// SAVE_IMAGE, GET_LOCAL_IMAGES, and CLEAR_LOCAL_IMAGES.
package relay
