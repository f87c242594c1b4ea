// Package capture defines the data shared by every stage of the capture
// pipeline: the request produced when a control is activated, the persisted
// image record, the discriminated result returned by the relay, the image
// identifier scheme, and the error taxonomy used to classify failures.
package capture
