// Package bridge connects capture controls and the CLI to the relay daemon.
//
// The daemon exposes a JSON-RPC service named "Relay" over a Unix domain
// socket. Clients call SaveImage, GetLocalImages, ClearLocalImages, or the
// generic Dispatch method that accepts relay messages by type. Any failure to
// reach the daemon is reported as a capture.BridgeUnavailableError so callers
// can show a distinct state instead of a generic error.
package bridge
