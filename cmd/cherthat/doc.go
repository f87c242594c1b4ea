// Package main hosts the cherthat CLI entrypoint and command graph.
//
// The Cobra command tree runs the collection service, drives a headless
// capture control against the relay daemon, inspects and clears the local
// fallback store, and browses the collection through the gallery client.
// Configuration resolution and socket discovery live in commandContext so
// subcommands only deal with presentation.
package main
