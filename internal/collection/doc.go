// Package collection implements the remote image collection: a volatile
// in-memory store and the gin HTTP API that exposes create, list, and delete
// to capture relays and gallery clients.
//
// Every response, including errors and preflight requests, carries permissive
// CORS headers so callers on other origins can reach the API.
package collection
