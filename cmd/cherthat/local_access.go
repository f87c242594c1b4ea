package main

import (
	"context"
	"fmt"

	"cherthat/internal/bridge"
	"cherthat/internal/capture"
	"cherthat/internal/fallback"
)

// localAccess reads and clears the fallback store, either through the relay
// daemon or by opening the store file directly.
type localAccess interface {
	List(ctx context.Context) ([]capture.CapturedImage, error)
	Clear(ctx context.Context) error
	Via() string
}

type bridgeAccess struct {
	client *bridge.Client
}

func (a bridgeAccess) List(ctx context.Context) ([]capture.CapturedImage, error) {
	return a.client.GetLocalImages(ctx)
}

func (a bridgeAccess) Clear(ctx context.Context) error {
	return a.client.ClearLocalImages(ctx)
}

func (bridgeAccess) Via() string { return "relay" }

type storeAccess struct {
	store *fallback.Store
}

func (a storeAccess) List(ctx context.Context) ([]capture.CapturedImage, error) {
	return a.store.ListAll(ctx)
}

func (a storeAccess) Clear(ctx context.Context) error {
	return a.store.Clear(ctx)
}

func (storeAccess) Via() string { return "store" }

type localSession struct {
	access localAccess
	close  func() error
}

func (s localSession) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// openLocalAccess prefers the running daemon and falls back to the store file.
func (c *commandContext) openLocalAccess() (localSession, error) {
	if client, err := bridge.Dial(c.socketPath()); err == nil {
		return localSession{access: bridgeAccess{client: client}, close: client.Close}, nil
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return localSession{}, err
	}
	store, err := fallback.Open(cfg)
	if err != nil {
		return localSession{}, fmt.Errorf("open fallback store: %w", err)
	}
	return localSession{access: storeAccess{store: store}, close: store.Close}, nil
}
