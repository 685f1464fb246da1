// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"

	"github.com/iamvanilka/mnemy/internal/state"
	"github.com/zalando/go-keyring"
)

// keyring coordinates for the API token. The token never touches the
// config file.
const (
	keyringService = "Mnemy"
	keyringItem    = "x_api_token"
)

// TokenStore abstracts where the API token lives so tests can substitute
// an in-memory implementation.
type TokenStore interface {
	Save(token string) error
	Get() (string, error)
	Clear() error
}

// KeyringTokenStore stores the token in the OS keyring (Secret Service,
// Keychain or Windows Credential Manager depending on platform).
type KeyringTokenStore struct{}

// Save writes the token to the keyring and refreshes the in-memory cache.
func (KeyringTokenStore) Save(token string) error {
	if err := keyring.Set(keyringService, keyringItem, token); err != nil {
		return err
	}
	state.TokenCache.Set([]byte(token))
	return nil
}

// Get returns the stored token, preferring the in-memory cache so a token
// entered at a prompt is usable before (or without) a keyring write.
// An absent token is reported as ErrNoToken.
func (KeyringTokenStore) Get() (string, error) {
	if cached := state.TokenCache.Get(); cached != nil {
		return string(cached), nil
	}
	token, err := keyring.Get(keyringService, keyringItem)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", err
	}
	state.TokenCache.Set([]byte(token))
	return token, nil
}

// Clear removes the token from both the keyring and the in-memory cache.
// Clearing an absent token is not an error.
func (KeyringTokenStore) Clear() error {
	state.TokenCache.Clear()
	err := keyring.Delete(keyringService, keyringItem)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// MemoryTokenStore is a TokenStore for tests and headless environments
// without a keyring daemon.
type MemoryTokenStore struct {
	Token string
}

func (m *MemoryTokenStore) Save(token string) error {
	m.Token = token
	return nil
}

func (m *MemoryTokenStore) Get() (string, error) {
	if m.Token == "" {
		return "", ErrNoToken
	}
	return m.Token, nil
}

func (m *MemoryTokenStore) Clear() error {
	m.Token = ""
	return nil
}
