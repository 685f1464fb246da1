// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package state provides a secure, in-memory cache for transient secrets
// that need to be shared between different parts of the application, such
// as an API token read from a prompt before it is committed to the keyring.
package state

import "sync"

// TokenCache is a concurrency-safe, in-memory "mailbox" for temporarily
// holding the API token. It uses a byte slice instead of a string so the
// sensitive data can be explicitly zeroed out after use.
var TokenCache = &tokenMailbox{}

type tokenMailbox struct {
	value []byte
	mu    sync.RWMutex
}

// Set stores a copy of the token in the cache, overwriting any existing value.
func (t *tokenMailbox) Set(token []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if token == nil {
		t.value = nil
		return
	}
	// Store a copy so the caller's original slice isn't held by the cache.
	t.value = make([]byte, len(token))
	copy(t.value, token)
}

// Get retrieves a copy of the token from the cache. The caller is
// responsible for zeroing out the returned slice after use.
func (t *tokenMailbox) Get() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.value == nil {
		return nil
	}
	tokenCopy := make([]byte, len(t.value))
	copy(tokenCopy, t.value)
	return tokenCopy
}

// Clear securely wipes the token from the cache memory.
func (t *tokenMailbox) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.value {
		t.value[i] = 0
	}
	t.value = nil
}
