/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

// Keychain coordinates for the Gemini API key.
const (
	KeyringService = "CarouselStudio"
	APIKeyName     = "gemini_api_key"
)

// KeyStore persists the single API key string entered by the user.
// Get returns "" and a nil error when nothing is stored.
type KeyStore interface {
	Get() (string, error)
	Set(value string) error
}

// KeyringStore keeps the key in the OS keychain via github.com/zalando/go-keyring.
type KeyringStore struct {
	Service string
	Key     string
}

// NewKeyringStore returns a store bound to the application keychain entry.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: KeyringService, Key: APIKeyName}
}

func (k *KeyringStore) Get() (string, error) {
	v, err := keyring.Get(k.Service, k.Key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Set stores value; an empty value deletes the entry.
func (k *KeyringStore) Set(value string) error {
	if value == "" {
		err := keyring.Delete(k.Service, k.Key)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return keyring.Set(k.Service, k.Key, value)
}

// MemoryKeyStore is a process-local KeyStore for headless runs and tests.
type MemoryKeyStore struct {
	mu    sync.Mutex
	value string
	// Writes counts Set calls.
	Writes int
}

func (m *MemoryKeyStore) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *MemoryKeyStore) Set(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	m.Writes++
	return nil
}
