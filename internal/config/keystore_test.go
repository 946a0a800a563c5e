/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	ks := NewKeyringStore()

	v, err := ks.Get()
	if err != nil || v != "" {
		t.Fatalf("empty keychain: got %q, %v", v, err)
	}
	if err := ks.Set("sk-test"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := ks.Get(); v != "sk-test" {
		t.Fatalf("Get = %q", v)
	}
	if err := ks.Set(""); err != nil {
		t.Fatalf("clearing: %v", err)
	}
	if v, _ := ks.Get(); v != "" {
		t.Fatalf("cleared key still present: %q", v)
	}
	if err := ks.Set(""); err != nil {
		t.Fatalf("clearing twice should be a no-op: %v", err)
	}
}

func TestMemoryKeyStore(t *testing.T) {
	var m MemoryKeyStore
	_ = m.Set("a")
	_ = m.Set("b")
	if v, _ := m.Get(); v != "b" || m.Writes != 2 {
		t.Fatalf("got %q after %d writes", v, m.Writes)
	}
}
