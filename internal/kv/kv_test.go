// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

// openStores returns one of each adapter over the same contract so every
// test runs against both backends.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	pb, err := OpenPebble(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenPebble failed: %v", err)
	}
	t.Cleanup(func() { pb.Close() })

	mem := NewMemory()
	t.Cleanup(func() { mem.Close() })

	return map[string]Store{"pebble": pb, "memory": mem}
}

func TestSetGetRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set("theme", []byte("dark")); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, err := s.Get("theme")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != "dark" {
				t.Errorf("Get = %q, want dark", got)
			}
		})
	}
}

func TestGetMissingKey(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("no_such_key")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing key err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSetOverwrites(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set("k", []byte("first")); err != nil {
				t.Fatal(err)
			}
			if err := s.Set("k", []byte("second")); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get("k")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "second" {
				t.Errorf("Get = %q, want second", got)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set("k", []byte("v")); err != nil {
				t.Fatal(err)
			}
			if err := s.Delete("k"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete err = %v, want ErrNotFound", err)
			}
			// Deleting a missing key is not an error.
			if err := s.Delete("never_existed"); err != nil {
				t.Errorf("Delete missing key err = %v, want nil", err)
			}
		})
	}
}

func TestHas(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := s.Has("k")
			if err != nil || ok {
				t.Errorf("Has missing = (%v, %v), want (false, nil)", ok, err)
			}
			if err := s.Set("k", []byte("v")); err != nil {
				t.Fatal(err)
			}
			ok, err = s.Has("k")
			if err != nil || !ok {
				t.Errorf("Has existing = (%v, %v), want (true, nil)", ok, err)
			}
		})
	}
}

func TestKeysOrderedWithPrefix(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"conversation_b", "conversation_a", "theme", "conversation_c"} {
				if err := s.Set(k, []byte("x")); err != nil {
					t.Fatal(err)
				}
			}

			got, err := s.Keys("conversation_")
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			want := []string{"conversation_a", "conversation_b", "conversation_c"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Keys = %v, want %v", got, want)
			}

			all, err := s.Keys("")
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 4 {
				t.Errorf("Keys(\"\") returned %d keys, want 4", len(all))
			}
		})
	}
}

func TestClosedStoreRejectsOps(t *testing.T) {
	mem := NewMemory()
	if err := mem.Close(); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set("k", []byte("v")); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after close err = %v, want ErrClosed", err)
	}
	if _, err := mem.Get("k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after close err = %v, want ErrClosed", err)
	}
	if err := mem.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("double Close err = %v, want ErrClosed", err)
	}
}

func TestPebblePersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "persist.db")

	pb, err := OpenPebble(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := pb.Set("api_key", []byte("sk-test")); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}

	pb2, err := OpenPebble(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer pb2.Close()

	got, err := pb2.Get("api_key")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "sk-test" {
		t.Errorf("Get = %q, want sk-test", got)
	}
}
