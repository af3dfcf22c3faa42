// Copyright 2026 The Termbridge Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeResponse(t *testing.T) {
	t.Parallel()

	t.Run("registry snapshot", func(t *testing.T) {
		body := strings.NewReader(`[{"id":"c1","session":"main"}]`)
		var result []struct {
			ID      string `json:"id"`
			Session string `json:"session"`
		}
		if err := DecodeResponse(body, &result); err != nil {
			t.Fatalf("DecodeResponse: %v", err)
		}
		if len(result) != 1 || result[0].ID != "c1" || result[0].Session != "main" {
			t.Fatalf("decoded %+v", result)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if err := DecodeResponse(strings.NewReader("not json"), &struct{}{}); err == nil {
			t.Fatal("expected error for invalid JSON")
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if err := DecodeResponse(failReader{}, &struct{}{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestReadResponseIsBounded(t *testing.T) {
	t.Parallel()

	oversized := bytes.Repeat([]byte("x"), int(MaxResponseSize)+10)
	data, err := ReadResponse(bytes.NewReader(oversized))
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if int64(len(data)) != MaxResponseSize {
		t.Fatalf("read %d bytes, want %d", len(data), MaxResponseSize)
	}
}

func TestErrorBody(t *testing.T) {
	t.Parallel()

	if got := ErrorBody(strings.NewReader("invalid session name\n")); got != "invalid session name\n" {
		t.Fatalf("ErrorBody = %q", got)
	}
	if got := ErrorBody(failReader{}); got != "" {
		t.Fatalf("ErrorBody from failing reader = %q, want empty", got)
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	if err := WriteJSON(recorder, http.StatusOK, map[string]int{"connections": 2}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
	var decoded map[string]int
	if err := DecodeResponse(recorder.Body, &decoded); err != nil {
		t.Fatalf("decoding written body: %v", err)
	}
	if decoded["connections"] != 2 {
		t.Fatalf("decoded %v", decoded)
	}
}

type failReader struct{}

func (failReader) Read([]byte) (int, error) {
	return 0, errors.New("simulated read failure")
}
