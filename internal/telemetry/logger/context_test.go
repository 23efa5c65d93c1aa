package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func newJSONLogger(t *testing.T, buf *bytes.Buffer) Logger {
	t.Helper()
	l, err := New(Config{Level: "info", Format: "json", Output: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func TestWithLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), newJSONLogger(t, &buf))

	FromContext(ctx).Info("test message")
	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to Default")
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if AddressFromContext(ctx) != "" || ProfileFromContext(ctx) != "" {
		t.Error("empty context should carry no values")
	}

	ctx = WithAddress(ctx, "cache:6379")
	ctx = WithProfile(ctx, "staging")
	if got := AddressFromContext(ctx); got != "cache:6379" {
		t.Errorf("AddressFromContext() = %q", got)
	}
	if got := ProfileFromContext(ctx); got != "staging" {
		t.Errorf("ProfileFromContext() = %q", got)
	}
}

func TestL(t *testing.T) {
	tests := []struct {
		name        string
		address     string
		profile     string
		wantAddress bool
		wantProfile bool
	}{
		{"no values", "", "", false, false},
		{"address", "cache:6379", "", true, false},
		{"both", "cache:6379", "staging", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ctx := WithLogger(context.Background(), newJSONLogger(t, &buf))
			if tt.address != "" {
				ctx = WithAddress(ctx, tt.address)
			}
			if tt.profile != "" {
				ctx = WithProfile(ctx, tt.profile)
			}

			L(ctx).Info("enriched")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}
			if _, ok := entry["address"]; ok != tt.wantAddress {
				t.Errorf("address present = %v, want %v", ok, tt.wantAddress)
			}
			if _, ok := entry["profile"]; ok != tt.wantProfile {
				t.Errorf("profile present = %v, want %v", ok, tt.wantProfile)
			}
		})
	}
}
