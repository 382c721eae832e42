package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

const (
	testDeviceID  = "0123456789abcdef0123456789abcdef0123456789abcdef"
	testSessionID = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
)

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	tests := []struct {
		key    string
		value  string
		redact bool
	}{
		{"salt", "securestore:v3:encryption:...", true},
		{"signature", "YWJj", true},
		{"encrypted", "YWJj", true},
		{"iv", "YWJj", true},
		{"device_id", "abc", true},
		{"session_id", "abc", true},
		{"secret", "prefs", true},
		{"key", "prefs", true},
		{"hmac_key", "x", true},
		{"salt", "", false},
		{"name", "prefs", false},
		{"derivation", "pbkdf2", false},
		{"storage_id", "01j9z", false},
		{"kind", "v3", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := redactSensitive(slog.String(tt.key, tt.value))
			redacted := got.Value.String() == redactedValue
			if redacted != tt.redact {
				t.Errorf("redactSensitive(%s=%q) = %q, redact=%v want %v",
					tt.key, tt.value, got.Value.String(), redacted, tt.redact)
			}
		})
	}
}

func TestRedactSensitive_IdentityValues(t *testing.T) {
	got := redactSensitive(slog.String("owner", testDeviceID))
	if got.Value.String() != "012...def" {
		t.Errorf("device-shaped value = %q, want masked", got.Value.String())
	}

	got = redactSensitive(slog.String("owner", testSessionID))
	if got.Value.String() != "012...def" {
		t.Errorf("session-shaped value = %q, want masked", got.Value.String())
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	attrs := []slog.Attr{
		slog.String("name", "prefs"),
		slog.Int("removed", 3),
		slog.String("mode", "aes-gcm"),
		slog.String("owner", strings.ToUpper(testDeviceID)),
	}
	for _, a := range attrs {
		got := redactSensitive(a)
		if !got.Equal(a) {
			t.Errorf("redactSensitive(%v) = %v, want unchanged", a, got)
		}
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := slog.Group("identity", slog.String("device_id", testDeviceID), slog.String("platform", "linux/amd64"))
	got := redactSensitive(a)

	attrs := got.Value.Group()
	if attrs[0].Value.String() != redactedValue {
		t.Errorf("nested device_id = %q, want redacted", attrs[0].Value.String())
	}
	if attrs[1].Value.String() != "linux/amd64" {
		t.Errorf("nested platform = %q, want unchanged", attrs[1].Value.String())
	}
}

func TestRedactThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Debug("derived", "salt", "securestore:v3:encryption", "purpose", "encryption")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if entry["salt"] != redactedValue {
		t.Errorf("salt = %v, want redacted", entry["salt"])
	}
	if entry["purpose"] != "encryption" {
		t.Errorf("purpose = %v, want encryption", entry["purpose"])
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{testDeviceID, "012...def"},
		{testSessionID, "012...def"},
		{"prefs", "prefs"},
		{"", ""},
		{"0123456789abcdef", "0123456789abcdef"},
	}

	for _, tt := range tests {
		if got := RedactString(tt.in); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"SALT", true},
		{"nonce-iv", true},
		{"api.token", true},
		{"user_device_id", true},
		{"keyring", false},
		{"divisor", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestIsSensitiveValue(t *testing.T) {
	if !IsSensitiveValue(testDeviceID) {
		t.Error("48 hex chars should be sensitive")
	}
	if IsSensitiveValue(testDeviceID[:47] + "g") {
		t.Error("non-hex value should not be sensitive")
	}
	if IsSensitiveValue(testDeviceID[:40]) {
		t.Error("other lengths should not be sensitive")
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abcdef", "***"},
		{"abcdefg", "abc...efg"},
		{"", "***"},
	}

	for _, tt := range tests {
		if got := maskValue(tt.in); got != tt.want {
			t.Errorf("maskValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
