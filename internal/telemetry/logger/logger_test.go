package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// decodeLines parses JSON log output, one record per line.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		out = append(out, rec)
	}
	return out
}

func newBuffered(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { SetLevel("info") })
	return l, &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"text", Config{Level: "debug", Format: FormatText}, false},
		{"console", Config{Level: "warn", Format: FormatConsole}, false},
		{"empty format is json", Config{Level: "error"}, false},
		{"upper case", Config{Level: "WARNING", Format: "JSON"}, false},
		{"unknown level", Config{Level: "loud", Format: FormatJSON}, true},
		{"unknown format", Config{Level: "info", Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			t.Cleanup(func() { SetLevel("info") })
			if tt.wantErr {
				if err == nil {
					t.Error("New() should return error")
				}
				return
			}
			if err != nil || l == nil {
				t.Fatalf("New() = %v, %v", l, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" Error ", slog.LevelError, false},
		{"", slog.LevelInfo, true},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{"", "json", "text", "console", "Text"} {
		if !ValidFormat(f) {
			t.Errorf("ValidFormat(%q) = false", f)
		}
	}
	for _, f := range []string{"xml", "logfmt"} {
		if ValidFormat(f) {
			t.Errorf("ValidFormat(%q) = true", f)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBuffered(t, "warn", FormatJSON)

	l.Debug("derive started")
	l.Info("item stored")
	l.Warn("seal degraded", "mode", "basic")
	l.Error("store closed")

	recs := decodeLines(t, buf)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2:\n%s", len(recs), buf)
	}
	if recs[0]["msg"] != "seal degraded" || recs[0]["mode"] != "basic" {
		t.Errorf("first record = %v", recs[0])
	}
	if recs[1]["level"] != "ERROR" {
		t.Errorf("second record level = %v", recs[1]["level"])
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBuffered(t, "error", FormatJSON)

	l.Info("hidden")
	SetLevel("debug")
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel() = %q, want debug", got)
	}
	l.Debug("visible")

	SetLevel("nonsense")
	if got := GetLevel(); got != "debug" {
		t.Errorf("unknown level changed GetLevel() to %q", got)
	}

	recs := decodeLines(t, buf)
	if len(recs) != 1 || recs[0]["msg"] != "visible" {
		t.Errorf("records = %v", recs)
	}
}

func TestGetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })
	for _, name := range []string{"debug", "info", "warn", "error"} {
		SetLevel(name)
		if got := GetLevel(); got != name {
			t.Errorf("after SetLevel(%q) GetLevel() = %q", name, got)
		}
	}
	SetLevel("warning")
	if got := GetLevel(); got != "warn" {
		t.Errorf("GetLevel() = %q, want warn", got)
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBuffered(t, "debug", FormatJSON)

	engine := l.With("component", "engine")
	engine.Info("sealed", "kind", "v3")
	l.Info("plain")

	recs := decodeLines(t, buf)
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0]["component"] != "engine" || recs[0]["kind"] != "v3" {
		t.Errorf("With() attrs missing: %v", recs[0])
	}
	if _, ok := recs[1]["component"]; ok {
		t.Error("With() must not modify the parent logger")
	}
}

func TestLogger_Redaction(t *testing.T) {
	l, buf := newBuffered(t, "debug", FormatJSON)

	l.Warn("integrity check failed",
		"name", "prefs",
		"signature", "c2lnbmF0dXJl",
		"salt_prefix", "securestore:v3")

	rec := decodeLines(t, buf)[0]
	if rec["name"] != "prefs" {
		t.Errorf("name = %v, want prefs", rec["name"])
	}
	if rec["signature"] != redactedValue || rec["salt_prefix"] != redactedValue {
		t.Errorf("sensitive attrs not redacted: %v", rec)
	}
}

func TestLogger_TextFormat(t *testing.T) {
	l, buf := newBuffered(t, "info", FormatText)
	l.Info("runtime ready", "provider", "native")

	out := buf.String()
	if !strings.Contains(out, `msg="runtime ready"`) || !strings.Contains(out, "provider=native") {
		t.Errorf("text output = %q", out)
	}
}

type ctxKey struct{}

type captureHandler struct {
	slog.Handler
	got *context.Context
}

func (h captureHandler) Handle(ctx context.Context, r slog.Record) error {
	*h.got = ctx
	return nil
}

func TestLogger_WithContext(t *testing.T) {
	var got context.Context
	l := &structured{
		logger: slog.New(captureHandler{Handler: slog.NewJSONHandler(&bytes.Buffer{}, nil), got: &got}),
		ctx:    context.Background(),
	}

	ctx := context.WithValue(context.Background(), ctxKey{}, "op-1")
	l.WithContext(ctx).Info("x")

	if got == nil || got.Value(ctxKey{}) != "op-1" {
		t.Error("WithContext() context not passed to the handler")
	}
}

func TestSlog(t *testing.T) {
	l, buf := newBuffered(t, "debug", FormatJSON)
	Slog(l).Debug("from badger")
	if !strings.Contains(buf.String(), "from badger") {
		t.Error("Slog() should write through the same handler")
	}

	var foreign Logger = foreignLogger{}
	if Slog(foreign) != slog.Default() {
		t.Error("Slog() of a foreign logger should be slog.Default()")
	}
}

type foreignLogger struct{ Logger }

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("dropped")
	l.With("a", 1).WithContext(context.Background()).Warn("dropped")
}

func TestDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, buf := newBuffered(t, "info", FormatJSON)
	SetDefault(l)
	Default().Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Error("SetDefault() not applied")
	}

	SetDefault(foreignLogger{})
	if Default() != l {
		t.Error("SetDefault() must ignore foreign loggers")
	}
}
