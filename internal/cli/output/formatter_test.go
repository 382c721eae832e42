package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type envelopeView struct {
	Key       string          `json:"key"`
	Kind      string          `json:"kind"`
	Value     json.RawMessage `json:"value,omitempty"`
	StorageID string          `json:"storage_id" table:"wide"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("expected JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("expected YAMLFormatter")
	}
	tf, ok := NewFormatter("unknown", true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Error("expected wide TableFormatter by default")
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	v := envelopeView{Key: "prefs", Kind: "v3", Value: json.RawMessage(`{"theme":"dark"}`)}
	if err := (&JSONFormatter{}).Format(&buf, v); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"key": "prefs"`, `"theme": "dark"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %s in:\n%s", want, out)
		}
	}

	buf.Reset()
	(&JSONFormatter{}).Format(&buf, nil)
	if strings.TrimSpace(buf.String()) != "null" {
		t.Errorf("Format(nil) = %q", buf.String())
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	tests := []struct {
		name string
		data any
		want []string
	}{
		{
			name: "struct uses json names and keeps order",
			data: envelopeView{Key: "prefs", Kind: "v3", Value: json.RawMessage(`{"theme":"dark"}`), StorageID: "01h"},
			want: []string{"key: prefs\nkind: v3\nvalue:\n  theme: dark\nstorage_id: 01h\n"},
		},
		{
			name: "numeric-looking strings stay strings",
			data: map[string]string{"code": "123", "flag": "true"},
			want: []string{`code: "123"`, `flag: "true"`},
		},
		{
			name: "slice",
			data: []string{"a", "b"},
			want: []string{"- a\n- b\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&YAMLFormatter{}).Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("Format() =\n%s\nmissing\n%s", buf.String(), want)
				}
			}
		})
	}

	if err := (&YAMLFormatter{}).Format(&bytes.Buffer{}, make(chan int)); err == nil {
		t.Error("Format(chan) should fail")
	}
}
