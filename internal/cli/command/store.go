package command

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore/internal/core/engine"
	"github.com/yndnr/securestore/internal/core/envelope"
)

// EntryView describes a stored entry.
type EntryView struct {
	Key       string `json:"key"`
	Kind      string `json:"kind"`
	Mode      string `json:"mode"`
	Timestamp int64  `json:"timestamp"`
	StorageID string `json:"storage_id,omitempty" table:"wide"`
	Envelope  string `json:"envelope"`
}

// ValueView is the result of a read.
type ValueView struct {
	Key   string          `json:"key"`
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value"`
}

// RoundtripView is the result of a write followed by a read.
type RoundtripView struct {
	Key   string          `json:"key"`
	Kind  string          `json:"kind"`
	Mode  string          `json:"mode"`
	Match bool            `json:"match"`
	Value json.RawMessage `json:"value"`
}

// InspectView classifies a stored string without decrypting it.
type InspectView struct {
	Kind      string `json:"kind"`
	Managed   bool   `json:"managed"`
	Marked    bool   `json:"marked"`
	Version   int    `json:"version,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	StorageID string `json:"storage_id,omitempty"`
	IVBytes   int    `json:"iv_bytes,omitempty"`
	Signed    bool   `json:"signed"`
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a JSON value and print its envelope",
		ArgsUsage: "KEY JSON",
		Action: func(c *cli.Context) error {
			key, value, err := keyValueArgs(c)
			if err != nil {
				return err
			}
			rt, err := EnsureRuntime(c)
			if err != nil {
				return err
			}
			view, err := rt.set(c.Context, key, value)
			if err != nil {
				return err
			}
			return formatter(c).Format(c.App.Writer, view)
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read a value (each process is a new session, see shell)",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return fmt.Errorf("key required")
			}
			rt, err := EnsureRuntime(c)
			if err != nil {
				return err
			}
			return formatter(c).Format(c.App.Writer, rt.get(c.Context, key))
		},
	}
}

// RoundtripCommand returns the roundtrip command.
func RoundtripCommand() *cli.Command {
	return &cli.Command{
		Name:      "roundtrip",
		Usage:     "Store a JSON value and read it back within one session",
		ArgsUsage: "KEY JSON",
		Action: func(c *cli.Context) error {
			key, value, err := keyValueArgs(c)
			if err != nil {
				return err
			}
			rt, err := EnsureRuntime(c)
			if err != nil {
				return err
			}
			view, err := rt.roundtrip(c.Context, key, value)
			if err != nil {
				return err
			}
			return formatter(c).Format(c.App.Writer, view)
		},
	}
}

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Classify a stored envelope without decrypting it",
		ArgsUsage: "ENVELOPE",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("envelope required")
			}
			raw := strings.Join(c.Args().Slice(), " ")
			return formatter(c).Format(c.App.Writer, inspect(raw))
		},
	}
}

func keyValueArgs(c *cli.Context) (string, string, error) {
	if c.NArg() < 2 {
		return "", "", fmt.Errorf("usage: %s KEY JSON", c.Command.Name)
	}
	key := c.Args().First()
	value := strings.Join(c.Args().Tail(), " ")
	return key, value, nil
}

func parseValue(value string) (json.RawMessage, error) {
	if !json.Valid([]byte(value)) {
		return nil, fmt.Errorf("value is not valid JSON: %s", value)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(value)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Runtime) set(ctx context.Context, key, value string) (*EntryView, error) {
	v, err := parseValue(value)
	if err != nil {
		return nil, err
	}
	ok, err := r.Storage.SetItem(ctx, key, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("value for %q was not stored", key)
	}
	raw, _ := r.Storage.Raw(ctx, key)
	return entryView(key, raw), nil
}

func (r *Runtime) get(ctx context.Context, key string) *ValueView {
	v, ok := r.Storage.GetRaw(ctx, key)
	return &ValueView{Key: key, Found: ok, Value: v}
}

func (r *Runtime) roundtrip(ctx context.Context, key, value string) (*RoundtripView, error) {
	entry, err := r.set(ctx, key, value)
	if err != nil {
		return nil, err
	}
	want, _ := parseValue(value)
	got, _ := r.Storage.GetRaw(ctx, key)
	return &RoundtripView{
		Key:   key,
		Kind:  entry.Kind,
		Mode:  entry.Mode,
		Match: sameJSON(want, got),
		Value: got,
	}, nil
}

// sameJSON compares decoded values, so escaping differences such as
// "<" against "\u003c" do not count. Numbers compare by their text.
func sameJSON(a, b json.RawMessage) bool {
	va, errA := decodeJSON(a)
	vb, errB := decodeJSON(b)
	return errA == nil && errB == nil && reflect.DeepEqual(va, vb)
}

func decodeJSON(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func entryView(key, raw string) *EntryView {
	env := envelope.Parse(raw)
	view := &EntryView{
		Key:       key,
		Kind:      env.Kind.String(),
		Mode:      string(modeOf(env.Kind)),
		Timestamp: env.Timestamp(),
		Envelope:  raw,
	}
	if env.V3 != nil {
		view.StorageID = env.V3.StorageID
	}
	return view
}

// modeOf maps a sealed envelope kind back to the protection that produced it.
func modeOf(k envelope.Kind) engine.Mode {
	switch k {
	case envelope.KindV3:
		return engine.ModeAESGCM
	case envelope.KindBasic:
		return engine.ModeBasic
	default:
		return engine.ModePlain
	}
}

func inspect(raw string) *InspectView {
	env := envelope.Parse(raw)
	view := &InspectView{
		Kind:      env.Kind.String(),
		Managed:   envelope.IsManaged(raw),
		Marked:    env.Marked,
		Timestamp: env.Timestamp(),
	}
	switch env.Kind {
	case envelope.KindV3:
		view.Version = env.V3.Version
		view.StorageID = env.V3.StorageID
		view.IVBytes = ivBytes(env.V3.IV)
	case envelope.KindV2:
		view.Version = env.V2.Version
		view.IVBytes = ivBytes(env.V2.IV)
	case envelope.KindV1:
		view.Signed = env.V1.Signature != ""
	}
	return view
}

func ivBytes(iv string) int {
	b, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return 0
	}
	return len(b)
}
