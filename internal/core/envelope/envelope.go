package envelope

import (
	"encoding/json"

	"github.com/yndnr/securestore/internal/core/domain"
)

// Kind discriminates the envelope variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindV1
	KindV2
	KindV3
	KindBasic
)

// Current format version.
const CurrentVersion = 3

// String returns the short name of the kind.
func (k Kind) String() string {
	switch k {
	case KindV1:
		return "v1"
	case KindV2:
		return "v2"
	case KindV3:
		return "v3"
	case KindBasic:
		return "basic"
	default:
		return "unknown"
	}
}

// Inner is the signed payload: the v1 envelope itself, and the plaintext
// sealed inside v3 and basic envelopes.
type Inner struct {
	Data      string `json:"data"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// V2 is the legacy fixed-salt AES envelope.
type V2 struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	Timestamp int64  `json:"timestamp"`
	Version   int    `json:"version,omitempty"`
}

// V3 is the current AES-GCM envelope.
type V3 struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	Timestamp int64  `json:"timestamp"`
	StorageID string `json:"storageId"`
	Version   int    `json:"version"`
}

// Basic is the fallback cipher envelope.
type Basic struct {
	Data              string `json:"data"`
	IsBasicEncryption bool   `json:"isBasicEncryption"`
	Timestamp         int64  `json:"timestamp"`
}

// Envelope is a tagged union over the stored shapes. Exactly the field
// matching Kind is set; Raw always holds the original string for parsed
// envelopes and the full payload for KindUnknown.
type Envelope struct {
	Kind  Kind
	V1    *Inner
	V2    *V2
	V3    *V3
	Basic *Basic
	Raw   string

	// Marked is set on unknown JSON objects that nonetheless carry a
	// subsystem marker: isBasicEncryption true, version 2 or 3, or a
	// string encrypted field next to an iv.
	Marked bool
}

// FromV1 wraps a v1 envelope.
func FromV1(v Inner) Envelope { return Envelope{Kind: KindV1, V1: &v} }

// FromV2 wraps a v2 envelope.
func FromV2(v V2) Envelope { return Envelope{Kind: KindV2, V2: &v} }

// FromV3 wraps a v3 envelope.
func FromV3(v V3) Envelope {
	v.Version = CurrentVersion
	return Envelope{Kind: KindV3, V3: &v}
}

// FromBasic wraps a basic envelope.
func FromBasic(v Basic) Envelope {
	v.IsBasicEncryption = true
	return Envelope{Kind: KindBasic, Basic: &v}
}

// FromRaw wraps a string stored verbatim.
func FromRaw(raw string) Envelope { return Envelope{Kind: KindUnknown, Raw: raw} }

// Timestamp returns the envelope write time in Unix milliseconds, 0 if unknown.
func (e Envelope) Timestamp() int64 {
	switch e.Kind {
	case KindV1:
		return e.V1.Timestamp
	case KindV2:
		return e.V2.Timestamp
	case KindV3:
		return e.V3.Timestamp
	case KindBasic:
		return e.Basic.Timestamp
	default:
		return 0
	}
}

// Encode serializes the active variant. KindUnknown encodes Raw verbatim.
func Encode(e Envelope) (string, error) {
	var v any
	switch {
	case e.Kind == KindV1 && e.V1 != nil:
		v = e.V1
	case e.Kind == KindV2 && e.V2 != nil:
		v = e.V2
	case e.Kind == KindV3 && e.V3 != nil:
		v3 := *e.V3
		v3.Version = CurrentVersion
		v = v3
	case e.Kind == KindBasic && e.Basic != nil:
		b := *e.Basic
		b.IsBasicEncryption = true
		v = b
	case e.Kind == KindUnknown:
		return e.Raw, nil
	default:
		return "", domain.ErrMalformedEnvelope.WithDetails(e.Kind.String() + " envelope has no payload")
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", domain.ErrSerialization.WithCause(err)
	}
	return string(b), nil
}
