package envelope

import (
	"encoding/json"
	"math"
)

type fields map[string]json.RawMessage

func (f fields) str(name string) (string, bool) {
	raw, ok := f[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (f fields) num(name string) (float64, bool) {
	raw, ok := f[name]
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func (f fields) flag(name string) bool {
	raw, ok := f[name]
	if !ok {
		return false
	}
	var b bool
	return json.Unmarshal(raw, &b) == nil && b
}

func (f fields) timestamp() int64 {
	n, ok := f.num("timestamp")
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int64(n)
}

// version returns the numeric version marker, if any.
func (f fields) version() (int, bool) {
	n, ok := f.num("version")
	if !ok || n != math.Trunc(n) {
		return 0, false
	}
	return int(n), true
}

// managed reports whether the object carries a version (2 or 3) or
// isBasicEncryption marker.
func (f fields) managed() bool {
	if f.flag("isBasicEncryption") {
		return true
	}
	v, ok := f.version()
	return ok && (v == 2 || v == CurrentVersion)
}

func decodeFields(raw string) (fields, bool) {
	var f fields
	if err := json.Unmarshal([]byte(raw), &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

// Parse classifies a stored string. It never fails: input that matches no
// known shape comes back as KindUnknown.
//
// Discriminants are probed in order: isBasicEncryption, version (3, 2),
// encrypted+iv (unversioned v2), data+signature (v1). Only markers with
// meaning here (isBasicEncryption true, version 2 or 3, a string encrypted
// beside an iv) make an unmatched object Marked; the rest stay plain values.
func Parse(raw string) Envelope {
	f, ok := decodeFields(raw)
	if !ok {
		return FromRaw(raw)
	}

	env := probe(f)
	env.Raw = raw
	return env
}

func probe(f fields) Envelope {
	ts := f.timestamp()

	if f.flag("isBasicEncryption") {
		if data, ok := f.str("data"); ok {
			return FromBasic(Basic{Data: data, Timestamp: ts})
		}
		return Envelope{Kind: KindUnknown, Marked: true}
	}

	encrypted, hasEncrypted := f.str("encrypted")
	iv, hasIV := f.str("iv")

	if v, ok := f.version(); ok && (v == 2 || v == CurrentVersion) {
		switch {
		case !hasEncrypted || !hasIV:
			return Envelope{Kind: KindUnknown, Marked: true}
		case v == CurrentVersion:
			storageID, _ := f.str("storageId")
			return FromV3(V3{Encrypted: encrypted, IV: iv, Timestamp: ts, StorageID: storageID})
		default:
			return FromV2(V2{Encrypted: encrypted, IV: iv, Timestamp: ts, Version: 2})
		}
	}

	if hasEncrypted && hasIV {
		return FromV2(V2{Encrypted: encrypted, IV: iv, Timestamp: ts})
	}

	data, hasData := f.str("data")
	signature, hasSig := f.str("signature")
	if hasData && hasSig {
		return FromV1(Inner{Data: data, Signature: signature, Timestamp: ts})
	}

	// Any other version or encrypted value belongs to the application.
	_, hasIVKey := f["iv"]
	return Envelope{Kind: KindUnknown, Marked: hasEncrypted && hasIVKey}
}

// IsManaged reports whether raw is a JSON object carrying a subsystem
// marker: a numeric version of 2 or 3, or isBasicEncryption true.
// Clear removes exactly these entries.
func IsManaged(raw string) bool {
	f, ok := decodeFields(raw)
	return ok && f.managed()
}

// ParseInner decodes the signed inner payload of a v3 or basic envelope.
// It requires a string data field; signature may be empty.
func ParseInner(b []byte) (Inner, bool) {
	var f fields
	if err := json.Unmarshal(b, &f); err != nil || f == nil {
		return Inner{}, false
	}
	data, ok := f.str("data")
	if !ok {
		return Inner{}, false
	}
	sig, _ := f.str("signature")
	return Inner{Data: data, Signature: sig, Timestamp: f.timestamp()}, true
}
