package keyderiv

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/securestore/internal/core/domain"
	"github.com/yndnr/securestore/internal/storage"
	"github.com/yndnr/securestore/internal/storage/memory"
	"github.com/yndnr/securestore/internal/telemetry/logger"
	"github.com/yndnr/securestore/internal/telemetry/metric"
	"github.com/yndnr/securestore/pkg/crypto/provider"
	"github.com/yndnr/securestore/pkg/token"
)

type staticFingerprint string

func (f staticFingerprint) Fingerprint() string { return string(f) }

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) { return "", errors.New("disk gone") }
func (brokenStore) Set(context.Context, string, string) error   { return errors.New("disk gone") }

// countingStore counts writes to the wrapped store.
type countingStore struct {
	storage.Persistent
	mu   sync.Mutex
	sets int
}

func (c *countingStore) Set(ctx context.Context, k, v string) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Persistent.Set(ctx, k, v)
}

func newTestService(t *testing.T, p provider.Provider, session string, persistent storage.Persistent, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	return NewService(p, NewIdentityContextWithSession(session), staticFingerprint("fp-1"), persistent, opts...)
}

func TestGetOrCreateDeviceID(t *testing.T) {
	ctx := context.Background()
	persistent := memory.New()

	s := newTestService(t, provider.NewNative(), "s1", persistent)
	id := s.GetOrCreateDeviceID(ctx)
	if !token.IsHex(id, token.DeviceIDLength) {
		t.Fatalf("device id = %q, want %d hex chars", id, token.DeviceIDLength*2)
	}

	stored, err := persistent.Get(ctx, DeviceIDKey)
	if err != nil || stored != id {
		t.Fatalf("persisted device id = %q, %v; want %q", stored, err, id)
	}

	// Same process: cached.
	if again := s.GetOrCreateDeviceID(ctx); again != id {
		t.Errorf("second call = %q, want %q", again, id)
	}

	// New process (new identity) sharing the persistent store: same device.
	other := newTestService(t, provider.NewNative(), "s2", persistent)
	if got := other.GetOrCreateDeviceID(ctx); got != id {
		t.Errorf("device id across sessions = %q, want %q", got, id)
	}
}

func TestGetOrCreateDeviceID_Concurrent(t *testing.T) {
	ctx := context.Background()
	persistent := &countingStore{Persistent: memory.New()}
	s := newTestService(t, provider.NewNative(), "s1", persistent)

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = s.GetOrCreateDeviceID(ctx)
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("callers did not converge: %q vs %q", id, ids[0])
		}
	}
	if persistent.sets != 1 {
		t.Errorf("persistent writes = %d, want 1", persistent.sets)
	}
}

func TestGetOrCreateDeviceID_Degraded(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		store storage.Persistent
	}{
		{"broken store", brokenStore{}},
		{"no store", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, provider.NewNative(), "s1", tt.store)
			id := s.GetOrCreateDeviceID(ctx)
			if !token.IsHex(id, token.DeviceIDLength) {
				t.Fatalf("device id = %q", id)
			}
			if s.GetOrCreateDeviceID(ctx) != id {
				t.Error("process-local device id should be stable")
			}
		})
	}
}

func TestGetOrCreateDeviceID_ReplacesMalformed(t *testing.T) {
	ctx := context.Background()
	persistent := memory.New()
	persistent.Set(ctx, DeviceIDKey, "not-hex")

	s := newTestService(t, provider.NewNative(), "s1", persistent)
	id := s.GetOrCreateDeviceID(ctx)
	if id == "not-hex" || !token.IsHex(id, token.DeviceIDLength) {
		t.Fatalf("device id = %q, want a fresh id", id)
	}
	if stored, _ := persistent.Get(ctx, DeviceIDKey); stored != id {
		t.Errorf("malformed id not replaced, stored %q", stored)
	}
}

func TestBuildSalt(t *testing.T) {
	ctx := context.Background()
	persistent := memory.New()
	persistent.Set(ctx, DeviceIDKey, strings.Repeat("ab", token.DeviceIDLength))

	s := newTestService(t, provider.NewNative(), "sess", persistent)
	got := s.BuildSalt(ctx, PurposeEncryption)
	want := "securestore:v3:encryption:fp-1:" + strings.Repeat("ab", token.DeviceIDLength) + ":sess"
	if got != want {
		t.Errorf("BuildSalt() = %q, want %q", got, want)
	}

	custom := newTestService(t, provider.NewNative(), "sess", persistent, WithConfig(Config{SaltPrefix: "p"}))
	if !strings.HasPrefix(custom.BuildSalt(ctx, PurposeIntegrity), "p:integrity_check:") {
		t.Errorf("custom prefix not applied: %q", custom.BuildSalt(ctx, PurposeIntegrity))
	}
}

func TestDeriveKey(t *testing.T) {
	ctx := context.Background()
	persistent := memory.New()
	s := newTestService(t, provider.NewNative(), "s1", persistent)

	k1, err := s.DeriveKey(ctx, "prefs", PurposeEncryption)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if len(k1) != provider.KeySize {
		t.Fatalf("len(key) = %d, want %d", len(k1), provider.KeySize)
	}

	k2, _ := s.DeriveKey(ctx, "prefs", PurposeEncryption)
	if !bytes.Equal(k1, k2) {
		t.Error("DeriveKey() should be deterministic within a session")
	}

	integrity, _ := s.DeriveKey(ctx, "prefs", PurposeIntegrity)
	if bytes.Equal(k1, integrity) {
		t.Error("purposes should yield different keys")
	}

	otherName, _ := s.DeriveKey(ctx, "other", PurposeEncryption)
	if bytes.Equal(k1, otherName) {
		t.Error("secret material should yield different keys")
	}

	otherSession := newTestService(t, provider.NewNative(), "s2", persistent)
	k3, _ := otherSession.DeriveKey(ctx, "prefs", PurposeEncryption)
	if bytes.Equal(k1, k3) {
		t.Error("sessions should yield different keys")
	}

	otherFP := NewService(provider.NewNative(), NewIdentityContextWithSession("s1"), staticFingerprint("fp-2"), persistent, WithLogger(logger.Discard()))
	k4, _ := otherFP.DeriveKey(ctx, "prefs", PurposeEncryption)
	if bytes.Equal(k1, k4) {
		t.Error("fingerprints should yield different keys")
	}
}

func TestDeriveKey_Failures(t *testing.T) {
	ctx := context.Background()

	unavailable := newTestService(t, provider.Unavailable{}, "s1", memory.New())
	key, err := unavailable.DeriveKey(ctx, "prefs", PurposeEncryption)
	if key != nil || !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("DeriveKey() with no provider = %v, %v", key, err)
	}
	if !domain.IsRecoverable(err) {
		t.Error("provider failure should be recoverable")
	}

	nilProvider := newTestService(t, nil, "s1", memory.New())
	if _, err := nilProvider.DeriveKey(ctx, "prefs", PurposeEncryption); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("DeriveKey() with nil provider error = %v", err)
	}

	s := newTestService(t, provider.NewNative(), "s1", memory.New())
	if _, err := s.DeriveKey(ctx, "prefs", ""); !errors.Is(err, domain.ErrKeyDerivation) {
		t.Errorf("DeriveKey() with empty purpose error = %v", err)
	}
}

func TestIterationsFloor(t *testing.T) {
	tests := []struct {
		configured int
		want       int
	}{
		{0, MinIterations},
		{1000, MinIterations},
		{MinIterations, MinIterations},
		{20000, 20000},
	}

	for _, tt := range tests {
		s := newTestService(t, provider.NewNative(), "s", nil, WithConfig(Config{Iterations: tt.configured}))
		if got := s.Iterations(); got != tt.want {
			t.Errorf("Iterations(%d) = %d, want %d", tt.configured, got, tt.want)
		}
	}
}

func TestDeriveLegacyKey(t *testing.T) {
	ctx := context.Background()
	p := provider.NewNative()

	s1 := newTestService(t, p, "s1", memory.New())
	s2 := newTestService(t, p, "s2", memory.New())

	k1, err := s1.DeriveLegacyKey(ctx, "prefs_integrity_check")
	if err != nil {
		t.Fatalf("DeriveLegacyKey() error = %v", err)
	}
	k2, _ := s2.DeriveLegacyKey(ctx, "prefs_integrity_check")
	if !bytes.Equal(k1, k2) {
		t.Error("legacy key should not depend on identity")
	}

	want, _ := p.PBKDF2([]byte("prefs_integrity_check"), []byte(DefaultLegacySalt), MinIterations, provider.KeySize)
	if !bytes.Equal(k1, want) {
		t.Error("legacy key should use the fixed salt and 10000 iterations")
	}
}

func TestDeriveSystemKey(t *testing.T) {
	ctx := context.Background()
	persistent := memory.New()

	// System keys need no provider.
	s := newTestService(t, provider.Unavailable{}, "s1", persistent)
	k1 := s.DeriveSystemKey(ctx, "prefs")
	if !token.IsHex(k1, 32) {
		t.Fatalf("DeriveSystemKey() = %q, want 64 hex chars", k1)
	}
	if s.DeriveSystemKey(ctx, "prefs") != k1 {
		t.Error("DeriveSystemKey() should be deterministic")
	}
	if s.DeriveSystemKey(ctx, "other") == k1 {
		t.Error("key types should yield different system keys")
	}

	other := newTestService(t, provider.Unavailable{}, "s2", persistent)
	if other.DeriveSystemKey(ctx, "prefs") == k1 {
		t.Error("sessions should yield different system keys")
	}
}

func TestDeriveKey_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := metric.NewRegistry()

	ok := newTestService(t, provider.NewNative(), "s1", nil, WithMetrics(reg))
	ok.DeriveKey(ctx, "prefs", PurposeIntegrity)

	failing := newTestService(t, provider.Unavailable{}, "s1", nil, WithMetrics(reg))
	failing.DeriveKey(ctx, "prefs", PurposeIntegrity)

	if got := testutil.ToFloat64(reg.DeriveTotal.WithLabelValues(PurposeIntegrity, metric.ResultOK)); got != 1 {
		t.Errorf("derive ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.DeriveTotal.WithLabelValues(PurposeIntegrity, metric.ResultError)); got != 1 {
		t.Errorf("derive error = %v, want 1", got)
	}
}

func TestNewIdentityContext(t *testing.T) {
	a, b := NewIdentityContext(), NewIdentityContext()
	if !token.IsHex(a.SessionID(), token.SessionIDLength) {
		t.Errorf("SessionID() = %q, want %d hex chars", a.SessionID(), token.SessionIDLength*2)
	}
	if a.SessionID() == b.SessionID() {
		t.Error("session ids should be unique per context")
	}
	if _, ok := a.CachedDeviceID(); ok {
		t.Error("device id should be resolved lazily")
	}
}

func BenchmarkDeriveKey(b *testing.B) {
	ctx := context.Background()
	s := NewService(provider.NewNative(), NewIdentityContextWithSession("bench"), staticFingerprint("fp"), nil, WithLogger(logger.Discard()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.DeriveKey(ctx, "prefs", PurposeEncryption)
	}
}
