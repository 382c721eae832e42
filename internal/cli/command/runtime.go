package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yndnr/securestore/internal/config"
	"github.com/yndnr/securestore/internal/core/engine"
	"github.com/yndnr/securestore/internal/core/fallback"
	"github.com/yndnr/securestore/internal/core/fingerprint"
	"github.com/yndnr/securestore/internal/core/keyderiv"
	"github.com/yndnr/securestore/internal/core/service"
	"github.com/yndnr/securestore/internal/infra/shutdown"
	"github.com/yndnr/securestore/internal/storage"
	"github.com/yndnr/securestore/internal/storage/memory"
	"github.com/yndnr/securestore/internal/telemetry/logger"
	"github.com/yndnr/securestore/internal/telemetry/metric"
	"github.com/yndnr/securestore/pkg/crypto/provider"
)

const shutdownTimeout = 5 * time.Second

// Runtime is one session of the secure store: a fresh identity over a
// persistent device store and an empty volatile store.
type Runtime struct {
	Config      *config.Config
	Logger      logger.Logger
	Metrics     *metric.Registry
	Provider    provider.Provider
	Device      *storage.BadgerStore
	Fingerprint *fingerprint.Generator
	Keys        *keyderiv.Service
	Engine      *engine.Engine
	Volatile    *memory.Store
	Storage     *service.SecureStorage

	shutdown *shutdown.Handler
}

// NewRuntime wires the store from cfg.
func NewRuntime(cfg *config.Config, log logger.Logger) (*Runtime, error) {
	p, err := provider.ByName(cfg.Crypto.Provider)
	if err != nil {
		return nil, err
	}

	device, err := openDeviceStore(cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   log,
		Metrics:  metric.NewRegistry(),
		Provider: p,
		Device:   device,
		shutdown: shutdown.NewHandler(shutdownTimeout),
	}
	rt.shutdown.OnShutdown(func(context.Context) error {
		return device.Close()
	})
	device.RegisterMetrics(rt.Metrics.Registerer())

	rt.Fingerprint = fingerprint.New(fingerprint.NewSystemEnvironment(cfg.Fingerprint.UserID))
	rt.Keys = keyderiv.NewService(p, keyderiv.NewIdentityContext(), rt.Fingerprint, device,
		keyderiv.WithConfig(keyderiv.Config{
			Iterations: cfg.Crypto.Iterations,
			SaltPrefix: cfg.Crypto.SaltPrefix,
			LegacySalt: cfg.Crypto.LegacySalt,
		}),
		keyderiv.WithLogger(log.With("component", "keyderiv")),
		keyderiv.WithMetrics(rt.Metrics),
	)
	rt.Engine = engine.New(p, rt.Keys, fallback.New(rt.Keys),
		engine.WithLogger(log.With("component", "engine")),
		engine.WithMetrics(rt.Metrics),
	)
	rt.Volatile = memory.New(memory.WithQuota(cfg.Storage.VolatileQuotaBytes))
	rt.Storage = service.New(rt.Volatile, rt.Engine,
		service.WithLogger(log.With("component", "storage")),
		service.WithMetrics(rt.Metrics),
	)
	if err := rt.Metrics.RegisterStore(rt.Storage.Occupancy); err != nil {
		rt.Close()
		return nil, fmt.Errorf("register store metrics: %w", err)
	}
	if err := rt.Metrics.RegisterUsedBytes(rt.Volatile.Used); err != nil {
		rt.Close()
		return nil, fmt.Errorf("register store metrics: %w", err)
	}

	log.Debug("runtime ready",
		"provider", p.Name(),
		"session_id", rt.Keys.Identity().SessionID(),
		"device_dir", cfg.Storage.DeviceDir)
	return rt, nil
}

func openDeviceStore(s config.StorageSection, log logger.Logger) (*storage.BadgerStore, error) {
	kv := storage.DefaultKVConfig(s.DeviceDir)
	if s.GCInterval > 0 {
		kv.Badger.GCInterval = s.GCInterval.String()
	}
	if !kv.InMemory {
		if err := os.MkdirAll(kv.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("create device dir: %w", err)
		}
	}
	return storage.NewBadgerStore(kv, logger.Slog(log.With("component", "badger")))
}

// Context returns a context cancelled on SIGINT or SIGTERM, which also
// closes the runtime.
func (r *Runtime) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return r.shutdown.Context(parent)
}

// Close releases the device store. It is safe to call more than once.
func (r *Runtime) Close() error {
	return r.shutdown.Shutdown()
}
