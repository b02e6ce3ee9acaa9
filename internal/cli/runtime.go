package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/telemetry"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/layout"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/adapters/sqlite"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/palette"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime bundles an engine with the resources built for it from a Config.
type Runtime struct {
	Engine    *arbor.Engine
	Snapshots ports.SnapshotStore
	Loader    *layout.Loader
	Registry  *prometheus.Registry
	Logger    *slog.Logger

	closers []func(context.Context) error
}

// NewRuntime wires the snapshot store, locker, layout, palette, tracing and metrics
// described by cfg, then bootstraps the canvas from the layout.
// Logs go to logOut.
func NewRuntime(ctx context.Context, cfg Config, logOut io.Writer) (*Runtime, error) {
	logger := logging.NewWithWriter(logOut, logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
	rt := &Runtime{Logger: logger}

	tp, shutdown, err := telemetry.Setup(cfg.Telemetry, cfg.Name, strings.TrimSpace(arbor.Version))
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, shutdown)

	store, locker, err := rt.openStore(ctx, cfg.Store)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	store, err = secureStore(store, cfg.Store)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Snapshots = store

	registry := palette.NewRegistry()
	opts := []arbor.Option{
		arbor.WithName(cfg.Name),
		arbor.WithLogger(logger),
		arbor.WithSnapshotStore(store),
		arbor.WithPalette(registry),
		arbor.WithTracerProvider(tp),
	}
	if locker != nil {
		opts = append(opts, arbor.WithLocker(locker))
	}
	if cfg.Layout != "" {
		rt.Loader = layout.New(cfg.Layout)
		if err := rt.loadPalette(registry); err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		opts = append(opts, arbor.WithLayoutLoader(rt.Loader))
	}

	rt.Engine = arbor.New(opts...)
	observability.Audit(rt.Engine.Bus(), logger.With("component", "audit"))

	if cfg.Metrics {
		rt.Registry = prometheus.NewRegistry()
		rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(rt.Registry)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		metrics.Attach(rt.Engine.Bus())
	}

	if err := rt.Engine.Bootstrap(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context, cfg StoreConfig) (ports.SnapshotStore, ports.DistributedLocker, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.NewStore(), nil, nil
	case "file":
		return file.New(cfg.Path), nil, nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(".arbor", "arbor.db")
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })
		return store, nil, nil
	case "redis":
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithPrefix(cfg.Prefix), redis.WithTTL(cfg.TTL))
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })
		return store, redis.NewLocker(store.Client(), cfg.Prefix), nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// secureStore wraps store with the redaction and encryption middlewares the config asks for.
// Redaction runs first so masked values are what gets sealed.
func secureStore(store ports.SnapshotStore, cfg StoreConfig) (ports.SnapshotStore, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		enc := middleware.EncryptionConfig{}
		var err error
		if enc.ActiveKey, err = base64.StdEncoding.DecodeString(cfg.EncryptionKey); err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		for _, k := range cfg.FallbackKeys {
			key, err := base64.StdEncoding.DecodeString(k)
			if err != nil {
				return nil, fmt.Errorf("invalid fallback key: %w", err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}

// loadPalette registers the layout's templates, replacing same-type entries.
func (rt *Runtime) loadPalette(registry *palette.Registry) error {
	f, err := rt.Loader.Read()
	if err != nil {
		return err
	}
	if err := registry.Register(f.Palette...); err != nil {
		return fmt.Errorf("invalid palette in %s: %w", rt.Loader.Path(), err)
	}
	return nil
}

// Reload re-reads the layout: templates first, then the canvas.
func (rt *Runtime) Reload(ctx context.Context) error {
	if rt.Loader == nil {
		return nil
	}
	if err := rt.loadPalette(rt.Engine.Palette()); err != nil {
		return err
	}
	return rt.Engine.Bootstrap(ctx)
}

// Close releases every resource in reverse order of acquisition.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
