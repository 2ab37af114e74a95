package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/archive"
	"github.com/sells-group/bid-cli/internal/catalog"
	"github.com/sells-group/bid-cli/internal/config"
	"github.com/sells-group/bid-cli/internal/cost"
	"github.com/sells-group/bid-cli/internal/estimate"
	"github.com/sells-group/bid-cli/internal/monitoring"
	"github.com/sells-group/bid-cli/internal/pricing"
	"github.com/sells-group/bid-cli/internal/scorer"
	"github.com/sells-group/bid-cli/internal/store"
)

const webhookFlushTimeout = 10 * time.Second

// appEnv holds the wired collaborators shared by commands.
type appEnv struct {
	Store     store.Store // nil when running without a database
	Catalog   catalog.Catalog
	Engine    *estimate.Engine
	History   *archive.Persisted
	Predictor *scorer.Predictor
	Prices    *pricing.Book
	Notifier  monitoring.Notifier
	Webhook   *monitoring.WebhookNotifier // nil without notify.webhook_url
}

// Close delivers queued webhook events, then releases the store.
func (e *appEnv) Close() {
	if e.Webhook != nil {
		ctx, cancel := context.WithTimeout(context.Background(), webhookFlushTimeout)
		if n := e.Webhook.Flush(ctx); n > 0 {
			zap.L().Debug("flushed webhook events", zap.Int("delivered", n))
		}
		cancel()
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initStore opens the configured store. An empty driver returns (nil, nil).
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "":
		return nil, nil
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "bids.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// initEnv wires the engine, archive, scorer and price book from config.
func initEnv(ctx context.Context, c *config.Config) (*appEnv, error) {
	env := &appEnv{}

	notifiers := monitoring.Multi{monitoring.LogNotifier{}}
	if wh := monitoring.NewWebhookNotifier(c.Notify); wh != nil {
		env.Webhook = wh
		notifiers = append(notifiers, wh)
	}
	env.Notifier = notifiers

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
	}

	env.Catalog, err = initCatalog(ctx, c, env.Store)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.History, err = initHistory(ctx, env.Store, env.Notifier)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Predictor, err = scorer.NewPredictor(env.History, c.Scorer)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init scorer")
	}

	env.Prices, err = pricing.NewBook(env.Notifier, pricing.DefaultPrices()...)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init price book")
	}
	if c.Pricing.CommodityAdderPercent > 0 {
		if err := env.Prices.SetCommodityAdder(c.Pricing.CommodityAdderPercent); err != nil {
			env.Close()
			return nil, err
		}
	}

	calc := cost.NewCalculator(cost.Rates{
		BaseLaborRate:    c.Rates.BaseLaborRate,
		BurdenMultiplier: c.Rates.BurdenMultiplier,
	})
	env.Engine = estimate.NewEngine(env.Catalog, calc, env.Notifier,
		estimate.WithClock(func() time.Time { return time.Now().UTC() }))

	return env, nil
}

// initCatalog picks the assembly source: an explicit YAML file, then the
// store when it holds assemblies, then the built-in kits.
func initCatalog(ctx context.Context, c *config.Config, st store.Store) (catalog.Catalog, error) {
	if c.Catalog.Path != "" {
		cat, err := catalog.LoadYAML(c.Catalog.Path)
		if err != nil {
			return nil, err
		}
		zap.L().Info("catalog loaded from file", zap.String("path", c.Catalog.Path), zap.Int("assemblies", cat.Len()))
		return cat, nil
	}

	if st != nil {
		assemblies, err := st.ListAssemblies(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "list assemblies")
		}
		if len(assemblies) > 0 {
			zap.L().Info("catalog served from store", zap.Int("assemblies", len(assemblies)))
			return catalog.NewCached(st, c.Catalog.CacheSize)
		}
	}

	return catalog.Default(), nil
}

// initHistory loads the archive from the store. Without a store, or with an
// empty one, the sample history seeds the in-memory archive.
func initHistory(ctx context.Context, st store.Store, n monitoring.Notifier) (*archive.Persisted, error) {
	if st == nil {
		return archive.NewPersisted(archive.New(n, archive.DefaultHistory()...), nil), nil
	}
	a := archive.New(n)
	if err := archive.Load(ctx, st, a); err != nil {
		return nil, err
	}
	if a.Len() == 0 {
		zap.L().Info("history store empty, scoring against sample history")
		a = archive.New(n, archive.DefaultHistory()...)
	}
	return archive.NewPersisted(a, st), nil
}
