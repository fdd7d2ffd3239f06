package app

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/checkout-flow/internal/backend"
	"github.com/xenking/checkout-flow/internal/catalog"
	"github.com/xenking/checkout-flow/internal/domain/cart"
	"github.com/xenking/checkout-flow/internal/domain/checkout"
	"github.com/xenking/checkout-flow/internal/nav"
	"github.com/xenking/checkout-flow/internal/notify"
	redisstore "github.com/xenking/checkout-flow/internal/storage/redis"
	"github.com/xenking/checkout-flow/pkg/probe"
)

// staticAuth is the session identity. A zero ID means signed out.
type staticAuth struct {
	user *checkout.User
}

func (a staticAuth) CurrentUser() *checkout.User {
	return a.user
}

// Run creates all dependencies and drives the scripted checkout session to
// completion. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("backend", cfg.BackendURL))

	client, err := backend.NewClient(backend.Options{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.RequestTimeout,
		TraceOptions: []otelhttp.Option{
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		},
	})
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	items, err := cfg.CartItems()
	if err != nil {
		return errors.Wrap(err, "parse cart items")
	}

	// Catalog snapshot for offline item lookups, when configured.
	if cfg.CatalogPath != "" {
		snap, err := catalog.Load(ctx, cfg.CatalogPath)
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}
		lg.Info("Catalog loaded", zap.Int("products", snap.Len()))

		for _, it := range items {
			if _, err := snap.Get(it.ProductID); err != nil {
				return errors.Wrapf(err, "cart references product %s", it.ProductID)
			}
		}
	}

	// Cart store, mirrored to Redis when configured. A previously stored
	// cart takes precedence over the scripted one.
	var mirrors []cart.Mirror
	if cfg.Redis.Addr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		defer func() { _ = rdb.Close() }()

		mirror := redisstore.NewCartMirror(rdb, cfg.User.ID, cfg.Redis.TTL)
		mirrors = append(mirrors, mirror)

		stored, err := mirror.Load(ctx)
		switch {
		case err == nil && len(stored) > 0:
			lg.Info("Resuming stored cart", zap.Int("lines", len(stored)))
			items = stored
		case errors.Is(err, redisstore.ErrNoCart):
		case err != nil:
			lg.Warn("Stored cart unavailable", zap.Error(err))
		}
	}
	store := cart.NewMemoryStore(items, mirrors...)

	notifier := notify.NewLog(lg)
	router := nav.NewRouter(lg, checkout.RouteCart)

	// Backend reachability monitor feeds the connectivity banner.
	monitor := probe.New(func(name string, up bool) {
		if up {
			notifier.Info("Connection restored")
			return
		}
		notifier.Error("Connection lost. Retrying...")
		lg.Warn("Collaborator unreachable", zap.String("target", name))
	})
	monitor.Add("backend", cfg.Probe.Timeout, probe.HTTPPing(nil, cfg.BackendURL))
	monitor.Start(ctx, cfg.Probe.Interval)
	defer monitor.Stop()

	var user *checkout.User
	if cfg.User.ID != "" {
		user = &checkout.User{ID: cfg.User.ID, Name: cfg.User.Name, Email: cfg.User.Email}
	}

	w := checkout.New(
		checkout.Config{ConfirmDelay: cfg.ConfirmDelay},
		checkout.Deps{
			Auth:    staticAuth{user: user},
			Cart:    store,
			Pricing: backend.NewPricingClient(client),
			Orders:  backend.NewOrderClient(client),
			Proofs:  backend.NewProofClient(client),
			Nav:     router,
			Notify:  notifier,
			Logger:  lg.Named("checkout"),
		},
	)
	defer w.Close()

	if err := runCheckout(ctx, lg, cfg, w); err != nil {
		return err
	}

	// Hold the thank-you screen until the redirect fires or the process is
	// told to stop.
	delay := cfg.ConfirmDelay
	if delay <= 0 {
		delay = checkout.DefaultConfirmDelay
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay + time.Second):
	}

	lg.Info("Session finished", zap.Strings("history", router.History()))
	return nil
}

// runCheckout scripts one pass through the place-order page.
func runCheckout(ctx context.Context, lg *zap.Logger, cfg *Config, w *checkout.Workflow) error {
	if err := w.Start(ctx); err != nil {
		return errors.Wrap(err, "start checkout")
	}

	form := checkout.NewShippingForm()
	form.FirstName = cfg.Order.Form.FirstName
	form.LastName = cfg.Order.Form.LastName
	form.Email = cfg.Order.Form.Email
	form.Address = cfg.Order.Form.Address
	form.City = cfg.Order.Form.City
	form.PostCode = cfg.Order.Form.PostCode
	form.MobileNumber = cfg.Order.Form.MobileNumber
	form.SaveInfo = cfg.Order.Form.SaveInfo
	if cfg.Order.Form.Country != "" {
		form.Country = cfg.Order.Form.Country
	}
	w.SetForm(form)

	if checkout.PaymentMethod(cfg.Order.PaymentMethod) == checkout.PaymentOnline {
		w.ChoosePaymentMethod(checkout.PaymentOnline)
		w.ConfirmOnlinePayment(true)
		w.SelectOnlineOption(checkout.OnlineOption(cfg.Order.OnlineOption))

		if inst, ok := w.PaymentInstructions(); ok {
			lg.Info("Payment instructions",
				zap.String("title", inst.Title),
				zap.String("account", inst.Account),
			)
		}

		if cfg.Order.ProofPath != "" {
			proof, err := loadProof(cfg.Order.ProofPath)
			if err != nil {
				return errors.Wrap(err, "load payment proof")
			}
			if err := w.AttachProof(proof); err != nil {
				return errors.Wrap(err, "attach payment proof")
			}
		}
	}

	totals := w.Totals()
	lg.Info("Order summary",
		zap.String("subtotal", totals.Subtotal.String()),
		zap.String("taxes", totals.Taxes.String()),
		zap.String("shipping", totals.ShippingFee.String()),
		zap.String("total", totals.Total.String()),
	)

	if err := w.Submit(ctx); err != nil {
		return errors.Wrap(err, "submit order")
	}
	return nil
}

// loadProof reads a proof image from disk, taking the content type from the
// file extension.
func loadProof(path string) (checkout.Proof, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return checkout.Proof{}, errors.Wrapf(err, "read %s", path)
	}
	return checkout.Proof{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}
