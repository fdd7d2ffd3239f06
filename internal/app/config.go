package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/checkout-flow/internal/domain/cart"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	BackendURL     string        `default:"http://localhost:4000" usage:"Shop backend base URL" flag:"backend-url"`
	RequestTimeout time.Duration `default:"15s" usage:"Per-request timeout for backend calls" flag:"request-timeout"`
	ConfirmDelay   time.Duration `default:"7s" usage:"Thank-you screen dwell time before redirecting to orders" flag:"confirm-delay"`
	CatalogPath    string        `default:"" usage:"Path to a gzip catalog export for offline item lookups" flag:"catalog"`
	User           UserConfig
	Redis          RedisConfig
	Probe          ProbeConfig
	Order          OrderConfig
}

// UserConfig identifies the signed-in customer.
type UserConfig struct {
	ID    string `usage:"Customer ID (empty runs the session unauthenticated)"`
	Name  string `usage:"Customer display name"`
	Email string `usage:"Customer email"`
}

// RedisConfig controls the cart persistence mirror. An empty Addr disables
// mirroring.
type RedisConfig struct {
	Addr string        `default:"" usage:"Redis address for cart persistence (empty disables)"`
	TTL  time.Duration `default:"15m" usage:"Stored cart lifetime"`
}

// ProbeConfig controls backend reachability monitoring.
type ProbeConfig struct {
	Interval time.Duration `default:"30s" usage:"Backend reachability probe interval"`
	Timeout  time.Duration `default:"5s" usage:"Per-probe timeout"`
}

// OrderConfig scripts the checkout the session will run.
type OrderConfig struct {
	Items []string `usage:"Cart lines as productId:quantity"`
	Form  FormConfig

	PaymentMethod string `default:"cod" usage:"Payment method: cod or online" flag:"payment-method"`
	OnlineOption  string `default:"" usage:"Online payment option: JazzCash, EasyPaisa or BankTransfer" flag:"online-option"`
	ProofPath     string `default:"" usage:"Path to a payment proof image for online orders" flag:"proof"`
}

// FormConfig carries the shipping form fields.
type FormConfig struct {
	FirstName    string
	LastName     string
	Email        string
	Address      string
	City         string
	PostCode     string
	Country      string
	MobileNumber string
	SaveInfo     bool `default:"true" usage:"Remember shipping details for the next order"`
}

// LoadConfig loads configuration from environment variables, flags, and YAML
// config files.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if cfg.Redis.Addr != "" && cfg.User.ID == "" {
		return nil, errors.New("cart persistence needs a user: set CHECKOUT_USER_ID")
	}

	return &cfg, nil
}

// CartItems parses the scripted productId:quantity lines.
func (c *Config) CartItems() ([]cart.LineItem, error) {
	items := make([]cart.LineItem, 0, len(c.Order.Items))
	for _, raw := range c.Order.Items {
		id, qtyStr, ok := strings.Cut(raw, ":")
		if !ok || id == "" {
			return nil, errors.Errorf("malformed cart line %q, want productId:quantity", raw)
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil {
			return nil, errors.Wrapf(err, "parse quantity in cart line %q", raw)
		}
		items = append(items, cart.LineItem{ProductID: id, Quantity: qty})
	}
	return items, nil
}
