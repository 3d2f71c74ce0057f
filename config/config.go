// Package config loads simulator settings from a YAML file or CLI flags.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/brokersim/brokersim/internal/domain"
)

// Defaults mirror the demo the simulator reproduces: a 2 second market
// cadence and a 10000 opening balance.
const (
	DefaultListenAddr      = ":8000"
	DefaultPublishInterval = 2 * time.Second
	DefaultOpeningBalance  = "10000"
	DefaultRecentTxLimit   = 10
	DefaultWalDir          = "./wal/transactions"
)

// Config holds the runtime settings of the simulator.
type Config struct {
	ListenAddr      string
	PublishInterval time.Duration
	FeedSeed        int64
	OpeningBalance  decimal.Decimal
	RecentTxLimit   int
	WalDir          string
	Instruments     []InstrumentConfig
}

// InstrumentConfig optionally overrides the built-in catalog.
type InstrumentConfig struct {
	Symbol    string `yaml:"symbol"`
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	Precision int32  `yaml:"precision"`
	ListPrice string `yaml:"list_price"`
}

// FileConfig is the YAML representation of Config, also produced by the
// setup wizard.
type FileConfig struct {
	ListenAddr      string             `yaml:"listen_addr"`
	PublishInterval time.Duration      `yaml:"publish_interval"`
	FeedSeed        int64              `yaml:"feed_seed"`
	OpeningBalance  string             `yaml:"opening_balance"`
	RecentTxLimit   int                `yaml:"recent_tx_limit"`
	WalDir          string             `yaml:"wal_dir"`
	Instruments     []InstrumentConfig `yaml:"instruments,omitempty"`
}

// Get reads configuration from the file passed via --config, falling back
// to CLI flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	addr := flag.String("addr", DefaultListenAddr, "web server listen address")
	publishInterval := flag.Duration("publishinterval", DefaultPublishInterval, "market snapshot publish interval")
	seed := flag.Int64("seed", 0, "price feed seed, 0 means time-based")
	openingBalance := flag.String("openingbalance", DefaultOpeningBalance, "opening balance for new accounts")
	recentTxLimit := flag.Int("recenttxlimit", DefaultRecentTxLimit, "transactions returned by the account summary")
	walDir := flag.String("waldir", DefaultWalDir, "transaction journal directory")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	opening, err := decimal.NewFromString(*openingBalance)
	if err != nil {
		return Config{}, errors.Wrapf(err, "invalid --openingbalance=%s", *openingBalance)
	}
	if opening.IsNegative() {
		return Config{}, errors.Errorf("invalid --openingbalance=%s, must not be negative", *openingBalance)
	}

	return Config{
		ListenAddr:      *addr,
		PublishInterval: *publishInterval,
		FeedSeed:        *seed,
		OpeningBalance:  opening,
		RecentTxLimit:   *recentTxLimit,
		WalDir:          *walDir,
	}, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp FileConfig
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	c := Config{
		ListenAddr:      tmp.ListenAddr,
		PublishInterval: tmp.PublishInterval,
		FeedSeed:        tmp.FeedSeed,
		RecentTxLimit:   tmp.RecentTxLimit,
		WalDir:          tmp.WalDir,
		Instruments:     tmp.Instruments,
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = DefaultPublishInterval
	}
	if c.RecentTxLimit <= 0 {
		c.RecentTxLimit = DefaultRecentTxLimit
	}
	if c.WalDir == "" {
		c.WalDir = DefaultWalDir
	}

	opening := tmp.OpeningBalance
	if opening == "" {
		opening = DefaultOpeningBalance
	}
	c.OpeningBalance, err = decimal.NewFromString(opening)
	if err != nil {
		return Config{}, errors.Wrapf(err, "invalid opening_balance %q", opening)
	}
	if c.OpeningBalance.IsNegative() {
		return Config{}, errors.Errorf("opening_balance %q must not be negative", opening)
	}

	return c, nil
}

// CatalogInstruments converts the configured instrument overrides to domain
// instruments. Returns nil when no overrides are configured.
func (c Config) CatalogInstruments() ([]domain.Instrument, error) {
	if len(c.Instruments) == 0 {
		return nil, nil
	}

	out := make([]domain.Instrument, 0, len(c.Instruments))
	for _, ic := range c.Instruments {
		price, err := decimal.NewFromString(ic.ListPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid list_price for %s", ic.Symbol)
		}
		out = append(out, domain.Instrument{
			Symbol:         ic.Symbol,
			DisplayName:    ic.Name,
			Category:       domain.Category(ic.Category),
			PricePrecision: ic.Precision,
			ListPrice:      price,
		})
	}
	return out, nil
}
