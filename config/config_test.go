package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokersim/brokersim/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetYaml(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9000"
publish_interval: 3000000000
feed_seed: 42
opening_balance: "25000"
recent_tx_limit: 5
wal_dir: "/tmp/txlog"
`)

	c, err := getYaml(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.ListenAddr)
	assert.Equal(t, 3*time.Second, c.PublishInterval)
	assert.Equal(t, int64(42), c.FeedSeed)
	assert.True(t, c.OpeningBalance.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, 5, c.RecentTxLimit)
	assert.Equal(t, "/tmp/txlog", c.WalDir)
}

func TestGetYaml_Defaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	c, err := getYaml(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, c.ListenAddr)
	assert.Equal(t, DefaultPublishInterval, c.PublishInterval)
	assert.Equal(t, DefaultRecentTxLimit, c.RecentTxLimit)
	assert.Equal(t, DefaultWalDir, c.WalDir)
	assert.True(t, c.OpeningBalance.Equal(decimal.NewFromInt(10000)))
}

func TestGetYaml_InvalidOpeningBalance(t *testing.T) {
	for _, bad := range []string{`opening_balance: "abc"`, `opening_balance: "-5"`} {
		path := writeConfig(t, bad)
		_, err := getYaml(path)
		require.Error(t, err, "config %q must be rejected", bad)
	}
}

func TestCatalogInstruments(t *testing.T) {
	path := writeConfig(t, `
instruments:
  - symbol: "SOL/USD"
    name: "Solana"
    category: "crypto"
    precision: 2
    list_price: "145.30"
  - symbol: "JPY/USD"
    name: "Yen Dollar"
    category: "forex"
    precision: 4
    list_price: "0.0068"
`)

	c, err := getYaml(path)
	require.NoError(t, err)

	instruments, err := c.CatalogInstruments()
	require.NoError(t, err)
	require.Len(t, instruments, 2)
	assert.Equal(t, "SOL/USD", instruments[0].Symbol)
	assert.Equal(t, domain.CategoryCrypto, instruments[0].Category)
	assert.True(t, instruments[0].ListPrice.Equal(decimal.NewFromFloat(145.30)))
	assert.Equal(t, int32(4), instruments[1].PricePrecision)
}

func TestCatalogInstruments_Empty(t *testing.T) {
	instruments, err := Config{}.CatalogInstruments()
	require.NoError(t, err)
	assert.Nil(t, instruments)
}
