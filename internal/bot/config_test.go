package bot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
database:
  host: localhost
  port: "5432"
  user: bot
  password: secret
  name: linxbot
linx:
  api_url: https://linxshort.me/api
  payout_url: https://linxshort.me/payout
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "longpoll", cfg.Core.Telegram.RunMode)
	assert.Equal(t, 15, cfg.Linx.TimeoutSeconds)
	assert.Equal(t, ":8000", cfg.Health.Listen)
	assert.Equal(t, 5, cfg.Database.MaxConnections)
	assert.Empty(t, cfg.Linx.BalanceURL)
}

func TestLoadConfigExplicitValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
  balance_url: https://linxshort.me/balance
  timeout_seconds: 30
health:
  listen: ":9090"
`))
	require.NoError(t, err)

	assert.Equal(t, "https://linxshort.me/balance", cfg.Linx.BalanceURL)
	assert.Equal(t, 30, cfg.Linx.TimeoutSeconds)
	assert.Equal(t, ":9090", cfg.Health.Listen)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LINX_API_URL", "https://other.example/api")
	t.Setenv("HEALTH_LISTEN", ":7070")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "https://other.example/api", cfg.Linx.APIURL)
	assert.Equal(t, ":7070", cfg.Health.Listen)
}

func TestLoadConfigMissingAPIURL(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
telegram:
  token: "123:abc"
linx:
  payout_url: https://linxshort.me/payout
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "linx.api_url")
}

func TestLoadConfigMissingToken(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
linx:
  api_url: https://linxshort.me/api
  payout_url: https://linxshort.me/payout
`))
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
