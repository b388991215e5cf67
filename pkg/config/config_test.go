package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
store:
  driver: sqlite
  dsn: ":memory:"
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 10, c.Reconcile.DailyRowLimit)
	assert.Equal(t, 1950, c.Reconcile.MinYear)
	assert.Equal(t, []string{"LTM", "LTM-4"}, c.Reconcile.TrailingLabels)
	assert.Equal(t, 1, c.Workbook.TitleRows)
	assert.Equal(t, []string{"log"}, c.Notify.Channels)
	assert.Equal(t, "memory", c.Cache.Driver)
	assert.Equal(t, time.Hour, c.Cache.ResolverTTL)
	assert.Equal(t, "local", c.Source.Type)
	assert.Equal(t, DefaultModeRules, c.ModeRules())
	assert.Equal(t, DefaultStreamRules, c.StreamRules())
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing dsn":     "environment: test\n",
		"bad driver":      minimal + "  max_conns: 1\n" + "cache:\n  driver: memcached\n",
		"bad channel":     minimal + "notify:\n  channels: [slack]\n",
		"mailgun no key":  minimal + "notify:\n  channels: [mailgun]\n",
		"kafka no broker": minimal + "notify:\n  channels: [kafka]\n",
		"sftp no host":    minimal + "source:\n  type: sftp\n",
		"bad pattern":     minimal + "dispatch:\n  modes:\n    - pattern: \"(\"\n      value: daily\n",
		"bad mode":        minimal + "dispatch:\n  modes:\n    - pattern: PX\n      value: hourly\n",
	}
	for name, body := range cases {
		_, err := Parse([]byte(body))
		assert.Error(t, err, name)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o644))

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_DSN", "/tmp/facts.db")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("MAILGUN_API_KEY", "key-123")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Equal(t, "/tmp/facts.db", c.Store.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "key-123", c.Notify.Mailgun.APIKey)
	assert.True(t, c.NotifyEnabled("log"))
	assert.False(t, c.NotifyEnabled("kafka"))
}
