package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConf(t *testing.T, mutate func(c *Config)) {
	t.Helper()
	original := Conf
	t.Cleanup(func() { Conf = original })

	Conf = defaultConfig()
	mutate(&Conf)
}

func TestCheckConfigDefaultsAreValid(t *testing.T) {
	withConf(t, func(c *Config) {})

	require.NoError(t, CheckConfig())
	assert.Equal(t, "llm", Conf.Intent.Provider)
	assert.Equal(t, "local", Conf.Storage.Provider)
	assert.Nil(t, Conf.App.ParsedProxy)
}

func TestCheckConfigParsesProxy(t *testing.T) {
	withConf(t, func(c *Config) { c.App.Proxy = "http://127.0.0.1:7890" })

	require.NoError(t, CheckConfig())
	require.NotNil(t, Conf.App.ParsedProxy)
	assert.Equal(t, "127.0.0.1:7890", Conf.App.ParsedProxy.Host)
}

func TestCheckConfigRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errSub string
	}{
		{"bad intent provider", func(c *Config) { c.Intent.Provider = "bert" }, "intent.provider"},
		{"local intent without url", func(c *Config) { c.Intent.Provider = "local"; c.Intent.Url = "" }, "intent.url"},
		{"bad storage provider", func(c *Config) { c.Storage.Provider = "gcs" }, "storage.provider"},
		{"minio without credentials", func(c *Config) { c.Storage.Provider = "minio" }, "credentials"},
		{"zero target", func(c *Config) { c.Pipeline.TargetDuration = 0 }, "target_duration"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"queue without redis", func(c *Config) { c.Queue.Enabled = true; c.Queue.RedisAddr = " " }, "redis_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withConf(t, tt.mutate)
			err := CheckConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestCheckConfigNormalizesProviders(t *testing.T) {
	withConf(t, func(c *Config) {
		c.Storage.Provider = " OSS "
		c.Storage.Bucket = "b"
		c.Storage.AccessKeyId = "id"
		c.Storage.AccessKeySecret = "secret"
		c.Storage.PresignTTLMinutes = 0
		c.Intent.Provider = "LOCAL"
	})

	require.NoError(t, CheckConfig())
	assert.Equal(t, "oss", Conf.Storage.Provider)
	assert.Equal(t, "local", Conf.Intent.Provider)
	assert.Equal(t, 24*60, Conf.Storage.PresignTTLMinutes)
}
