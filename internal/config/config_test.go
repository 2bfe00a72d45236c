package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadAppliesDefaultsWhenEnvUnset(t *testing.T) {
	clearEnv(t, "PORT", "SERVER_PORT", "DATABASE_URL", "HOT_CACHE_BACKEND", "NCBI_RATE_LIMIT_RPS")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.HotCache.Backend)
	assert.Equal(t, 3.0, cfg.Clients.PerSource["ncbi"].RateLimitRPS)
	assert.False(t, cfg.Clients.PerSource["ncbi"].Polite)
}

func TestLoadPrefersPortOverServerPort(t *testing.T) {
	clearEnv(t, "PORT", "SERVER_PORT")
	os.Setenv("SERVER_PORT", "9090")
	assert.Equal(t, "9090", Load().Server.Port)

	os.Setenv("PORT", "1234")
	assert.Equal(t, "1234", Load().Server.Port)
}

func TestLoadSetsPoliteWhenContactEmailPresent(t *testing.T) {
	clearEnv(t, "NCBI_CONTACT_EMAIL")
	os.Setenv("NCBI_CONTACT_EMAIL", "team@example.com")
	cfg := Load()
	assert.True(t, cfg.Clients.PerSource["openalex"].Polite)
	assert.Equal(t, "team@example.com", cfg.Clients.PerSource["openalex"].ContactEmail)
}

func TestLoadEnablesProxyOnlyWhenBaseURLSet(t *testing.T) {
	clearEnv(t, "PROXY_BASE_URL", "PROXY_USERNAME", "PROXY_PASSWORD")
	cfg := Load()
	assert.Empty(t, cfg.Clients.PerSource["proxy"].ProxyBaseURL)

	os.Setenv("PROXY_BASE_URL", "https://proxy.example/login")
	os.Setenv("PROXY_USERNAME", "alice")
	cfg = Load()
	assert.Equal(t, "https://proxy.example/login", cfg.Clients.PerSource["proxy"].ProxyBaseURL)
	assert.Equal(t, "alice", cfg.Clients.PerSource["proxy"].ProxyUsername)
}

func TestLoadParsesCORSOriginsAsCommaSeparatedList(t *testing.T) {
	clearEnv(t, "CORS_ORIGINS")
	os.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	cfg := Load()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFallsBackOnUnparseableIntEnv(t *testing.T) {
	clearEnv(t, "DOWNLOAD_CONCURRENCY")
	os.Setenv("DOWNLOAD_CONCURRENCY", "not-a-number")
	cfg := Load()
	assert.Equal(t, 4, cfg.Download.Concurrency)
}
