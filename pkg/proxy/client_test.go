package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsoracle/omicsoracle/internal/config"
)

func TestRewriterDisabledWithoutBaseURL(t *testing.T) {
	r := NewRewriter(config.SourceConfig{})
	assert.False(t, r.Enabled())

	out, err := r.RewriteURL("https://publisher.example/paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://publisher.example/paper.pdf", out)
}

func TestRewriterRewritesHostThroughEZproxyConvention(t *testing.T) {
	r := NewRewriter(config.SourceConfig{ProxyBaseURL: "https://proxy.library.example/"})
	assert.True(t, r.Enabled())

	out, err := r.RewriteURL("https://publisher.example/papers/1.pdf?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.library.example/login?url=https.publisher-example/papers/1.pdf?x=1", out)
}

func TestRewriterTrimsTrailingSlashFromBaseURL(t *testing.T) {
	r := NewRewriter(config.SourceConfig{ProxyBaseURL: "https://proxy.library.example///"})
	out, err := r.RewriteURL("https://publisher.example/x")
	require.NoError(t, err)
	assert.Contains(t, out, "https://proxy.library.example/login?url=")
}

func TestRewriterReturnsErrorForUnparseableTarget(t *testing.T) {
	r := NewRewriter(config.SourceConfig{ProxyBaseURL: "https://proxy.library.example"})
	_, err := r.RewriteURL("://not a url")
	assert.Error(t, err)
}

func TestCredentialsReportsOKOnlyWithUsername(t *testing.T) {
	r := NewRewriter(config.SourceConfig{ProxyUsername: "alice", ProxyPassword: "secret"})
	user, pass, ok := r.Credentials()
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "secret", pass)

	r2 := NewRewriter(config.SourceConfig{})
	_, _, ok2 := r2.Credentials()
	assert.False(t, ok2)
}
