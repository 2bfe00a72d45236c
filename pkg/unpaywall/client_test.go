package unpaywall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/omicsoracle/omicsoracle/internal/errors"
)

func TestLocationsReturnsNilForEmptyDOI(t *testing.T) {
	c := &Client{email: "test@example.org"}
	locs, err := c.Locations(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, locs)
}

func TestLocationsRequiresContactEmail(t *testing.T) {
	c := &Client{}
	_, err := c.Locations(context.Background(), "10.1234/abc")
	require.Error(t, err)
	assert.Equal(t, oerrors.ConfigError, oerrors.CategoryOf(err))
}

func TestRetryAfterErrorReportsPresence(t *testing.T) {
	err := &retryAfterError{after: 0}
	_, ok := err.RetryAfter()
	assert.False(t, ok)
}
