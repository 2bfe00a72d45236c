package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPDFURLSkipsWithoutDOI(t *testing.T) {
	c := &Client{apiKey: "key"}
	url, err := c.FindPDFURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFindPDFURLSkipsWithoutAPIKey(t *testing.T) {
	c := &Client{}
	url, err := c.FindPDFURL(context.Background(), "10.1234/abc")
	require.NoError(t, err)
	assert.Empty(t, url)
}
