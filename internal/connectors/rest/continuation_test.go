package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCursor(t *testing.T) {
	assert.Nil(t, NextCursor("cursor", ""))
	c := NextCursor("cursor", "abc")
	require.NotNil(t, c)
	assert.Equal(t, "abc", c.Params["cursor"])
}

func TestNextPageNumber(t *testing.T) {
	c := NextPageNumber("page", 1, 3)
	require.NotNil(t, c)
	assert.Equal(t, "2", c.Params["page"])

	assert.Nil(t, NextPageNumber("page", 3, 3))
	assert.Nil(t, NextPageNumber("page", 1, 0))
}

func TestNextOffset(t *testing.T) {
	c := NextOffset("offset", 0, 100, 100)
	require.NotNil(t, c)
	assert.Equal(t, "100", c.Params["offset"])

	assert.Nil(t, NextOffset("offset", 0, 99, 100), "short page is the last")
	assert.Nil(t, NextOffset("offset", MaxOffset, 100, 100), "offset cap")
}

func TestNextLinkParam(t *testing.T) {
	link := "https://adsapi.snapchat.com/v1/organizations/o1/adaccounts?cursor=xyz%3D%3D&limit=1000"
	c := NextLinkParam(link, "cursor")
	require.NotNil(t, c)
	assert.Equal(t, "xyz==", c.Params["cursor"])
	assert.Empty(t, c.URL)

	assert.Nil(t, NextLinkParam("", "cursor"))
	assert.Nil(t, NextLinkParam("https://example.com/x?limit=1", "cursor"))
}

func TestNextLink(t *testing.T) {
	assert.Nil(t, NextLink(""))
	assert.Equal(t, "https://example.com/next", NextLink("https://example.com/next").URL)
}
