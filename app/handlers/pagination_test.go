package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
Pagination Test Cases:

1. First page: next only
2. Middle page: both links
3. Last page: previous only
4. Single page: no links
5. Odd offset: previous floored at zero
*/

func TestPaginationLinks_FirstPage(t *testing.T) {
	links := paginationLinks("/users/", 10, 0, 25)

	assert.Equal(t, 25, links.Count)
	require.NotNil(t, links.Next)
	assert.Equal(t, "/users/?limit=10&offset=10", *links.Next)
	assert.Nil(t, links.Previous)
}

func TestPaginationLinks_MiddlePage(t *testing.T) {
	links := paginationLinks("/users/", 10, 10, 25)

	require.NotNil(t, links.Next)
	assert.Equal(t, "/users/?limit=10&offset=20", *links.Next)
	require.NotNil(t, links.Previous)
	assert.Equal(t, "/users/?limit=10&offset=0", *links.Previous)
}

func TestPaginationLinks_LastPage(t *testing.T) {
	links := paginationLinks("/users/", 10, 20, 25)

	assert.Nil(t, links.Next)
	require.NotNil(t, links.Previous)
	assert.Equal(t, "/users/?limit=10&offset=10", *links.Previous)
}

func TestPaginationLinks_SinglePage(t *testing.T) {
	links := paginationLinks("/users/", 10, 0, 5)

	assert.Nil(t, links.Next)
	assert.Nil(t, links.Previous)
	assert.Equal(t, 5, links.Count)
}

func TestPaginationLinks_OffsetFlooredAtZero(t *testing.T) {
	links := paginationLinks("/users/", 10, 4, 25)

	require.NotNil(t, links.Previous)
	assert.Equal(t, "/users/?limit=10&offset=0", *links.Previous,
		"previous offset never goes negative")
}
