package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageValidateDefaults(t *testing.T) {
	p := NewPage(0, 0, false)
	require.NoError(t, p.Validate(MaxSearchLimit))
	assert.Equal(t, DefaultLimit, p.Limit)
}

func TestPageValidateClampsToCeiling(t *testing.T) {
	p := NewPage(9999, 0, true)
	require.NoError(t, p.Validate(MaxSearchLimit))
	assert.Equal(t, MaxSearchLimit, p.Limit)
}

func TestPageValidateRejectsNegative(t *testing.T) {
	p := NewPage(10, -1, true)
	assert.ErrorIs(t, p.Validate(MaxSearchLimit), ErrInvalidArgument)

	p = NewPage(-5, 0, true)
	assert.ErrorIs(t, p.Validate(MaxSearchLimit), ErrInvalidArgument)
}

func TestSliceZeroLimitKeepsHonestTotal(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	p := NewPage(0, 0, true)
	require.NoError(t, p.Validate(100))

	window, total, hasMore := Slice(items, p)
	assert.Empty(t, window)
	assert.Equal(t, 5, total)
	assert.True(t, hasMore)
}

func TestSliceWindows(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	window, total, hasMore := Slice(items, Page{Limit: 2, Offset: 0})
	assert.Equal(t, []int{1, 2}, window)
	assert.Equal(t, 5, total)
	assert.True(t, hasMore)

	window, _, hasMore = Slice(items, Page{Limit: 2, Offset: 4})
	assert.Equal(t, []int{5}, window)
	assert.False(t, hasMore)

	window, total, hasMore = Slice(items, Page{Limit: 2, Offset: 10})
	assert.Empty(t, window)
	assert.Equal(t, 5, total)
	assert.False(t, hasMore)
}

func TestNodeFromLanguageNull(t *testing.T) {
	n := NodeFrom(typesNode("", "FILE"))
	assert.Nil(t, n.Language)

	n = NodeFrom(typesNode("python", "FUNCTION"))
	require.NotNil(t, n.Language)
	assert.Equal(t, "python", *n.Language)
}
