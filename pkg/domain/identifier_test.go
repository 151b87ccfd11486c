package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipantIdentifier(t *testing.T) {
	t.Run("rejects empty scheme", func(t *testing.T) {
		_, err := NewParticipantIdentifier("", "9915:test")
		require.Error(t, err)
	})

	t.Run("rejects empty value", func(t *testing.T) {
		_, err := NewParticipantIdentifier("iso6523-actorid-upis", "  ")
		require.Error(t, err)
	})

	t.Run("rejects separator in scheme", func(t *testing.T) {
		_, err := NewParticipantIdentifier("bad::scheme", "9915:test")
		require.Error(t, err)
	})

	t.Run("accepts valid parts", func(t *testing.T) {
		id, err := NewParticipantIdentifier("iso6523-actorid-upis", "9915:test")
		require.NoError(t, err)
		assert.Equal(t, "iso6523-actorid-upis", id.Scheme())
		assert.Equal(t, "9915:test", id.Value())
		assert.False(t, id.IsZero())
	})
}

func TestParseParticipantIdentifier(t *testing.T) {
	t.Run("round-trips the canonical form", func(t *testing.T) {
		id, err := ParseParticipantIdentifier("iso6523-actorid-upis::9915:test")
		require.NoError(t, err)
		assert.Equal(t, "iso6523-actorid-upis::9915:test", id.URIEncoded())

		again, err := ParseParticipantIdentifier(id.URIEncoded())
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})

	t.Run("value may contain the separator", func(t *testing.T) {
		id, err := ParseParticipantIdentifier("scheme::a::b")
		require.NoError(t, err)
		assert.Equal(t, "a::b", id.Value())
	})

	t.Run("rejects a missing separator", func(t *testing.T) {
		_, err := ParseParticipantIdentifier("no-separator-here")
		require.Error(t, err)
	})
}

func TestURIPercentEncoded(t *testing.T) {
	id, err := NewParticipantIdentifier("iso6523-actorid-upis", "9915:test")
	require.NoError(t, err)
	assert.Equal(t, "iso6523-actorid-upis%3A%3A9915%3Atest", id.URIPercentEncoded())
}

func TestIdentifierEquality(t *testing.T) {
	a, err := NewParticipantIdentifier("s", "v")
	require.NoError(t, err)
	b, err := NewParticipantIdentifier("s", "v")
	require.NoError(t, err)
	c, err := NewParticipantIdentifier("s", "w")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
