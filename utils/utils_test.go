package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID(PrefixPlayer)
	assert.True(t, strings.HasPrefix(id, "player_"))
	assert.Len(t, id, len("player_")+36)
	assert.NotEqual(t, id, NewID(PrefixPlayer))
}

func TestLegacyTeamID(t *testing.T) {
	assert.Equal(t, "team_los_halcones", LegacyTeamID("Los Halcones"))
	assert.Equal(t, "team_aguilas_del_sur", LegacyTeamID("  Águilas del Sur "))
	assert.Equal(t, "", LegacyTeamID("   "))
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("p2")
	require.NoError(t, err)
	assert.True(t, IsPasswordHash(hash))

	ok, rehash, err := CheckPassword("p2", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, rehash)

	ok, _, err = CheckPassword("p", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, rehash, err = CheckPassword("password123", "password123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, rehash)

	ok, _, err = CheckPassword("", "")
	require.NoError(t, err)
	assert.False(t, ok)
}
