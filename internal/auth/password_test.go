package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := ComparePassword("correct horse battery", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ComparePassword("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	first, err := HashPassword("same input")
	require.NoError(t, err)
	second, err := HashPassword("same input")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestComparePassword_MalformedHash(t *testing.T) {
	_, err := ComparePassword("anything", "not-a-hash")
	require.Error(t, err)
}
