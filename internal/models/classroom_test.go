package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateJoinCodeShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := GenerateJoinCode()
		require.Len(t, code, JoinCodeLength)
		for _, r := range code {
			require.Contains(t, joinCodeAlphabet, string(r), "code %q contains %q outside the alphabet", code, string(r))
		}
		require.True(t, IsValidJoinCode(code))
		seen[code] = struct{}{}
	}
	// 31^8 possible codes; 100 draws colliding would point at broken randomness.
	require.Greater(t, len(seen), 95)
}

func TestGenerateJoinCodeExcludesAmbiguousGlyphs(t *testing.T) {
	for _, banned := range []string{"0", "O", "1", "I", "L"} {
		require.NotContains(t, joinCodeAlphabet, banned)
	}
}

func TestNormalizeJoinCode(t *testing.T) {
	require.Equal(t, "ABCD2345", NormalizeJoinCode("  abcd2345\n"))
	require.Equal(t, "ABCD2345", NormalizeJoinCode("ABCD2345"))
}

func TestIsValidJoinCode(t *testing.T) {
	require.True(t, IsValidJoinCode("ABCD2345"))
	require.True(t, IsValidJoinCode("abcd2345"), "normalization happens before the shape check")
	require.False(t, IsValidJoinCode("ABC2345"), "seven characters")
	require.False(t, IsValidJoinCode("ABCD23456"), "nine characters")
	require.False(t, IsValidJoinCode("ABCD 345"))
	require.False(t, IsValidJoinCode(""))
	require.False(t, IsValidJoinCode(strings.Repeat("é", JoinCodeLength)))
}
