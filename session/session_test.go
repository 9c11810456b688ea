package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	s, err := Generate()
	require.NoError(t, err)

	require.Len(t, s.Name, len(NamePrefix)+2)
	assert.True(t, strings.HasPrefix(s.Name, NamePrefix))
	require.Len(t, s.Code, 6)

	for _, c := range s.Name[len(NamePrefix):] + s.Code {
		assert.Contains(t, alphabet, string(c))
	}
}

func TestGenerate_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := Generate()
		require.NoError(t, err)
		seen[s.Code] = true
	}
	// 50 draws from 36^6 codes colliding down to a handful would mean
	// broken randomness
	assert.Greater(t, len(seen), 45)
}

func TestCheckAuth(t *testing.T) {
	s, err := Generate()
	require.NoError(t, err)

	assert.Equal(t, AuthOK, CheckAuth(s, []byte(s.Code)))
	assert.Equal(t, AuthMismatch, CheckAuth(s, []byte("wrong")))
	assert.Equal(t, AuthMalformed, CheckAuth(s, []byte{0xff, 0xfe}))
}

func TestCheckAuth_Repeatable(t *testing.T) {
	s := Session{Name: "prsntrAB", Code: "X9K2LQ"}

	// Stateless: failures never lock the session out
	for i := 0; i < 5; i++ {
		assert.Equal(t, AuthMismatch, CheckAuth(s, []byte("nope")))
	}
	assert.Equal(t, AuthOK, CheckAuth(s, []byte("X9K2LQ")))
}

func TestCheckAuth_EmptyPayload(t *testing.T) {
	s := Session{Name: "prsntrAB", Code: "X9K2LQ"}
	assert.Equal(t, AuthMismatch, CheckAuth(s, nil))
}

func TestAuthResult_String(t *testing.T) {
	assert.Equal(t, "ok", AuthOK.String())
	assert.Equal(t, "mismatch", AuthMismatch.String())
	assert.Equal(t, "malformed", AuthMalformed.String())
	assert.Equal(t, "unknown", AuthResult(9).String())
}
