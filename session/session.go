// Package session produces the one-time identity for a peripheral run
// and checks presented auth codes against it.
//
// A session is a shared secret, not a security boundary: the code gates
// nothing by itself, auth results are only ever reported as events, and
// repeated failures cause no lockout.
package session

import (
	"crypto/rand"
	"fmt"
	"unicode/utf8"
)

// NamePrefix is the fixed prefix of every advertised peripheral name
const NamePrefix = "prsntr"

// alphabet is the uppercase-alphanumeric character set used for both
// the name suffix and the code. 36 characters.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	nameSuffixLen = 2
	codeLen       = 6
)

// Session identifies one peripheral run. Immutable after generation;
// the code is compared against incoming auth writes and never rotated.
type Session struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// AuthResult classifies the outcome of an auth check
type AuthResult int

const (
	// AuthOK means the presented code matched the session code exactly
	AuthOK AuthResult = iota
	// AuthMismatch means the presented code was valid text but wrong
	AuthMismatch
	// AuthMalformed means the presented bytes were not valid UTF-8
	AuthMalformed
)

// String returns the string representation of AuthResult
func (r AuthResult) String() string {
	switch r {
	case AuthOK:
		return "ok"
	case AuthMismatch:
		return "mismatch"
	case AuthMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Generate draws a fresh session identity: a name with a 2-character
// random suffix and a 6-character code, both from [A-Z0-9]. Randomness
// comes from crypto/rand so codes are not predictable from process
// start time.
func Generate() (Session, error) {
	suffix, err := randomChars(nameSuffixLen)
	if err != nil {
		return Session{}, fmt.Errorf("session: generate name suffix: %w", err)
	}
	code, err := randomChars(codeLen)
	if err != nil {
		return Session{}, fmt.Errorf("session: generate code: %w", err)
	}
	return Session{Name: NamePrefix + suffix, Code: code}, nil
}

// randomChars returns n characters drawn uniformly from alphabet.
// Rejection sampling keeps the draw unbiased (256 % 36 != 0).
func randomChars(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, 1)
	limit := byte(256 - (256 % len(alphabet))) // 252
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if buf[0] >= limit {
			continue
		}
		out = append(out, alphabet[int(buf[0])%len(alphabet)])
	}
	return string(out), nil
}

// CheckAuth classifies presented bytes against the session code. The
// check is stateless and may be called any number of times.
func CheckAuth(s Session, presented []byte) AuthResult {
	if !utf8.Valid(presented) {
		return AuthMalformed
	}
	if string(presented) == s.Code {
		return AuthOK
	}
	return AuthMismatch
}
