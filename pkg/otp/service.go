// Package otp issues and checks the short numeric codes that gate access to
// the clinical vault. The code is a usability gate, not a security boundary:
// there is no expiry enforcement, no attempt limiting and no server-side
// challenge state beyond the value handed back to the caller.
package otp

import "math/rand"

const (
	codeMin  = 100000
	codeSpan = 900000
)

// Service generates and verifies 6-digit access codes. The zero value is not
// usable; construct with NewService.
type Service struct {
	intn func(n int) int
}

// NewService returns a Service backed by the shared math/rand source.
func NewService() *Service {
	return &Service{intn: rand.Intn}
}

// NewServiceWithSource returns a Service drawing from intn, for deterministic
// tests.
func NewServiceWithSource(intn func(n int) int) *Service {
	return &Service{intn: intn}
}

// Generate produces a 6-digit numeric code uniformly drawn from
// [100000, 999999]. Each call is independent; the caller holds the code for
// the duration of one challenge.
func (s *Service) Generate() string {
	n := codeMin + s.intn(codeSpan)
	return formatCode(n)
}

// Verify reports whether submitted exactly equals expected. No trimming, no
// normalization; a mismatch is a result, not an error.
func (s *Service) Verify(submitted, expected string) bool {
	return submitted == expected
}

func formatCode(n int) string {
	buf := [6]byte{}
	for i := 5; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}
