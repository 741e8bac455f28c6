package roster

import "math/rand"

const docIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// IDSource mints identifiers for patients and documents. Injectable so tests
// can pin the sequence.
type IDSource interface {
	PatientID() string  // P-#### (four digits)
	DocumentID() string // DOC-<9 uppercase alphanumerics>
}

type randomIDSource struct {
	intn func(n int) int
}

// NewRandomIDSource returns the production source backed by the shared
// math/rand source.
func NewRandomIDSource() IDSource {
	return &randomIDSource{intn: rand.Intn}
}

// NewIDSourceWithRand returns a source drawing from intn, for deterministic
// tests.
func NewIDSourceWithRand(intn func(n int) int) IDSource {
	return &randomIDSource{intn: intn}
}

func (r *randomIDSource) PatientID() string {
	n := 1000 + r.intn(9000)
	digits := [4]byte{}
	for i := 3; i >= 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return "P-" + string(digits[:])
}

func (r *randomIDSource) DocumentID() string {
	buf := make([]byte, 9)
	for i := range buf {
		buf[i] = docIDAlphabet[r.intn(len(docIDAlphabet))]
	}
	return "DOC-" + string(buf)
}
