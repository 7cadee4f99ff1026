package wallet

// zeroScalar overwrites a scalar's encoding in place so a stale copy
// of private key material doesn't linger on the heap after it is no
// longer needed. Safe to call on nil.
func zeroScalar(s *Scalar) {
	if s == nil {
		return
	}
	var zero [32]byte
	// SetCanonicalBytes(zero) always succeeds (0 is canonical) and
	// overwrites whatever limbs s previously held.
	_, _ = s.SetCanonicalBytes(zero[:])
}

// zeroizing wraps a byte slice that must be scrubbed once it falls out
// of use, mirroring the teacher's SetFinalizer-based cleanup idiom but
// triggered explicitly by Clear rather than left to the GC's schedule.
type zeroizing struct {
	buf []byte
}

func newZeroizing(n int) *zeroizing {
	return &zeroizing{buf: make([]byte, n)}
}

func (z *zeroizing) Bytes() []byte { return z.buf }

func (z *zeroizing) Clear() {
	for i := range z.buf {
		z.buf[i] = 0
	}
}
