// Package canon holds the fingerprinting and ordering conventions shared by
// every canonical query value: a streaming non-cryptographic digest over
// normalized state, an order-sensitive combiner for nested digests, and a
// short-circuiting comparator chain.
package canon

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/common/model"
)

// Hasher feeds typed fields into a single xxhash digest. Strings are
// length-prefixed so that adjacent fields cannot alias ("ab","c" vs "a","bc").
type Hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{d: xxhash.New()}
}

// PutString writes s as UTF-8 bytes preceded by its length.
func (h *Hasher) PutString(s string) *Hasher {
	h.putUint64(uint64(len(s)))
	h.d.WriteString(s)
	return h
}

// PutBool writes a single byte, 1 for true.
func (h *Hasher) PutBool(b bool) *Hasher {
	if b {
		h.d.Write([]byte{1})
	} else {
		h.d.Write([]byte{0})
	}
	return h
}

// PutFloat64 writes the IEEE-754 bits of f. All NaNs hash alike and -0 hashes
// as +0, matching the equality used by Float64s.
func (h *Hasher) PutFloat64(f float64) *Hasher {
	switch {
	case math.IsNaN(f):
		f = math.NaN()
	case f == 0:
		f = 0
	}
	h.putUint64(math.Float64bits(f))
	return h
}

// PutFingerprint writes a nested digest.
func (h *Hasher) PutFingerprint(fp model.Fingerprint) *Hasher {
	h.putUint64(uint64(fp))
	return h
}

// Sum returns the digest of everything written so far.
func (h *Hasher) Sum() model.Fingerprint {
	return model.Fingerprint(h.d.Sum64())
}

func (h *Hasher) putUint64(v uint64) {
	binary.BigEndian.PutUint64(h.buf[:], v)
	h.d.Write(h.buf[:])
}

// CombineOrdered hashes the count and then each fingerprint in the order
// given. Callers sort nested collections before combining them.
func CombineOrdered(fps ...model.Fingerprint) model.Fingerprint {
	h := NewHasher()
	h.putUint64(uint64(len(fps)))
	for _, fp := range fps {
		h.PutFingerprint(fp)
	}
	return h.Sum()
}
