package crypto

import (
	"hash"
)

// Diversifier IDs from RFC 7292 appendix B.3
const (
	pkcs12KeyMaterial byte = 1
	pkcs12IVMaterial  byte = 2
)

// pkcs12Key implements the PKCS#12 v1.0 key derivation function
// (RFC 7292 appendix B.2).
func pkcs12Key(newHash func() hash.Hash, password, salt []byte, iterations int, id byte, size int) []byte {
	h := newHash()
	u := h.Size()
	v := h.BlockSize()

	d := make([]byte, v)
	for i := range d {
		d[i] = id
	}

	s := fillBlocks(salt, v)
	p := fillBlocks(password, v)
	i := make([]byte, 0, len(s)+len(p))
	i = append(i, s...)
	i = append(i, p...)
	defer ClearBytes(i)
	ClearBytes(p)

	c := (size + u - 1) / u
	out := make([]byte, 0, c*u)
	for n := 0; n < c; n++ {
		h.Reset()
		h.Write(d)
		h.Write(i)
		a := h.Sum(nil)
		for r := 1; r < iterations; r++ {
			h.Reset()
			h.Write(a)
			a = h.Sum(a[:0])
		}
		out = append(out, a...)

		if n == c-1 {
			break
		}
		b := fillBlocks(a, v)
		for j := 0; j < len(i); j += v {
			addOne(i[j:j+v], b)
		}
	}

	return out[:size]
}

// fillBlocks repeats in until it fills a whole number of v-byte blocks
func fillBlocks(in []byte, v int) []byte {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, v*((len(in)+v-1)/v))
	for k := range out {
		out[k] = in[k%len(in)]
	}
	return out
}

// addOne sets dst to (dst + b + 1) mod 2^(8*len(dst))
func addOne(dst, b []byte) {
	carry := 1
	for k := len(dst) - 1; k >= 0; k-- {
		sum := int(dst[k]) + int(b[k]) + carry
		dst[k] = byte(sum)
		carry = sum >> 8
	}
}
