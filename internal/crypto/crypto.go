package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"unicode/utf16"
)

const (
	SaltSize   = 8  // Salt size in bytes
	KeySize    = 32 // AES-256 key size
	IVSize     = 16 // AES block size
	Iterations = 20 // PBE iteration count fixed by the container format
)

var (
	ErrInvalidPassword   = errors.New("invalid password")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidSalt       = errors.New("invalid salt")
)

// Key is the password secret a container is encrypted with. It does not
// depend on the salt, so one Key opens every container sharing the password.
type Key struct {
	units []uint16
}

// NewKey creates a key from a UTF-8 password
func NewKey(password []byte) *Key {
	return &Key{units: utf16.Encode([]rune(string(password)))}
}

// Equal reports whether both keys hold the same password
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return ConstantTimeCompare(k.bmpBytes(), other.bmpBytes())
}

// Clone returns an independent copy
func (k *Key) Clone() *Key {
	return &Key{units: append([]uint16(nil), k.units...)}
}

// Destroy clears the password from memory
func (k *Key) Destroy() {
	for i := range k.units {
		k.units[i] = 0
	}
	k.units = nil
}

// bmpBytes encodes the password as a PKCS#12 BMPString: big-endian UTF-16
// followed by a two byte terminator. An empty password encodes as nothing.
func (k *Key) bmpBytes() []byte {
	if len(k.units) == 0 {
		return nil
	}
	b := make([]byte, 0, 2*len(k.units)+2)
	for _, u := range k.units {
		b = append(b, byte(u>>8), byte(u))
	}
	return append(b, 0, 0)
}

// asciiBytes keeps the low byte of every UTF-16 unit, which is how PKCS#5
// schemes see a password.
func (k *Key) asciiBytes() []byte {
	b := make([]byte, len(k.units))
	for i, u := range k.units {
		b[i] = byte(u)
	}
	return b
}

// Cipher encrypts and decrypts container payloads with a key and salt
type Cipher struct {
	key   *Key
	salt  []byte
	block cipher.Block
	iv    []byte
}

// NewCipher derives the AES key and IV for key and salt
func NewCipher(key *Key, salt []byte) (*Cipher, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSalt, len(salt), SaltSize)
	}

	password := key.bmpBytes()
	defer ClearBytes(password)

	aesKey := pkcs12Key(sha256.New, password, salt, Iterations, pkcs12KeyMaterial, KeySize)
	defer ClearBytes(aesKey)
	iv := pkcs12Key(sha256.New, password, salt, Iterations, pkcs12IVMaterial, IVSize)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Cipher{
		key:   key,
		salt:  append([]byte(nil), salt...),
		block: block,
		iv:    iv,
	}, nil
}

// NewCipherWithFreshSalt derives a cipher for key using a new random salt
func NewCipherWithFreshSalt(key *Key) (*Cipher, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return NewCipher(key, salt)
}

// Key returns the password secret the cipher was derived from
func (c *Cipher) Key() *Key {
	return c.key
}

// Salt returns a copy of the salt
func (c *Cipher) Salt() []byte {
	return append([]byte(nil), c.salt...)
}

// Encrypt encrypts plaintext using AES-256-CBC
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	padded := pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(ciphertext, padded)
	ClearBytes(padded)
	return ciphertext, nil
}

// Decrypt decrypts ciphertext using AES-256-CBC. Every failure is reported
// as ErrInvalidPassword since a wrong key cannot be told apart from damage.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidPassword
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext, aes.BlockSize)
	if err != nil {
		ClearBytes(plaintext)
		return nil, ErrInvalidPassword
	}
	return unpadded, nil
}

// pad applies PKCS#7 padding
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding, checking every padding byte
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidCiphertext
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidCiphertext
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidCiphertext
		}
	}
	return data[:len(data)-n], nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
