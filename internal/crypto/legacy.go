package crypto

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"fmt"
)

// legacyParams derives the DES key and IV of PBEWithMD5AndDES (PKCS#5 PBES1)
func legacyParams(key *Key, salt []byte) (cipher.Block, []byte, error) {
	if len(salt) != SaltSize {
		return nil, nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSalt, len(salt), SaltSize)
	}

	password := key.asciiBytes()
	defer ClearBytes(password)

	h := md5.New()
	h.Write(password)
	h.Write(salt)
	dk := h.Sum(nil)
	for i := 1; i < Iterations; i++ {
		sum := md5.Sum(dk)
		dk = sum[:]
	}
	defer ClearBytes(dk)

	block, err := des.NewCipher(dk[:des.BlockSize])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	iv := append([]byte(nil), dk[des.BlockSize:2*des.BlockSize]...)
	return block, iv, nil
}

// DecryptLegacy decrypts the payload of a pre-header container.
// A ciphertext that is not a whole number of blocks is ErrInvalidCiphertext,
// a padding failure is ErrInvalidPassword.
func DecryptLegacy(key *Key, salt, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%des.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	block, iv, err := legacyParams(key, salt)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext, des.BlockSize)
	if err != nil {
		ClearBytes(plaintext)
		return nil, ErrInvalidPassword
	}
	return unpadded, nil
}

// EncryptLegacy produces a pre-header payload. Nothing in upm writes this
// format; it exists so tools and tests can build old containers.
func EncryptLegacy(key *Key, salt, plaintext []byte) ([]byte, error) {
	block, iv, err := legacyParams(key, salt)
	if err != nil {
		return nil, err
	}

	padded := pad(plaintext, des.BlockSize)
	defer ClearBytes(padded)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}
