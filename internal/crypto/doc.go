// Package crypto provides the key derivation and ciphers used by upm
// containers.
//
// Current containers use PBEWithSHA256And256BitAES:
//   - 8-byte random salt stored unencrypted in the container
//   - PKCS#12 key derivation over SHA-256 with 20 iterations
//   - AES-256-CBC with PKCS#7 padding
//
// Pre-header containers use PBEWithMD5AndDES (PBKDF1-MD5, DES-CBC) and can
// only be decrypted; every save rewrites them with the current cipher.
//
// The iteration count is fixed by the file format. It is low by modern
// standards and cannot be raised without breaking existing containers.
//
// There is no MAC. A wrong password and a damaged payload both surface as
// ErrInvalidPassword.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Key.Destroy() when a password is no longer needed
package crypto
