package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20"
)

const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // KiB, i.e. m_cost=65536
	argon2Threads = 4
	argon2KeyLen  = 32

	aesSaltSize  = 32
	aesNonceSize = 12
)

// deriveEncryptionKey derives a 32-byte AES key from a password using
// Argon2id with the reference wallet's parameters (spec.md §4.J).
func deriveEncryptionKey(password string, salt [aesSaltSize]byte) []byte {
	return argon2.IDKey([]byte(password), salt[:], argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// generateSalt draws a fresh Argon2id salt from the OS CSPRNG.
func generateSalt() ([aesSaltSize]byte, error) {
	var salt [aesSaltSize]byte
	_, err := rand.Read(salt[:])
	return salt, err
}

// encryptAESGCM encrypts plaintext with a password-derived key under
// the given salt and nonce.
func encryptAESGCM(plaintext []byte, password string, salt [aesSaltSize]byte, nonce [aesNonceSize]byte) ([]byte, error) {
	key := deriveEncryptionKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("monlite: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, aesNonceSize)
	if err != nil {
		return nil, fmt.Errorf("monlite: gcm init: %w", err)
	}
	return gcm.Seal(nil, nonce[:], plaintext, nil), nil
}

// decryptAESGCM reverses encryptAESGCM. AEAD authentication failure is
// the signal used to distinguish a bad password from other corruption.
func decryptAESGCM(ciphertext []byte, password string, salt [aesSaltSize]byte, nonce [aesNonceSize]byte) ([]byte, error) {
	key := deriveEncryptionKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("monlite: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, aesNonceSize)
	if err != nil {
		return nil, fmt.Errorf("monlite: gcm init: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plaintext, nil
}

// cryptoNightStandIn substitutes for the reference wallet's CryptoNight
// proof-of-work hash, used here purely as a slow KDF round function to
// derive the ChaCha20-legacy key for key-image export files. Like
// HashToPoint, this package treats the real CryptoNight primitive as
// external/assumed-correct; it applies Keccak-256 `rounds` times
// (at least once).
func cryptoNightStandIn(secret [32]byte, rounds int) [32]byte {
	hash := Keccak256(secret[:])
	for i := 1; i < rounds; i++ {
		hash = Keccak256(hash[:])
	}
	return hash
}

// deriveChaChaKey derives the ChaCha20-legacy key used by the key
// image export/import format from the wallet's view secret: a single
// round, i.e. Keccak-256 of the view secret's encoding.
func deriveChaChaKey(viewSecret *Scalar) [32]byte {
	viewBytes := [32]byte(viewSecret.Bytes())
	return cryptoNightStandIn(viewBytes, 1)
}

// chacha20LegacyCrypt runs the DJB/legacy variant (8-byte nonce) of
// ChaCha20 over data; it is its own inverse.
func chacha20LegacyCrypt(data []byte, key [32]byte, iv [8]byte) ([]byte, error) {
	// 12-byte IETF nonce: the first 4 bytes stay zero (the high half of
	// the legacy 64-bit block counter) and the legacy IV fills the last 8.
	var nonce [chacha20.NonceSize]byte
	copy(nonce[4:], iv[:])
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("monlite: chacha20 init: %w", err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}
