package pan

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/cardhaven/bankcards/internal/domain"
)

const (
	minPanLength = 13
	maxPanLength = 19

	keyLenBytes = 32
	pbkdf2Iters = 120_000
	ivLenBytes  = 12
)

// Normalize strips everything except digits and validates the PAN length.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	pan := b.String()
	if len(pan) < minPanLength || len(pan) > maxPanLength {
		return "", fmt.Errorf("Normalize: %w", domain.ErrInvalidPan)
	}
	return pan, nil
}

// Mask keeps only the last four digits for display.
func Mask(panNormalized string) string {
	last4 := panNormalized
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return "**** **** **** " + last4
}

// Vault hashes and encrypts PANs. The dedup hash is deterministic so it can
// back a unique index; the encrypted form uses a fresh IV per card.
type Vault struct {
	pepper string
	key    []byte
}

func NewVault(pepper, password, salt string) (*Vault, error) {
	if pepper == "" || password == "" || salt == "" {
		return nil, fmt.Errorf("NewVault: pepper, password and salt must be set")
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iters, keyLenBytes, sha256.New)
	return &Vault{pepper: pepper, key: key}, nil
}

// DedupHash returns hex(SHA-256(pan + pepper)).
func (v *Vault) DedupHash(panNormalized string) string {
	sum := sha256.Sum256([]byte(panNormalized + v.pepper))
	return hex.EncodeToString(sum[:])
}

// Encrypt returns base64(iv):base64(ciphertext) using AES-256-GCM.
func (v *Vault) Encrypt(panNormalized string) (string, error) {
	if panNormalized == "" {
		return "", fmt.Errorf("Encrypt: %w", domain.ErrInvalidPan)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("Encrypt: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("Encrypt: %w", err)
	}

	iv := make([]byte, ivLenBytes)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("Encrypt: %w", err)
	}

	ct := gcm.Seal(nil, iv, []byte(panNormalized), nil)
	return base64.StdEncoding.EncodeToString(iv) + ":" + base64.StdEncoding.EncodeToString(ct), nil
}

func (v *Vault) Decrypt(encrypted string) (string, error) {
	ivB64, ctB64, found := strings.Cut(encrypted, ":")
	if !found {
		return "", fmt.Errorf("Decrypt: malformed ciphertext")
	}

	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", fmt.Errorf("Decrypt: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", fmt.Errorf("Decrypt: %w", err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("Decrypt: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("Decrypt: %w", err)
	}

	plain, err := gcm.Open(nil, iv, ct, nil)
	if err != nil {
		return "", fmt.Errorf("Decrypt: %w", err)
	}
	return string(plain), nil
}
