package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks a sealed value in the config file.
const sealedPrefix = "enc:v1:"

// KeySize is the size of the keyring master key.
const KeySize = 32

const passwordKeyInfo = "rediswire-cli profile password v1"

var (
	// ErrKeyTooShort is returned for a master key shorter than KeySize.
	ErrKeyTooShort = errors.New("config: keyring key too short")

	// ErrDecryptionFailed means a sealed value was tampered with, belongs
	// to another profile, or was sealed with another key.
	ErrDecryptionFailed = errors.New("config: decryption failed - wrong key or corrupted value")
)

// KeyPath returns the keyring path that belongs to a config file.
func KeyPath(configPath string) string {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	return filepath.Join(filepath.Dir(configPath), "key")
}

// Keyring seals and opens profile passwords with XChaCha20-Poly1305. The
// encryption key is derived from the master key with HKDF-SHA256 and the
// profile name is bound as additional data.
type Keyring struct {
	key []byte
}

// NewKeyring creates a keyring from a master key.
func NewKeyring(master []byte) (*Keyring, error) {
	if len(master) < KeySize {
		return nil, ErrKeyTooShort
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(passwordKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("config: derive key: %w", err)
	}
	return &Keyring{key: key}, nil
}

// LoadKeyring reads the master key at path, creating it when missing.
func LoadKeyring(path string) (*Keyring, error) {
	master, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		master = make([]byte, KeySize)
		if _, err := rand.Read(master); err != nil {
			return nil, fmt.Errorf("config: generate key: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("config: create key dir: %w", err)
		}
		if err := os.WriteFile(path, master, 0600); err != nil {
			return nil, fmt.Errorf("config: write key: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("config: read key: %w", err)
	}
	return NewKeyring(master)
}

// IsSealed reports whether s is a sealed value.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealedPrefix)
}

// Seal encrypts plaintext for profile. Empty and already sealed values are
// returned unchanged.
func (k *Keyring) Seal(profile, plaintext string) (string, error) {
	if plaintext == "" || IsSealed(plaintext) {
		return plaintext, nil
	}
	aead, err := chacha20poly1305.NewX(k.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(profile))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Values without the sealed prefix, such as
// a password from REDISWIRE_PROFILES__<NAME>__PASSWORD, are returned as is.
func (k *Keyring) Open(profile, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	aead, err := chacha20poly1305.NewX(k.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrDecryptionFailed
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], []byte(profile))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

// SealPasswords seals every plaintext profile password in cfg.
func SealPasswords(cfg *CLIConfig, k *Keyring) error {
	for name, p := range cfg.Profiles {
		sealed, err := k.Seal(name, p.Password)
		if err != nil {
			return fmt.Errorf("config: seal profile %q: %w", name, err)
		}
		p.Password = sealed
		cfg.Profiles[name] = p
	}
	return nil
}
