// Package envelope implements envelope encryption for sensitive record
// fields. Every record gets its own data key; the data key is wrapped by a
// master key and written once to a KeyStore under a random id. The master
// key comes from a KeyProvider and lives only in memory, so losing the
// provider (for example unplugging a hardware key device) immediately makes
// every encrypt and decrypt fail with ErrUnavailable.
package envelope

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrUnavailable means no master key is loaded.
	ErrUnavailable = errors.New("envelope: encryption unavailable")
	// ErrKeyNotFound means the record id has no wrapped key in the store.
	ErrKeyNotFound = errors.New("envelope: key not found")
	// ErrKeyExists is returned by KeyStore.Create when the id is taken.
	ErrKeyExists = errors.New("envelope: key already exists")
	// ErrNotConfigured means no key provider was selected.
	ErrNotConfigured = errors.New("envelope: no key provider configured")
	// ErrMalformedKey means the provider returned key material that does not parse.
	ErrMalformedKey = errors.New("envelope: malformed master key")
	// ErrTransport means the provider could not be reached.
	ErrTransport = errors.New("envelope: key provider transport failure")
	// ErrDecrypt means authentication failed for the wrapped key or the ciphertext.
	ErrDecrypt = errors.New("envelope: decryption failed")
)

const (
	recordKeySize = chacha20poly1305.KeySize
	masterKeyInfo = "tabchat envelope master key v1"
)

// Envelope encrypts and decrypts records. It is safe for concurrent use.
type Envelope struct {
	provider KeyProvider
	keys     KeyStore
	logger   *slog.Logger

	mu     sync.RWMutex
	master []byte

	subMu sync.Mutex
	subs  []chan Event
}

// New returns an Envelope with no master key loaded. A nil provider is
// allowed; Load then reports ErrNotConfigured.
func New(provider KeyProvider, keys KeyStore, logger *slog.Logger) *Envelope {
	if logger == nil {
		logger = slog.Default()
	}
	return &Envelope{
		provider: provider,
		keys:     keys,
		logger:   logger,
	}
}

// Provider returns the configured key provider, or nil.
func (e *Envelope) Provider() KeyProvider { return e.provider }

// Load asks the provider for key material and installs the derived master
// key, publishing KeyAvailable if none was loaded before.
func (e *Envelope) Load(ctx context.Context) error {
	if e.provider == nil {
		return ErrNotConfigured
	}

	material, err := e.provider.LoadKey(ctx)
	if err != nil {
		return err
	}

	master, err := deriveMasterKey(material)
	if err != nil {
		return err
	}

	e.mu.Lock()
	wasLoaded := e.master != nil
	e.master = master
	e.mu.Unlock()

	if !wasLoaded {
		e.logger.Info("encryption master key loaded", "provider", e.provider.Name())
		e.publish(KeyAvailable)
	}
	return nil
}

// Invalidate drops the in-memory master key, publishing KeyLost if one was
// loaded.
func (e *Envelope) Invalidate() {
	e.mu.Lock()
	wasLoaded := e.master != nil
	clear(e.master)
	e.master = nil
	e.mu.Unlock()

	if wasLoaded {
		e.logger.Warn("encryption master key invalidated")
		e.publish(KeyLost)
	}
}

// Available reports whether a master key is loaded.
func (e *Envelope) Available() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.master != nil
}

// Encrypt seals plaintext under a fresh record key and persists the wrapped
// key. The returned ciphertext is base64url and must be stored by the caller
// alongside id.
func (e *Envelope) Encrypt(ctx context.Context, plaintext string) (id string, ciphertext string, err error) {
	master := e.masterKey()
	if master == nil {
		return "", "", ErrUnavailable
	}

	recordKey := make([]byte, recordKeySize)
	if _, err := rand.Read(recordKey); err != nil {
		return "", "", fmt.Errorf("envelope: generate record key: %w", err)
	}
	defer clear(recordKey)

	id = uuid.NewString()

	sealed, err := sealRecord(recordKey, id, []byte(plaintext))
	if err != nil {
		return "", "", err
	}

	wrapped, err := wrapKey(master, id, recordKey)
	if err != nil {
		return "", "", err
	}

	if err := e.keys.Create(ctx, id, wrapped); err != nil {
		return "", "", fmt.Errorf("envelope: store wrapped key: %w", err)
	}

	return id, base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the plaintext for a record produced by Encrypt.
func (e *Envelope) Decrypt(ctx context.Context, id, ciphertext string) (string, error) {
	wrapped, err := e.keys.Get(ctx, id)
	if err != nil {
		return "", err
	}

	master := e.masterKey()
	if master == nil {
		return "", ErrUnavailable
	}

	recordKey, err := unwrapKey(master, id, wrapped)
	if err != nil {
		return "", err
	}
	defer clear(recordKey)

	sealed, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}

	plaintext, err := openRecord(recordKey, id, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// masterKey returns a copy so callers never race with Invalidate.
func (e *Envelope) masterKey() []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.master == nil {
		return nil
	}
	return append([]byte(nil), e.master...)
}

func deriveMasterKey(material []byte) ([]byte, error) {
	if len(material) == 0 {
		return nil, ErrMalformedKey
	}
	out := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(masterKeyInfo)), out); err != nil {
		return nil, fmt.Errorf("envelope: derive master key: %w", err)
	}
	return out, nil
}

// sealRecord returns nonce||ciphertext using XChaCha20-Poly1305 with the
// record id as associated data.
func sealRecord(key []byte, id string, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: record cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("envelope: generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(id)), nil
}

func openRecord(key []byte, id string, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrDecrypt
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ct, []byte(id))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// wrapKey encrypts a record key with AES-256-GCM under the master key.
// Output format: [12-byte nonce][ciphertext][16-byte tag].
func wrapKey(master []byte, id string, recordKey []byte) ([]byte, error) {
	gcm, err := newGCM(master)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("envelope: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, recordKey, []byte(id)), nil
}

func unwrapKey(master []byte, id string, wrapped []byte) ([]byte, error) {
	gcm, err := newGCM(master)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ct := wrapped[:gcm.NonceSize()], wrapped[gcm.NonceSize():]
	key, err := gcm.Open(nil, nonce, ct, []byte(id))
	if err != nil {
		return nil, ErrDecrypt
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: create GCM: %w", err)
	}
	return gcm, nil
}
