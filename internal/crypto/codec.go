// Package crypto implements the encryption codec protecting dynamic secret
// provider configuration at rest.
//
// The codec is a narrow seal/open contract over opaque bytes: the service
// serializes provider inputs to canonical JSON before encrypting and parses
// them back after decrypting. Keeping the codec behind an interface makes
// algorithm or key rotation a single-component change.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/awnumar/memguard"
)

// Algorithm identifies the symmetric cipher used for a blob.
type Algorithm string

// Encoding identifies how the ciphertext, IV and tag are encoded for storage.
type Encoding string

const (
	// AlgorithmAES256GCM is the only algorithm currently written. Older
	// algorithms remain readable through the Algorithm field on stored blobs.
	AlgorithmAES256GCM Algorithm = "aes-256-gcm"

	// EncodingBase64 is standard (padded) base64.
	EncodingBase64 Encoding = "base64"
)

// KeySize is the required master key length in bytes.
const KeySize = 32

// EncryptedBlob is the at-rest form of an encrypted payload. The five fields
// are always produced together and must be stored atomically; a blob with a
// missing member is undecryptable by construction.
type EncryptedBlob struct {
	Ciphertext  string
	IV          string
	Tag         string
	Algorithm   Algorithm
	KeyEncoding Encoding
}

// Codec encrypts and decrypts opaque payloads.
type Codec interface {
	Encrypt(plaintext []byte) (EncryptedBlob, error)
	Decrypt(blob EncryptedBlob) ([]byte, error)
}

// DecryptionError indicates a stored blob could not be decrypted: tag
// verification failed, the encoded fields are corrupt, or the metadata names
// an algorithm or encoding this codec does not know. Treated as a fatal
// data-integrity fault by callers, never silently ignored.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decryption failed: %s: %v", e.Reason, e.Err)
	}
	return "decryption failed: " + e.Reason
}

func (e DecryptionError) Unwrap() error {
	return e.Err
}

// AESGCMCodec implements Codec with AES-256-GCM. The master key is held in a
// memguard enclave, encrypted in memory and protected from swapping; it is
// opened only for the duration of each seal or open call.
type AESGCMCodec struct {
	key *memguard.Enclave
}

// NewAESGCMCodec creates a codec from a 32-byte master key. The caller
// should zero its copy of the key after the call returns; the codec keeps
// its own copy inside the enclave.
func NewAESGCMCodec(key []byte) (*AESGCMCodec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(key))
	}
	return &AESGCMCodec{key: memguard.NewEnclave(key)}, nil
}

// Encrypt seals plaintext under a fresh random IV and returns the blob with
// ciphertext and tag split out, base64 encoded.
func (c *AESGCMCodec) Encrypt(plaintext []byte) (EncryptedBlob, error) {
	gcm, done, err := c.openCipher()
	if err != nil {
		return EncryptedBlob{}, err
	}
	defer done()

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return EncryptedBlob{}, fmt.Errorf("generating iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - gcm.Overhead()

	return EncryptedBlob{
		Ciphertext:  base64.StdEncoding.EncodeToString(sealed[:split]),
		IV:          base64.StdEncoding.EncodeToString(iv),
		Tag:         base64.StdEncoding.EncodeToString(sealed[split:]),
		Algorithm:   AlgorithmAES256GCM,
		KeyEncoding: EncodingBase64,
	}, nil
}

// Decrypt opens a blob, verifying the authentication tag. Any inconsistency
// in the blob yields a DecryptionError.
func (c *AESGCMCodec) Decrypt(blob EncryptedBlob) ([]byte, error) {
	if blob.Algorithm != AlgorithmAES256GCM {
		return nil, DecryptionError{Reason: fmt.Sprintf("unsupported algorithm %q", blob.Algorithm)}
	}
	if blob.KeyEncoding != EncodingBase64 {
		return nil, DecryptionError{Reason: fmt.Sprintf("unsupported key encoding %q", blob.KeyEncoding)}
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil {
		return nil, DecryptionError{Reason: "malformed ciphertext encoding", Err: err}
	}
	iv, err := base64.StdEncoding.DecodeString(blob.IV)
	if err != nil {
		return nil, DecryptionError{Reason: "malformed iv encoding", Err: err}
	}
	tag, err := base64.StdEncoding.DecodeString(blob.Tag)
	if err != nil {
		return nil, DecryptionError{Reason: "malformed tag encoding", Err: err}
	}

	gcm, done, err := c.openCipher()
	if err != nil {
		return nil, err
	}
	defer done()

	if len(iv) != gcm.NonceSize() {
		return nil, DecryptionError{Reason: fmt.Sprintf("iv length %d does not match nonce size %d", len(iv), gcm.NonceSize())}
	}
	if len(tag) != gcm.Overhead() {
		return nil, DecryptionError{Reason: fmt.Sprintf("tag length %d does not match overhead %d", len(tag), gcm.Overhead())}
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, DecryptionError{Reason: "tag verification failed", Err: err}
	}
	return plaintext, nil
}

// openCipher decrypts the key enclave and builds the AEAD. The returned done
// function wipes the plaintext key from memory.
func (c *AESGCMCodec) openCipher() (cipher.AEAD, func(), error) {
	buf, err := c.key.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("opening key enclave: %w", err)
	}

	block, err := aes.NewCipher(buf.Bytes())
	if err != nil {
		buf.Destroy()
		return nil, nil, fmt.Errorf("initializing cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		buf.Destroy()
		return nil, nil, fmt.Errorf("initializing gcm: %w", err)
	}
	return gcm, buf.Destroy, nil
}
