package cipher

import (
	"bytes"
	"testing"

	"github.com/photohns/backend/models"
)

func key32() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := key32()
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	ct, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(ct) < ivSize+aes_BlockSizeForTest {
		t.Fatalf("ciphertext too short: %d", len(ct))
	}

	pt, err := Decrypt(ct, key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", pt, plaintext)
	}
}

const aes_BlockSizeForTest = 16

func TestEncryptUsesFreshIVEachCall(t *testing.T) {
	key := key32()
	plaintext := []byte("same plaintext every time")

	ct1, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct2, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ct1, ct2) {
		t.Fatal("expected different ciphertexts for two encrypts of the same plaintext (IV should differ)")
	}
}

func TestEncryptRejectsBadKeyLength(t *testing.T) {
	_, err := Encrypt([]byte("x"), make([]byte, 16))
	if err != models.ErrCipherBadKeyLength {
		t.Fatalf("expected ErrCipherBadKeyLength, got %v", err)
	}
}

func TestEncryptRejectsEmptyInput(t *testing.T) {
	_, err := Encrypt(nil, key32())
	if err != models.ErrCipherEmpty {
		t.Fatalf("expected ErrCipherEmpty, got %v", err)
	}
}

func TestDecryptRejectsBadPadding(t *testing.T) {
	key := key32()
	ct, err := Encrypt([]byte("valid plaintext block"), key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	// Corrupt the last byte, which is very likely to break the padding.
	ct[len(ct)-1] ^= 0xFF

	if _, err := Decrypt(ct, key); err == nil {
		t.Fatal("expected an error decrypting corrupted ciphertext")
	}
}

func TestDecryptRejectsShortInput(t *testing.T) {
	if _, err := Decrypt(make([]byte, 8), key32()); err != models.ErrCipherPadding {
		t.Fatalf("expected ErrCipherPadding for short ciphertext, got %v", err)
	}
}
