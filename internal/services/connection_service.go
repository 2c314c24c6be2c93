package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ConnectionService seals connections into cookie values
type ConnectionService struct {
	encryptionKey []byte
}

// NewConnectionService uses key when it is 32 bytes long and otherwise generates an
// ephemeral one, so sealed connections do not survive a restart.
func NewConnectionService(key string) (*ConnectionService, error) {
	if len(key) == 32 {
		return &ConnectionService{encryptionKey: []byte(key)}, nil
	}
	newKey := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, newKey); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return &ConnectionService{encryptionKey: newKey}, nil
}

// Seal serializes and encrypts a connection into a string (for the cookie)
func (s *ConnectionService) Seal(conn Connection) (string, error) {
	data, err := json.Marshal(conn)
	if err != nil {
		return "", err
	}

	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Open decodes the cookie value back into a Connection
func (s *ConnectionService) Open(sealed string) (*Connection, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, err
	}

	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("malformed ciphertext")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var conn Connection
	if err := json.Unmarshal(plaintext, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *ConnectionService) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
