// Package secretstore keeps the marketplace session (JWT cookie and in-game
// name) in a small Badger KV, optionally encrypted at rest.
package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	keyJWT        = "wfm/jwt"
	keyIngameName = "wfm/ingame_name"
)

// ErrNoSession is returned when no marketplace session has been stored yet.
var ErrNoSession = errors.New("secretstore: no marketplace session stored")

// Session is the authenticated marketplace identity.
type Session struct {
	JWT        string
	IngameName string
}

// Store wraps a Badger DB. Encryption is provided by Badger options
// (value log + key registry), not by this wrapper.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; nil opens without encryption
	ReadOnly      bool
	InMemory      bool // tests only; Path is ignored
}

func Open(opts OpenOptions) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" && !opts.InMemory {
		return nil, errors.New("secretstore: path is required")
	}
	if opts.InMemory {
		path = ""
	}
	bopts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithInMemory(opts.InMemory).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// encrypted workloads need an index cache
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(16 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("secretstore: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetString returns the value for key and whether it exists.
func (s *Store) GetString(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("secretstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return "", false, errors.New("secretstore: key is empty")
	}
	var (
		out   string
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return out, found, nil
}

func (s *Store) SetString(key, val string) error {
	if s == nil || s.db == nil {
		return errors.New("secretstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return errors.New("secretstore: key is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(val))
	})
}

// Session loads the stored marketplace session.
func (s *Store) Session() (Session, error) {
	jwt, ok, err := s.GetString(keyJWT)
	if err != nil {
		return Session{}, err
	}
	if !ok || jwt == "" {
		return Session{}, ErrNoSession
	}
	name, _, err := s.GetString(keyIngameName)
	if err != nil {
		return Session{}, err
	}
	return Session{JWT: jwt, IngameName: name}, nil
}

// SaveSession stores both session fields in one transaction.
func (s *Store) SaveSession(sess Session) error {
	if s == nil || s.db == nil {
		return errors.New("secretstore: not opened")
	}
	if strings.TrimSpace(sess.JWT) == "" {
		return errors.New("secretstore: jwt is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyJWT), []byte(sess.JWT)); err != nil {
			return err
		}
		return txn.Set([]byte(keyIngameName), []byte(sess.IngameName))
	})
}

// ClearSession removes the stored session (logout).
func (s *Store) ClearSession() error {
	if s == nil || s.db == nil {
		return errors.New("secretstore: not opened")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range []string{keyJWT, keyIngameName} {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ParseKey expects 32 bytes, hex (optionally 0x-prefixed) or base64. Empty
// input returns nil.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
	}
	return b, nil
}
