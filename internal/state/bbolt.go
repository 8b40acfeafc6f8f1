package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/illarion/upm/internal/syncer"
)

// Bucket names
var (
	ConfigBucket = []byte("config")
	SyncBucket   = []byte("sync")
)

// Config keys
var (
	ConfigVersion = []byte("version")
	ConfigCreated = []byte("created")
	ConfigVaultID = []byte("vault_id")
)

const stateVersion = "1"

var ErrNotFound = errors.New("not found")

// State is the BBolt-backed installation state
type State struct {
	db *bolt.DB
}

// Open opens or creates the state database at path
func Open(path string) (*State, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	s := &State{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *State) Close() error {
	return s.db.Close()
}

// Path returns the database file
func (s *State) Path() string {
	return s.db.Path()
}

func (s *State) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, SyncBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte(stateVersion)); err != nil {
			return err
		}
		created, err := time.Now().MarshalBinary()
		if err != nil {
			return err
		}
		return config.Put(ConfigCreated, created)
	})
}

// Created returns when the database was first initialized
func (s *State) Created() (time.Time, error) {
	var created time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigCreated)
		if data == nil {
			return fmt.Errorf("created time %w", ErrNotFound)
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// GetVaultID retrieves the installation id
func (s *State) GetVaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id %w", ErrNotFound)
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves the existing installation id or generates one
func (s *State) GetOrCreateVaultID() (string, error) {
	var vaultID string
	err := s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if data := config.Get(ConfigVaultID); data != nil {
			vaultID = string(data)
			return nil
		}
		vaultID = uuid.NewString()
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get vault ID: %w", err)
	}
	return vaultID, nil
}

// SyncEntry is the stored outcome of the last sync of one store
type SyncEntry struct {
	Path           string    `json:"path"`
	Time           time.Time `json:"time"`
	Outcome        string    `json:"outcome"`
	LocalRevision  int       `json:"localRevision"`
	RemoteRevision int       `json:"remoteRevision"`
	Diverged       bool      `json:"diverged,omitempty"`
}

// syncKey normalizes a store path so relative and absolute spellings share
// one entry
func syncKey(path string) []byte {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return []byte(filepath.Clean(path))
}

// RecordSync stores the outcome of a sync of the store at path
func (s *State) RecordSync(path string, rec syncer.Record) error {
	key := syncKey(path)
	entry := SyncEntry{
		Path:           string(key),
		Time:           rec.Time,
		Outcome:        rec.Outcome.String(),
		LocalRevision:  rec.LocalRevision,
		RemoteRevision: rec.RemoteRevision,
		Diverged:       rec.Diverged,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal sync entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(SyncBucket).Put(key, data)
	})
}

// LastSync returns the last recorded sync of the store at path, or nil when
// it was never synced
func (s *State) LastSync(path string) (*SyncEntry, error) {
	var entry *SyncEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(SyncBucket).Get(syncKey(path))
		if data == nil {
			return nil
		}
		entry = &SyncEntry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sync entry: %w", err)
	}
	return entry, nil
}

// LastSyncTime returns the time of the last sync, zero when never synced
func (s *State) LastSyncTime(path string) (time.Time, error) {
	entry, err := s.LastSync(path)
	if err != nil || entry == nil {
		return time.Time{}, err
	}
	return entry.Time, nil
}

// ForgetSync drops the sync entry of the store at path
func (s *State) ForgetSync(path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(SyncBucket).Delete(syncKey(path))
	})
}

// SyncEntries lists all recorded syncs
func (s *State) SyncEntries() ([]SyncEntry, error) {
	var entries []SyncEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(SyncBucket).ForEach(func(k, v []byte) error {
			var entry SyncEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal entry %s: %w", k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}
