package client

import (
	"encoding/json"
	"log/slog"
)

// Storage keys.
const (
	KeyUser    = "user"
	KeyVersion = "version"
)

// StorageVersion marks the layout of stored data. Storage stamped with any
// other version is cleared rather than migrated.
const StorageVersion = "1"

// Storage is durable key/value storage on the client.
type Storage interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	Clear() error
}

// LoadSession reads the persisted session. Missing or unreadable data
// yields an empty session. If the stored version is absent or unknown the
// storage is cleared and stamped with StorageVersion first.
func LoadSession(st Storage, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	version, ok, err := st.GetItem(KeyVersion)
	if err != nil {
		logger.Error("reading storage version", "error", err)
		return &Session{}
	}
	if !ok || version != StorageVersion {
		if err := st.Clear(); err != nil {
			logger.Error("clearing storage", "error", err)
			return &Session{}
		}
		if err := st.SetItem(KeyVersion, StorageVersion); err != nil {
			logger.Error("writing storage version", "error", err)
		}
		if ok {
			logger.Info("storage reset", "from", version, "to", StorageVersion)
		}
		return &Session{}
	}

	raw, ok, err := st.GetItem(KeyUser)
	if err != nil {
		logger.Error("reading session", "error", err)
		return &Session{}
	}
	if !ok {
		return &Session{}
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		logger.Warn("discarding unreadable session", "error", err)
		return &Session{}
	}
	return &s
}

// SyncSession writes State.User to st whenever it changes. A change is a
// different *Session pointer; see State for why that is sufficient. The
// write happens inside the store's change notification. The returned
// function stops syncing.
func SyncSession(s *Store, st Storage, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}

	last := s.GetState().User
	return s.Subscribe(func() {
		cur := s.GetState().User
		if cur == last {
			return
		}
		last = cur

		data, err := json.Marshal(cur)
		if err != nil {
			logger.Error("encoding session", "error", err)
			return
		}
		if err := st.SetItem(KeyUser, string(data)); err != nil {
			logger.Error("saving session", "error", err)
		}
	})
}
