package store

import (
	"strconv"

	"github.com/google/uuid"
)

// KV keys for device-local state.
const (
	keyDeviceID = "device_id"
	keySession  = "session"
	keyLastSync = "last_sync_time"
)

// DeviceID returns this device's stable identifier, generating and
// persisting one on first use.
func (s *Store) DeviceID() (string, error) {
	id, err := s.Get(keyDeviceID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.New().String()
	if err := s.Set(keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// SaveSession persists the serialized session.
func (s *Store) SaveSession(raw string) error {
	return s.Set(keySession, raw)
}

// LoadSession returns the serialized session, or "" when logged out.
func (s *Store) LoadSession() (string, error) {
	return s.Get(keySession)
}

// ClearSession removes any persisted session.
func (s *Store) ClearSession() error {
	return s.Delete(keySession)
}

// LastSyncTime returns the epoch-millisecond time of the last
// successful sync, or 0 when the device has never synced.
func (s *Store) LastSyncTime() (int64, error) {
	raw, err := s.Get(keyLastSync)
	if err != nil || raw == "" {
		return 0, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return ms, nil
}

// SetLastSyncTime records the epoch-millisecond time of a successful sync.
func (s *Store) SetLastSyncTime(ms int64) error {
	return s.Set(keyLastSync, strconv.FormatInt(ms, 10))
}
