// Package store persists user credentials and dashboard preferences in a
// single JSON file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

var (
	ErrDuplicateUser      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type Config struct {
	Path     string
	Defaults models.Preferences
	// BcryptCost of zero means bcrypt.DefaultCost.
	BcryptCost int
}

// FileStore is the authoritative user store. Every mutation is written to
// disk before the in-memory copy is replaced.
type FileStore struct {
	mu       sync.Mutex
	path     string
	users    map[string]UserRecord
	defaults models.Preferences
	cost     int
	logger   *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// Open loads the credential file. A missing file yields an empty store.
func Open(cfg Config, logger *zap.Logger) (*FileStore, error) {
	defaults := cfg.Defaults.Clone()
	if !defaults.Units.Valid() {
		defaults.Units = models.DefaultUnits
	}

	s := &FileStore{
		path:     cfg.Path,
		users:    make(map[string]UserRecord),
		defaults: defaults,
		cost:     cfg.BcryptCost,
		logger:   logger,
	}

	data, err := os.ReadFile(cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("No credential file found, starting empty", zap.String("path", cfg.Path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var users map[string]UserRecord
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parsing credential file: %w", err)
	}

	legacy := 0
	for name, rec := range users {
		if rec.Kind == Legacy {
			legacy++
			s.users[name] = rec
			continue
		}
		if rec.Preferences.SelectedCities == nil {
			rec.Preferences.SelectedCities = defaults.Clone().SelectedCities
		}
		if !rec.Preferences.Units.Valid() {
			logger.Warn("Replacing invalid stored units",
				zap.String("username", name),
				zap.String("units", string(rec.Preferences.Units)))
			rec.Preferences.Units = defaults.Units
		}
		s.users[name] = rec
	}

	logger.Info("Credential file loaded",
		zap.String("path", cfg.Path),
		zap.Int("users", len(s.users)),
		zap.Int("legacy", legacy))
	return s, nil
}

// Defaults returns the preferences applied to new and upgraded users.
func (s *FileStore) Defaults() models.Preferences {
	return s.defaults.Clone()
}

func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *FileStore) Get(username string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[username]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return rec.clone(), nil
}

// Create registers username with default preferences.
func (s *FileStore) Create(username, password string) (UserRecord, error) {
	s.mu.Lock()
	_, exists := s.users[username]
	s.mu.Unlock()
	if exists {
		return UserRecord{}, ErrDuplicateUser
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return UserRecord{}, fmt.Errorf("hashing password: %w", err)
	}
	rec := StructuredRecord(hash, s.defaults)

	s.mu.Lock()
	defer s.mu.Unlock()
	// re-check, another request may have won while hashing
	if _, exists := s.users[username]; exists {
		return UserRecord{}, ErrDuplicateUser
	}
	if err := s.commit(username, rec); err != nil {
		return UserRecord{}, err
	}
	s.logger.Info("User created", zap.String("username", username))
	return rec.clone(), nil
}

// Verify checks the password and returns the structured record. A legacy
// record is upgraded and persisted on success.
func (s *FileStore) Verify(username, password string) (UserRecord, error) {
	s.mu.Lock()
	rec, ok := s.users[username]
	s.mu.Unlock()

	if !ok {
		// keep timing similar to a real comparison
		CheckPassword(s.dummy(), password)
		return UserRecord{}, ErrInvalidCredentials
	}
	if !CheckPassword(rec.PasswordHash, password) {
		return UserRecord{}, ErrInvalidCredentials
	}
	if rec.Kind == Structured {
		return rec.clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[username]
	if !ok || current.PasswordHash != rec.PasswordHash {
		return UserRecord{}, ErrInvalidCredentials
	}
	if current.Kind == Structured {
		return current.clone(), nil
	}
	upgraded := current.Upgrade(s.defaults)
	if err := s.commit(username, upgraded); err != nil {
		return UserRecord{}, fmt.Errorf("upgrading legacy user: %w", err)
	}
	s.logger.Info("Upgraded legacy user record", zap.String("username", username))
	return upgraded.clone(), nil
}

// SetUnits persists the unit preference.
func (s *FileStore) SetUnits(username string, units models.Units) (models.Preferences, error) {
	if !units.Valid() {
		return models.Preferences{}, fmt.Errorf("%w: %q", models.ErrInvalidUnits, units)
	}
	rec, err := s.mutate(username, func(r *UserRecord) bool {
		if r.Preferences.Units == units {
			return false
		}
		r.Preferences.Units = units
		return true
	})
	return rec.Preferences, err
}

// AddCity appends city unless a city with the same id is already selected.
// The returned bool reports whether the selection changed.
func (s *FileStore) AddCity(username string, city models.City) (models.Preferences, bool, error) {
	changed := false
	rec, err := s.mutate(username, func(r *UserRecord) bool {
		if models.ContainsCity(r.Preferences.SelectedCities, city.ID) {
			return false
		}
		r.Preferences.SelectedCities = append(r.Preferences.SelectedCities, city)
		changed = true
		return true
	})
	return rec.Preferences, changed, err
}

// RemoveCity drops the city with the given id. Removing an unselected city
// is a no-op.
func (s *FileStore) RemoveCity(username string, id int64) (models.Preferences, bool, error) {
	changed := false
	rec, err := s.mutate(username, func(r *UserRecord) bool {
		i := models.IndexOfCity(r.Preferences.SelectedCities, id)
		if i < 0 {
			return false
		}
		cities := r.Preferences.SelectedCities
		r.Preferences.SelectedCities = append(cities[:i:i], cities[i+1:]...)
		changed = true
		return true
	})
	return rec.Preferences, changed, err
}

func (s *FileStore) mutate(username string, fn func(*UserRecord) bool) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[username]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	wasLegacy := rec.Kind == Legacy
	rec = rec.Upgrade(s.defaults).clone()

	if !fn(&rec) && !wasLegacy {
		return rec, nil
	}
	if err := s.commit(username, rec); err != nil {
		return UserRecord{}, err
	}
	return rec.clone(), nil
}

// commit writes the store with username set to rec and then swaps the
// in-memory map. Callers hold s.mu.
func (s *FileStore) commit(username string, rec UserRecord) error {
	next := maps.Clone(s.users)
	next[strings.Clone(username)] = rec.clone()
	if err := s.save(next); err != nil {
		return err
	}
	s.users = next
	return nil
}

// save replaces the credential file through a temp file and rename so a
// failed write never truncates existing users.
func (s *FileStore) save(users map[string]UserRecord) error {
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding credential file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp credential file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp credential file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing credential file: %w", err)
	}
	return nil
}

func (s *FileStore) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := HashPassword("dummy-password-for-timing", s.cost)
		if err != nil {
			s.logger.Error("Failed to build dummy hash", zap.Error(err))
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
