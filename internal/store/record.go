package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

// RecordKind tags the shape a user was persisted in.
type RecordKind int

const (
	// Legacy records are a bare password hash string.
	Legacy RecordKind = iota + 1
	// Structured records carry the hash and preferences.
	Structured
)

func (k RecordKind) String() string {
	switch k {
	case Legacy:
		return "legacy"
	case Structured:
		return "structured"
	default:
		return "unknown"
	}
}

// UserRecord is Legacy(hash) | Structured(hash, preferences).
// Preferences are meaningful only for Structured records.
type UserRecord struct {
	Kind         RecordKind
	PasswordHash string
	Preferences  models.Preferences
}

func LegacyRecord(hash string) UserRecord {
	return UserRecord{Kind: Legacy, PasswordHash: hash}
}

func StructuredRecord(hash string, prefs models.Preferences) UserRecord {
	return UserRecord{Kind: Structured, PasswordHash: hash, Preferences: prefs.Clone()}
}

// Upgrade converts a Legacy record to Structured using defaults.
// Structured records are returned unchanged.
func (r UserRecord) Upgrade(defaults models.Preferences) UserRecord {
	if r.Kind == Structured {
		return r
	}
	return StructuredRecord(r.PasswordHash, defaults)
}

func (r UserRecord) clone() UserRecord {
	r.Preferences = r.Preferences.Clone()
	return r
}

type structuredJSON struct {
	PasswordHash   string        `json:"password_hash"`
	SelectedCities []models.City `json:"selected_cities"`
	Units          models.Units  `json:"units"`
}

func (r UserRecord) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case Legacy:
		return json.Marshal(r.PasswordHash)
	case Structured:
		cities := r.Preferences.SelectedCities
		if cities == nil {
			cities = []models.City{}
		}
		return json.Marshal(structuredJSON{
			PasswordHash:   r.PasswordHash,
			SelectedCities: cities,
			Units:          r.Preferences.Units,
		})
	default:
		return nil, fmt.Errorf("marshal user record: unknown kind %d", r.Kind)
	}
}

// UnmarshalJSON resolves the record shape. A structured record with no
// selected_cities key keeps a nil slice so the caller can apply defaults.
func (r *UserRecord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("unmarshal user record: empty value")
	}

	switch data[0] {
	case '"':
		var hash string
		if err := json.Unmarshal(data, &hash); err != nil {
			return fmt.Errorf("unmarshal legacy user record: %w", err)
		}
		*r = LegacyRecord(hash)
		return nil
	case '{':
		var s structuredJSON
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal structured user record: %w", err)
		}
		if s.PasswordHash == "" {
			return errors.New("unmarshal structured user record: missing password_hash")
		}
		*r = UserRecord{
			Kind:         Structured,
			PasswordHash: s.PasswordHash,
			Preferences:  models.Preferences{SelectedCities: s.SelectedCities, Units: s.Units},
		}
		return nil
	default:
		return fmt.Errorf("unmarshal user record: unsupported JSON value %q", string(data[:1]))
	}
}
