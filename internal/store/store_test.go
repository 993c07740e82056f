package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

var (
	london = models.City{ID: 1, Name: "London", Lat: 51.5, Lon: -0.12, TZ: "Europe/London"}
	paris  = models.City{ID: 2, Name: "Paris", Lat: 48.8, Lon: 2.35, TZ: "Europe/Paris"}
	tokyo  = models.City{ID: 3, Name: "Tokyo", Lat: 35.6, Lon: 139.7, TZ: "Asia/Tokyo"}
)

func defaults() models.Preferences {
	return models.Preferences{SelectedCities: []models.City{london, paris}, Units: models.Celsius}
}

func openStore(t *testing.T, path string) *FileStore {
	t.Helper()
	s, err := Open(Config{Path: path, Defaults: defaults(), BcryptCost: bcrypt.MinCost}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func readFile(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestCreateThenVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := openStore(t, path)

	rec, err := s.Create("bob", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, Structured, rec.Kind)
	assert.Equal(t, defaults(), rec.Preferences)
	assert.NotContains(t, rec.PasswordHash, "s3cret!")

	got, err := s.Verify("bob", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, rec.PasswordHash, got.PasswordHash)

	_, err = s.Verify("bob", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Verify("nobody", "s3cret!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// persisted and reloadable
	reopened := openStore(t, path)
	_, err = reopened.Verify("bob", "s3cret!")
	assert.NoError(t, err)
}

func TestCreateDuplicate(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "users.json"))

	_, err := s.Create("bob", "password1")
	require.NoError(t, err)
	_, err = s.Create("bob", "password2")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = s.Verify("bob", "password1")
	assert.NoError(t, err)
}

func TestCreateKeepsOwnCopyOfUsername(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "users.json"))

	// a request buffer that the server reuses for the next request
	buf := []byte("alice")
	_, err := s.Create(unsafe.String(&buf[0], len(buf)), "password1")
	require.NoError(t, err)
	copy(buf, "bobby")

	_, err = s.Get("alice")
	require.NoError(t, err)
	_, err = s.Get("bobby")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = s.Create("bobby", "password2")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestLegacyUpgradeOnLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	hash, err := bcrypt.GenerateFromPassword([]byte("wonderland"), bcrypt.MinCost)
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]string{"alice": string(hash)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	s := openStore(t, path)
	before, err := s.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, Legacy, before.Kind)

	_, err = s.Verify("alice", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "\""+string(hash)+"\"", string(readFile(t, path)["alice"]), "failed login must not upgrade")

	rec, err := s.Verify("alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, Structured, rec.Kind)
	assert.Equal(t, string(hash), rec.PasswordHash)
	assert.Equal(t, defaults(), rec.Preferences)

	var persisted structuredJSON
	require.NoError(t, json.Unmarshal(readFile(t, path)["alice"], &persisted))
	assert.Equal(t, string(hash), persisted.PasswordHash)
	assert.Equal(t, models.Celsius, persisted.Units)
	assert.Equal(t, defaults().SelectedCities, persisted.SelectedCities)
}

func TestLegacyWerkzeugHash(t *testing.T) {
	salt := "abcdefgh12345678"
	key := pbkdf2.Key([]byte("hunter22"), []byte(salt), 1000, sha256.Size, sha256.New)
	hash := "pbkdf2:sha256:1000$" + salt + "$" + hex.EncodeToString(key)

	path := filepath.Join(t.TempDir(), "users.json")
	raw, err := json.Marshal(map[string]string{"carol": hash})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	s := openStore(t, path)
	rec, err := s.Verify("carol", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, hash, rec.PasswordHash)

	_, err = s.Verify("carol", "hunter23")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStructuredRecordDefaultsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	hash, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)
	content := `{"dave": {"password_hash": "` + string(hash) + `", "units": "kelvin"},
	             "erin": {"password_hash": "` + string(hash) + `", "selected_cities": [], "units": "fahrenheit"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := openStore(t, path)
	dave, err := s.Get("dave")
	require.NoError(t, err)
	assert.Equal(t, defaults(), dave.Preferences)

	erin, err := s.Get("erin")
	require.NoError(t, err)
	assert.Empty(t, erin.Preferences.SelectedCities)
	assert.Equal(t, models.Fahrenheit, erin.Preferences.Units)
}

func TestSetUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := openStore(t, path)
	_, err := s.Create("bob", "password1")
	require.NoError(t, err)

	prefs, err := s.SetUnits("bob", models.Fahrenheit)
	require.NoError(t, err)
	assert.Equal(t, models.Fahrenheit, prefs.Units)

	_, err = s.SetUnits("bob", models.Units("kelvin"))
	assert.ErrorIs(t, err, models.ErrInvalidUnits)

	_, err = s.SetUnits("ghost", models.Celsius)
	assert.ErrorIs(t, err, ErrUserNotFound)

	rec, err := openStore(t, path).Get("bob")
	require.NoError(t, err)
	assert.Equal(t, models.Fahrenheit, rec.Preferences.Units)
}

func TestAddAndRemoveCityIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := openStore(t, path)
	_, err := s.Create("bob", "password1")
	require.NoError(t, err)

	prefs, changed, err := s.AddCity("bob", tokyo)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []models.City{london, paris, tokyo}, prefs.SelectedCities)

	prefs, changed, err = s.AddCity("bob", tokyo)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, prefs.SelectedCities, 3)

	prefs, changed, err = s.RemoveCity("bob", paris.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []models.City{london, tokyo}, prefs.SelectedCities)

	prefs, changed, err = s.RemoveCity("bob", 999)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []models.City{london, tokyo}, prefs.SelectedCities)

	rec, err := openStore(t, path).Get("bob")
	require.NoError(t, err)
	assert.Equal(t, []models.City{london, tokyo}, rec.Preferences.SelectedCities)
}

func TestDefaultsNotAliased(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "users.json"))
	_, err := s.Create("a", "password1")
	require.NoError(t, err)
	_, err = s.Create("b", "password1")
	require.NoError(t, err)

	_, _, err = s.RemoveCity("a", london.ID)
	require.NoError(t, err)

	b, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, defaults().SelectedCities, b.Preferences.SelectedCities)
	assert.Equal(t, defaults().SelectedCities, s.Defaults().SelectedCities)
}

func TestFailedSaveKeepsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	s := openStore(t, path)
	_, err := s.Create("bob", "password1")
	require.NoError(t, err)

	// a directory at the target path makes the rename fail
	s.path = filepath.Join(dir, "blocked")
	require.NoError(t, os.Mkdir(s.path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.path, "keep"), nil, 0o600))

	_, err = s.SetUnits("bob", models.Fahrenheit)
	require.Error(t, err)

	rec, err := s.Get("bob")
	require.NoError(t, err)
	assert.Equal(t, models.Celsius, rec.Preferences.Units)
}

func TestConcurrentMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := openStore(t, path)
	_, err := s.Create("bob", "password1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := int64(100); i < 120; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _, err := s.AddCity("bob", models.City{ID: id, Name: "c", TZ: "UTC"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, err := openStore(t, path).Get("bob")
	require.NoError(t, err)
	assert.Len(t, rec.Preferences.SelectedCities, 22)
}
