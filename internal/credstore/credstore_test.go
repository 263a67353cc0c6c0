package credstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LaurelinChat/internal/session"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "credentials.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStore_SaveLoadClear(t *testing.T) {
	s, _ := openTestStore(t)

	_, ok := s.Load()
	assert.False(t, ok, "empty store should have no credential")

	user := &session.User{UserID: "u1", Email: "ada@example.com", Preferences: map[string]any{"theme": "dark"}}
	require.NoError(t, s.Save("tok-1", user))

	cred, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, "tok-1", cred.Token)
	assert.Equal(t, "u1", cred.User.UserID)
	assert.Equal(t, "dark", cred.User.Preferences["theme"])

	require.NoError(t, s.Clear())
	_, ok = s.Load()
	assert.False(t, ok)

	// Clearing twice is fine.
	require.NoError(t, s.Clear())
}

func TestStore_SurvivesReopen(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.Save("tok-2", &session.User{UserID: "u2"}))
	require.NoError(t, s.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	cred, ok := reopened.Load()
	require.True(t, ok)
	assert.Equal(t, "tok-2", cred.Token)
}

func TestStore_MalformedDataIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		rows map[string]string
	}{
		{"corrupt user json", map[string]string{keyToken: "tok", keyUser: "{not json"}},
		{"missing user", map[string]string{keyToken: "tok"}},
		{"missing token", map[string]string{keyUser: `{"user_id":"u"}`}},
		{"empty token", map[string]string{keyToken: "", keyUser: `{"user_id":"u"}`}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := openTestStore(t)
			for k, v := range tc.rows {
				_, err := s.db.Exec("INSERT INTO local_storage (key, value) VALUES (?, ?)", k, v)
				require.NoError(t, err)
			}
			_, ok := s.Load()
			assert.False(t, ok)
		})
	}
}

func TestStore_SaveRequiresTokenAndUser(t *testing.T) {
	s, _ := openTestStore(t)
	assert.Error(t, s.Save("", &session.User{UserID: "u"}))
	assert.Error(t, s.Save("tok", nil))
}
