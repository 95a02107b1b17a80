package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/imkarma/taskboard/internal/api"
)

// testStore creates a temporary session store for testing.
func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "session.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dbPath
}

func TestOpen_CreatesDatabase(t *testing.T) {
	s, dbPath := testStore(t)
	_, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())
}

func TestSave_PersistsAcrossReopen(t *testing.T) {
	s, dbPath := testStore(t)

	user := &api.User{ID: 7, Email: "ada@example.com", Username: "ada", Role: "admin"}
	require.NoError(t, s.Save(&oauth2.Token{AccessToken: "abc", TokenType: "bearer"}, user))
	require.NoError(t, s.Close())

	reopened, err := Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	tok, ok := reopened.Token()
	require.True(t, ok)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())

	u, ok := reopened.User()
	require.True(t, ok)
	assert.Equal(t, "ada", u.Username)
	assert.True(t, u.IsAdmin())
}

func TestSave_ReplacesPrevious(t *testing.T) {
	s, _ := testStore(t)

	require.NoError(t, s.Save(&oauth2.Token{AccessToken: "one"}, nil))
	require.NoError(t, s.Save(&oauth2.Token{AccessToken: "two"}, nil))

	tok, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "two", tok.AccessToken)
	_, ok = s.User()
	assert.False(t, ok)
}

func TestSave_RejectsEmptyToken(t *testing.T) {
	s, _ := testStore(t)
	assert.Error(t, s.Save(&oauth2.Token{}, nil))
	assert.Error(t, s.Save(nil, nil))
}

func TestSetUser(t *testing.T) {
	s, dbPath := testStore(t)
	require.NoError(t, s.Save(&oauth2.Token{AccessToken: "abc"}, nil))
	require.NoError(t, s.SetUser(api.User{ID: 2, Email: "bo@example.com", Username: "bo", Role: "user"}))
	require.NoError(t, s.Close())

	reopened, err := Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	u, ok := reopened.User()
	require.True(t, ok)
	assert.Equal(t, "bo", u.Username)
}

func TestClear(t *testing.T) {
	s, dbPath := testStore(t)
	require.NoError(t, s.Save(&oauth2.Token{AccessToken: "abc"}, &api.User{Email: "a@b.c"}))

	require.NoError(t, s.Clear())
	assert.False(t, s.LoggedIn())
	require.NoError(t, s.Clear())
	require.NoError(t, s.Close())

	reopened, err := Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	assert.False(t, reopened.LoggedIn())
}
