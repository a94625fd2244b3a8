package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeyring_RoundTrip(t *testing.T) {
	k, err := NewFileKeyring(t.TempDir(), "test-password")
	require.NoError(t, err)

	_, err = k.Get(TokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, k.Set(TokenKey, "ghp_secret"))
	v, err := k.Get(TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", v)

	require.NoError(t, k.Delete(TokenKey))
	require.NoError(t, k.Delete(TokenKey))
	_, err = k.Get(TokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenSource_EnvOverrides(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set(TokenKey, "stored"))

	ts := NewTokenSource(m)
	ts.env = func(string) string { return "from-env" }

	v, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestTokenSource_MissingIsEmpty(t *testing.T) {
	ts := NewTokenSource(NewMemory())
	ts.env = func(string) string { return "" }

	v, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, ts.Save("ghp_new"))
	v, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "ghp_new", v)

	require.NoError(t, ts.Forget())
	v, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "", v)
}
