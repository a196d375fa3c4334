package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.True(t, c.Strict())
	require.Equal(t, 5000, c.Database.BusyTimeout)
}

func TestLoadYAML(t *testing.T) {
	doc := `
database:
  path: world.db
  wal: true
  busy_timeout: 250
load:
  mode: lenient
logging:
  level: debug
`
	c, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "world.db", c.Database.Path)
	require.Equal(t, 250, c.Database.BusyTimeout)
	require.False(t, c.Strict())
	require.Equal(t, "debug", c.Logging.Level)
}

func TestLoadJSON(t *testing.T) {
	doc := `{"database": {"path": "world.db"}, "load": {"mode": "strict"}}`
	c, err := LoadJSON(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "world.db", c.Database.Path)
	require.True(t, c.Strict())
}

func TestValidateRejectsBadMode(t *testing.T) {
	c := Default()
	c.Load.Mode = "optimistic"
	require.Error(t, c.Validate())
}

func TestValidateRejectsBadLevel(t *testing.T) {
	c := Default()
	c.Logging.Level = "loud"
	require.Error(t, c.Validate())
}
