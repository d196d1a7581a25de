package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rotichtonny/TenaRentals/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	cfg := FromConfig(config.DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "tena", Password: "p@ss/word", Name: "tenarentals", SSLMode: "require",
	})

	u, err := url.Parse(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/tenarentals", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", pw)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, 25, cfg.MaxOpenConns)
}
