package config

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/ecoeat/internal/model"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParse_Defaults(t *testing.T) {
	c, err := parse([]string{"--jwt-key", "k"}, envOf(nil), io.Discard)
	require.NoError(t, err)
	require.Equal(t, ":8443", c.Addr)
	require.Equal(t, ":9090", c.MetricsAddr)
	require.Equal(t, 15*time.Minute, c.AccessTTL)
	require.True(t, c.GuestMode)
	require.Equal(t, model.GuestOwnerID, c.GuestOwner)
	require.Equal(t, "info", c.LogLevel)
	require.False(t, c.TLS())
	require.False(t, c.Dev)
	require.Equal(t, 5, c.LoginMaxFails)
	require.Equal(t, 15*time.Minute, c.LoginWindow)
	require.Equal(t, 15*time.Minute, c.LoginBlock)
}

func TestParse_EnvThenFlags(t *testing.T) {
	env := envOf(map[string]string{
		"ECOEAT_ADDR":            ":7000",
		"ECOEAT_JWT_KEY":         "from-env",
		"ECOEAT_ACCESS_TTL":      "1h",
		"ECOEAT_GUEST_MODE":      "false",
		"ECOEAT_TLS_CERT":        "c.pem",
		"ECOEAT_TLS_KEY":         "k.pem",
		"ECOEAT_LOGIN_MAX_FAILS": "3",
		"ECOEAT_LOGIN_BLOCK":     "1m",
	})
	c, err := parse([]string{"--addr", ":7001"}, env, io.Discard)
	require.NoError(t, err)
	require.Equal(t, ":7001", c.Addr)
	require.Equal(t, "from-env", c.JWTKey)
	require.Equal(t, time.Hour, c.AccessTTL)
	require.False(t, c.GuestMode)
	require.True(t, c.TLS())
	require.Equal(t, 3, c.LoginMaxFails)
	require.Equal(t, time.Minute, c.LoginBlock)
}

func TestParse_Errors(t *testing.T) {
	_, err := parse(nil, envOf(nil), io.Discard)
	require.ErrorIs(t, err, ErrMissingJWTKey)

	_, err = parse([]string{"--jwt-key", "k", "--tls-cert", "c.pem"}, envOf(nil), io.Discard)
	require.Error(t, err)

	_, err = parse([]string{"--jwt-key", "k", "--access-ttl", "0s"}, envOf(nil), io.Discard)
	require.Error(t, err)

	_, err = parse([]string{"--jwt-key", "k"}, envOf(map[string]string{"ECOEAT_DEV": "maybe"}), io.Discard)
	require.Error(t, err)

	_, err = parse([]string{"--jwt-key", "k", "--guest-owner", ""}, envOf(nil), io.Discard)
	require.Error(t, err)

	_, err = parse([]string{"--jwt-key", "k", "--login-max-fails", "-1"}, envOf(nil), io.Discard)
	require.Error(t, err)

	_, err = parse([]string{"--jwt-key", "k", "--login-window", "0s"}, envOf(nil), io.Discard)
	require.Error(t, err)

	c, err := parse([]string{"--jwt-key", "k", "--login-max-fails", "0", "--login-window", "0s"}, envOf(nil), io.Discard)
	require.NoError(t, err, "disabled lockout ignores its durations")
	require.Zero(t, c.LoginMaxFails)

	_, err = parse([]string{"--jwt-key", "k"}, envOf(map[string]string{"ECOEAT_LOGIN_MAX_FAILS": "many"}), io.Discard)
	require.Error(t, err)

	_, err = parse([]string{"--nope"}, envOf(nil), io.Discard)
	require.Error(t, err)
}
