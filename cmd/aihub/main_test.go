package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aihub-gateway/internal/lib/jwt"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", t.TempDir()+"/missing.env"))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("IDENTITY_JWT_SECRET", "cli_secret")
	t.Setenv("IDENTITY_ISSUER", "https://issuer.example")

	out, err := run(t, "token", "user_1", "--ttl", "10m")
	require.NoError(t, err)

	claims, err := jwt.NewJWTMaker("cli_secret", "https://issuer.example", time.Hour).ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID())
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), claims.ExpiresAt.Time, 2*time.Second)
}

func TestTokenCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		args    []string
		wantErr string
	}{
		{name: "нет идентификатора", secret: "s", args: []string{"token"}, wantErr: "accepts 1 arg"},
		{name: "нет секрета", args: []string{"token", "user_1"}, wantErr: "jwt_secret_key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_PATH", "")
			t.Setenv("IDENTITY_JWT_SECRET", tt.secret)

			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "usage", "token", "events"})
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, err := run(t, "token", "user_1", "--config", "/no/such/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
