package relay_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/relay"
)

func TestEnvironmentValid(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  relay.Environment
		err  error
	}{
		{"Development", relay.Development, nil},
		{"Production", relay.Production, nil},
		{"Review", relay.Review, nil},
		{"Staging", relay.Staging, nil},
		{"Testing", relay.Testing, nil},
		{"Zero-Value", relay.Environment(""), relay.ErrNotValid},
		{"Lowercase", relay.Environment("production"), relay.ErrNotValid},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.env.Valid(), tc.err)
		})
	}
}

func TestEnvVarOrEnv(t *testing.T) {
	// Arrange
	t.Setenv("TEST_ENVIRONMENT", "staging")

	// Act + Assert
	require.Equal(t, relay.Staging, relay.EnvVarOrEnv("TEST_ENVIRONMENT", relay.Development))
	require.Equal(t, relay.Development, relay.EnvVarOrEnv("TEST_ENVIRONMENT_UNSET", relay.Development))
}

func TestEnvVarOrDuration(t *testing.T) {
	// Arrange
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_DURATION_BAD", "ninety")

	// Act + Assert
	require.Equal(t, 90*time.Second, relay.EnvVarOrDuration("TEST_DURATION", time.Minute))
	require.Equal(t, time.Minute, relay.EnvVarOrDuration("TEST_DURATION_BAD", time.Minute))
}

func TestEnvVarOrInt(t *testing.T) {
	// Arrange
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "forty-two")

	// Act + Assert
	require.Equal(t, 42, relay.EnvVarOrInt("TEST_INT", 7))
	require.Equal(t, 7, relay.EnvVarOrInt("TEST_INT_BAD", 7))
}

func TestEnvVarOrURL(t *testing.T) {
	// Arrange
	t.Setenv("TEST_URL", "https://example.com/app")
	t.Setenv("TEST_URL_BAD", "not a url")

	// Act + Assert
	require.Equal(t, "https://example.com/app", relay.EnvVarOrURL("TEST_URL", "http://localhost:3000").String())
	require.Equal(t, "http://localhost:3000", relay.EnvVarOrURL("TEST_URL_BAD", "http://localhost:3000").String())
}
