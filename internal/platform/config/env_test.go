package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSource_StringFallsBackToDefault(t *testing.T) {
	src := NewSource()
	assert.Equal(t, "fallback", src.String("CONFIG_TEST_UNSET_KEY", "fallback"))
}

func TestSource_IntFailsFastOnMalformedValue(t *testing.T) {
	t.Setenv("CONFIG_TEST_INT_KEY", "not-a-number")
	src := NewSource()
	_, err := src.Int("CONFIG_TEST_INT_KEY", 0)
	require.Error(t, err)
}

func TestBootstrap_NoVaultAddrUsesPlainEnvironment(t *testing.T) {
	os.Unsetenv("VAULT_ADDR")
	t.Setenv("CONFIG_TEST_PLAIN_KEY", "plain-value")

	src := Bootstrap(zaptest.NewLogger(t))
	assert.Equal(t, "plain-value", src.String("CONFIG_TEST_PLAIN_KEY", ""))
}

func TestBootstrap_UnreachableVaultFallsBackToEnvironment(t *testing.T) {
	t.Setenv("VAULT_ADDR", "http://127.0.0.1:1")
	t.Setenv("CONFIG_TEST_PLAIN_KEY", "plain-value")

	src := Bootstrap(zaptest.NewLogger(t))
	assert.Equal(t, "plain-value", src.String("CONFIG_TEST_PLAIN_KEY", ""))
}
