package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = DesignDefaults{FileKey: DefaultFigmaFileKey, NodeID: DefaultFigmaNodeID}

func TestResolveDesignReference_Defaults(t *testing.T) {
	env := map[string]string{EnvFigmaAccessToken: "figd_secret"}

	ref, ok := ResolveDesignReference(env, testDefaults, zerolog.Nop())

	require.True(t, ok)
	assert.Equal(t, "qh39N0zcMJfRKKkjPnBXKJ", ref.FileKey)
	assert.Equal(t, "109:1005", ref.NodeID)
	assert.Equal(t, "figd_secret", ref.AccessToken)
}

func TestResolveDesignReference_TokenAliasAndNormalization(t *testing.T) {
	env := map[string]string{
		EnvFigmaAccessTokenAlias: "alias-token",
		EnvFigmaFileKey:          "ABC123",
		EnvFigmaNodeID:           "1-5",
	}

	ref, ok := ResolveDesignReference(env, testDefaults, zerolog.Nop())

	require.True(t, ok)
	assert.Equal(t, "alias-token", ref.AccessToken)
	assert.Equal(t, "ABC123", ref.FileKey)
	assert.Equal(t, "1:5", ref.NodeID)
}

func TestResolveDesignReference_MissingTokenWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ref, ok := ResolveDesignReference(map[string]string{}, testDefaults, logger)

	assert.False(t, ok)
	assert.Empty(t, ref.AccessToken)
	assert.Equal(t, "109:1005", ref.NodeID)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), EnvFigmaAccessToken)
}

func TestLoadEnv_ProcessOverridesDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FIGMA_FILE_KEY=fromfile\nDESIGNDIFF_TEST_ONLY=file\n"), 0644))
	t.Setenv("DESIGNDIFF_TEST_ONLY", "process")

	env, err := LoadEnv(path)

	require.NoError(t, err)
	assert.Equal(t, "process", env["DESIGNDIFF_TEST_ONLY"])
	if os.Getenv(EnvFigmaFileKey) == "" {
		assert.Equal(t, "fromfile", env[EnvFigmaFileKey])
	}
}

func TestLoadEnv_MissingDotenvIsIgnored(t *testing.T) {
	env, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.NotNil(t, env)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "figd_12345...wxyz", MaskToken("figd_1234567890abcdefwxyz"))
	assert.Equal(t, "****", MaskToken("short"))
}

func TestDescribeDesignConfig(t *testing.T) {
	env := map[string]string{
		EnvFigmaAccessTokenAlias: "figd_1234567890abcdefwxyz",
		EnvCI:                    "true",
	}

	report := DescribeDesignConfig(env, testDefaults, DefaultBaseURL)

	assert.True(t, report.TokenPresent)
	assert.Equal(t, EnvFigmaAccessTokenAlias, report.TokenSource)
	assert.True(t, report.FileKeyDefault)
	assert.True(t, report.NodeIDDefault)
	assert.True(t, report.CI)
	assert.Equal(t, "https://www.figma.com/design/qh39N0zcMJfRKKkjPnBXKJ/?node-id=109-1005", report.DesignURL)
	assert.NotContains(t, report.MaskedToken, "567890abcdef")
}

func TestIsCI(t *testing.T) {
	assert.False(t, IsCI(map[string]string{}))
	assert.False(t, IsCI(map[string]string{EnvCI: "false"}))
	assert.True(t, IsCI(map[string]string{EnvCI: "1"}))
}
