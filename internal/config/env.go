package config

import (
	"errors"
	"os"
	"strings"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// ErrConfigurationMissing signals that the design reference cannot be used for
// remote fetches. It is never fatal: the suite degrades to checks that need no
// Figma baseline.
var ErrConfigurationMissing = errors.New("figma access token is not configured")

// DesignDefaults are the values used when the environment does not name a file or node
type DesignDefaults struct {
	FileKey string
	NodeID  string
}

// DesignDefaultsFrom takes the defaults from the figma section of the config file
func DesignDefaultsFrom(cfg FigmaConfig) DesignDefaults {
	d := DesignDefaults{FileKey: cfg.DefaultFileKey, NodeID: cfg.DefaultNodeID}
	if d.FileKey == "" {
		d.FileKey = DefaultFigmaFileKey
	}
	if d.NodeID == "" {
		d.NodeID = DefaultFigmaNodeID
	}
	return d
}

// LoadEnv builds the environment map: values from the optional dotenv file,
// overridden by the process environment. A missing dotenv file is not an error.
func LoadEnv(dotenvPath string) (map[string]string, error) {
	env := make(map[string]string)

	if dotenvPath != "" {
		values, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, common.WrapError(err, "failed to read env file "+dotenvPath)
		}
		for k, v := range values {
			env[k] = v
		}
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env, nil
}

// IsCI reports whether the environment marks a CI run
func IsCI(env map[string]string) bool {
	v := strings.TrimSpace(env[EnvCI])
	return v != "" && !strings.EqualFold(v, "false") && v != "0"
}

// ResolveDesignReference reads the token, file key and node id from env.
// The node id is normalized to the colon form here and nowhere else.
// When no token is configured it returns ok=false and logs a warning.
func ResolveDesignReference(env map[string]string, defaults DesignDefaults, logger zerolog.Logger) (models.DesignReference, bool) {
	ref := models.DesignReference{
		FileKey:     firstNonEmpty(env[EnvFigmaFileKey], defaults.FileKey, DefaultFigmaFileKey),
		NodeID:      models.CanonicalNodeID(firstNonEmpty(env[EnvFigmaNodeID], defaults.NodeID, DefaultFigmaNodeID)),
		AccessToken: strings.TrimSpace(firstNonEmpty(env[EnvFigmaAccessToken], env[EnvFigmaAccessTokenAlias])),
	}

	if ref.AccessToken == "" {
		logger.Warn().
			Str("file_key", ref.FileKey).
			Str("node_id", ref.NodeID).
			Msgf("%s is not set, skipping Figma baseline fetch. Visual comparisons against the design will be inconclusive.", EnvFigmaAccessToken)
		return ref, false
	}
	return ref, true
}

// DesignConfigReport is a printable view of the resolved design configuration
type DesignConfigReport struct {
	TokenPresent   bool   `json:"token_present"`
	MaskedToken    string `json:"masked_token,omitempty"`
	TokenSource    string `json:"token_source,omitempty"`
	FileKey        string `json:"file_key"`
	FileKeyDefault bool   `json:"file_key_default"`
	NodeID         string `json:"node_id"`
	NodeIDDefault  bool   `json:"node_id_default"`
	DesignURL      string `json:"design_url"`
	BaseURL        string `json:"base_url"`
	CI             bool   `json:"ci"`
}

// DescribeDesignConfig reports what the resolver would use, without contacting the API
func DescribeDesignConfig(env map[string]string, defaults DesignDefaults, baseURL string) DesignConfigReport {
	ref, ok := ResolveDesignReference(env, defaults, zerolog.Nop())

	report := DesignConfigReport{
		TokenPresent:   ok,
		FileKey:        ref.FileKey,
		FileKeyDefault: strings.TrimSpace(env[EnvFigmaFileKey]) == "",
		NodeID:         ref.NodeID,
		NodeIDDefault:  strings.TrimSpace(env[EnvFigmaNodeID]) == "",
		DesignURL:      ref.DesignURL(),
		BaseURL:        baseURL,
		CI:             IsCI(env),
	}
	if ok {
		report.MaskedToken = MaskToken(ref.AccessToken)
		report.TokenSource = EnvFigmaAccessToken
		if strings.TrimSpace(env[EnvFigmaAccessToken]) == "" {
			report.TokenSource = EnvFigmaAccessTokenAlias
		}
	}
	return report
}

// MaskToken keeps the first 10 and last 4 characters of a secret
func MaskToken(token string) string {
	if len(token) <= 14 {
		return "****"
	}
	return token[:10] + "..." + token[len(token)-4:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
