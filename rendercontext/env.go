package rendercontext

import (
	"sort"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/naming"
	"github.com/erraggy/toolsetgen/spec"
)

// EnvVar is an environment variable a generated toolset reads.
type EnvVar struct {
	// Name is the variable name
	Name string
	// Option is the auth option or server variable it comes from
	Option string
	// Required reports whether NewFromEnv fails without it
	Required bool
}

// requiredEnv lists the credential options NewFromEnv needs per auth type.
var requiredEnv = map[config.AuthType][]string{
	config.AuthAPIKey: {"api_key_env"},
	config.AuthBearer: {"token_env"},
	config.AuthOAuth2: {"access_token_env"},
}

// optionalEnv lists the credential options read when present.
var optionalEnv = map[config.AuthType][]string{
	config.AuthOAuth2: {"client_id_env", "client_secret_env", "refresh_token_env"},
}

// CredentialEnv returns the env var name configured for a credential option
// such as "token_env", or the derived default.
func CredentialEnv(cfg config.APIConfig, option string) string {
	for opt, v := range cfg.Auth {
		if naming.Canonical(opt) == option && v != "" {
			return v
		}
	}
	if suffix, ok := derivedEnv[option]; ok {
		return naming.EnvName(cfg.Provider, cfg.API, suffix)
	}
	if option == "refresh_token_env" {
		return naming.EnvName(cfg.Provider, cfg.API, "refresh_token")
	}
	return ""
}

// ServerVariableEnv returns the env var that supplies base URL placeholder p.
func ServerVariableEnv(cfg config.APIConfig, p string) string {
	if env := cfg.ServerVariables[p]; env != "" {
		return env
	}
	return naming.EnvName(cfg.Provider, cfg.API, p)
}

// EnvVars lists the environment variables the generated toolset for cfg
// reads: credentials first, then base URL placeholders in sorted order. A
// placeholder with a default in cs is optional; cs may be nil.
func EnvVars(cfg config.APIConfig, cs *spec.CanonicalSpec) []EnvVar {
	var out []EnvVar
	for _, opt := range requiredEnv[cfg.AuthType] {
		out = append(out, EnvVar{Name: CredentialEnv(cfg, opt), Option: opt, Required: true})
	}
	for _, opt := range optionalEnv[cfg.AuthType] {
		out = append(out, EnvVar{Name: CredentialEnv(cfg, opt), Option: opt})
	}
	placeholders := config.Placeholders(cfg.BaseURL)
	sort.Strings(placeholders)
	for _, p := range placeholders {
		out = append(out, EnvVar{Name: ServerVariableEnv(cfg, p), Option: p, Required: serverDefault(cs, p) == ""})
	}
	return out
}

func serverDefault(cs *spec.CanonicalSpec, p string) string {
	if cs == nil {
		return ""
	}
	for _, s := range cs.Servers {
		if d, ok := s.Variables[p]; ok {
			return d
		}
	}
	return ""
}
