package config

import (
	"maps"
	"slices"
)

// AuthType is the authentication scheme a generated toolset uses.
type AuthType string

// Recognized auth types.
const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "api_key"
	AuthBearer AuthType = "bearer"
	AuthOAuth2 AuthType = "oauth2"
)

// AuthTypes lists the recognized auth types.
var AuthTypes = []AuthType{AuthNone, AuthAPIKey, AuthBearer, AuthOAuth2}

// Valid reports whether a is a recognized auth type.
func (a AuthType) Valid() bool {
	return slices.Contains(AuthTypes, a)
}

// APIConfig is the configuration record for one API of a provider.
type APIConfig struct {
	// Provider and API identify the record; they come from the file layout.
	Provider string `yaml:"-" json:"provider"`
	API      string `yaml:"-" json:"api"`

	// Name is the human-readable API name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// Spec is the spec source: URL, path relative to the config dir,
	// file:// path, or custom://<id>.
	Spec string `yaml:"spec,omitempty" json:"spec,omitempty"`
	// BaseURL is the API base URL; may contain {variable} placeholders.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	// AuthType selects the auth scaffold.
	AuthType AuthType `yaml:"auth_type,omitempty" json:"auth_type,omitempty"`
	// Auth holds auth-specific options such as token_env or token_url.
	Auth map[string]string `yaml:"auth,omitempty" json:"auth,omitempty"`
	// Scopes maps OAuth2 scope to description.
	Scopes map[string]string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	// Headers are static headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	// ServerVariables maps a base URL placeholder to the env var supplying it.
	ServerVariables map[string]string `yaml:"server_variables,omitempty" json:"server_variables,omitempty"`
	// Quirks names extra normalization quirks to apply.
	Quirks []string `yaml:"quirks,omitempty" json:"quirks,omitempty"`
	// IncludeTags keeps only operations carrying one of these tags.
	IncludeTags []string `yaml:"include_tags,omitempty" json:"include_tags,omitempty"`
	// ExcludeOperations drops operations by raw or canonical id.
	ExcludeOperations []string `yaml:"exclude_operations,omitempty" json:"exclude_operations,omitempty"`
	// Templates maps auth type to a template id override.
	Templates map[string]string `yaml:"templates,omitempty" json:"templates,omitempty"`
	// Metadata is free-form and passed through to reports.
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// ToolsetName returns the registry name of the API's toolset.
func (c APIConfig) ToolsetName() string {
	return c.Provider + "_" + c.API
}

// Clone returns a deep copy of c.
func (c APIConfig) Clone() APIConfig {
	out := c
	out.Auth = maps.Clone(c.Auth)
	out.Scopes = maps.Clone(c.Scopes)
	out.Headers = maps.Clone(c.Headers)
	out.ServerVariables = maps.Clone(c.ServerVariables)
	out.Quirks = slices.Clone(c.Quirks)
	out.IncludeTags = slices.Clone(c.IncludeTags)
	out.ExcludeOperations = slices.Clone(c.ExcludeOperations)
	out.Templates = maps.Clone(c.Templates)
	out.Metadata = maps.Clone(c.Metadata)
	return out
}

// ProviderConfig holds provider defaults and the provider's APIs.
type ProviderConfig struct {
	// ID is the provider id; it comes from the directory name.
	ID string `yaml:"-" json:"id"`
	// BaseURL is the default base URL for the provider's APIs.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	// AuthType is the default auth type.
	AuthType AuthType `yaml:"auth_type,omitempty" json:"auth_type,omitempty"`
	// Auth holds default auth options.
	Auth map[string]string `yaml:"auth,omitempty" json:"auth,omitempty"`
	// Quirks are applied to every API of the provider.
	Quirks []string `yaml:"quirks,omitempty" json:"quirks,omitempty"`
	// Templates maps auth type to a template id override.
	Templates map[string]string `yaml:"templates,omitempty" json:"templates,omitempty"`
	// APIs maps api name to record.
	APIs map[string]*APIConfig `yaml:"-" json:"apis,omitempty"`

	// loadErr is set when provider.yaml failed to decode.
	loadErr error
	// apiErrs records API files that failed to decode, by api name.
	apiErrs map[string]error
}
