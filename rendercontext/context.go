// Package rendercontext builds the flat variable map a template renders.
//
// [Builder.Build] merges a resolved [config.APIConfig] (provider defaults are
// already folded in by the store) with a [spec.CanonicalSpec]. Operation ids
// become method names through the reversible display form of
// internal/naming, and two operations that would share a method name fail
// the build. [Check] enforces a template's declared required variables: a
// key that is missing, nil, or the empty string is absent.
package rendercontext

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/erraggy/toolsetgen"
	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/naming"
	"github.com/erraggy/toolsetgen/spec"
	"github.com/erraggy/toolsetgen/tserrors"
)

// Context is the variable map handed to a template.
type Context map[string]any

// Context keys.
const (
	KeyGeneratorVersion = "generator_version"
	KeyToolsetName      = "toolset_name"
	KeyDisplayName      = "display_name"
	KeyPackageName      = "package_name"
	KeyTypeName         = "type_name"
	KeyProvider         = "provider"
	KeyAPI              = "api"
	KeyBaseURL          = "base_url"
	KeySpecSource       = "spec_source"
	KeySpecTitle        = "spec_title"
	KeySpecVersion      = "spec_version"
	KeySpecServerURL    = "spec_server_url"
	KeyAuthType         = "auth_type"
	KeyOperations       = "operations"
	KeyHeaders          = "headers"
	KeyServerVariables  = "server_variables"
	KeyScopes           = "scopes"
	KeyModulePath       = "module_path"
	KeyToolsets         = "toolsets"

	// AuthPrefix prefixes every auth option key: auth.token_url becomes auth_token_url.
	AuthPrefix = "auth_"
)

// Credential env var options that get a derived default when not configured.
var derivedEnv = map[string]string{
	"token_env":         "token",
	"api_key_env":       "api_key",
	"client_id_env":     "client_id",
	"client_secret_env": "client_secret",
	"access_token_env":  "access_token",
}

// reservedMethods are method names the generated toolset type already defines.
var reservedMethods = map[string]bool{"Register": true, "Tools": true}

// Param is one operation input in template form.
type Param struct {
	// Name is the wire name
	Name string
	// Arg is the tool argument name, unique within the operation
	Arg string
	// In is path, query, header or cookie
	In          string
	Required    bool
	Type        string
	Format      string
	Description string
	Enum        []string
}

// Operation is one operation in template form.
type Operation struct {
	// ID is the canonical operation id, also the tool name suffix
	ID string
	// MethodName is the display form of ID
	MethodName  string
	Method      string
	Path        string
	Summary     string
	Description string
	Deprecated  bool
	Params      []Param
	// HasBody reports whether the operation takes a JSON body under BodyArg
	HasBody      bool
	BodyArg      string
	BodyRequired bool
	BodyType     string
	// InputSchema is the JSON schema of the tool arguments
	InputSchema string
}

// KV is an ordered key-value pair.
type KV struct {
	Key   string
	Value string
}

// ServerVariable is a base URL placeholder supplied at runtime.
type ServerVariable struct {
	// Name is the placeholder name
	Name string
	// Env is the environment variable that supplies it
	Env string
	// Default is the spec's default value, if any
	Default string
}

// Builder builds render contexts.
type Builder struct {
	generatorVersion string
}

// Option configures a Builder.
type Option func(*Builder)

// WithGeneratorVersion overrides the generator version recorded in output.
func WithGeneratorVersion(v string) Option {
	return func(b *Builder) {
		b.generatorVersion = v
	}
}

// New returns a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{generatorVersion: toolsetgen.Version()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GeneratorVersion returns the version recorded in generated output.
func (b *Builder) GeneratorVersion() string {
	return b.generatorVersion
}

// Build merges cfg and cs into a Context.
func (b *Builder) Build(cfg config.APIConfig, cs *spec.CanonicalSpec) (Context, error) {
	if cs == nil {
		cs = &spec.CanonicalSpec{}
	}
	name := cfg.ToolsetName()
	ctx := Context{
		KeyGeneratorVersion: b.generatorVersion,
		KeyToolsetName:      name,
		KeyDisplayName:      cfg.Name,
		KeyPackageName:      naming.PackageName(cfg.Provider, cfg.API),
		KeyTypeName:         naming.Exported(name),
		KeyProvider:         cfg.Provider,
		KeyAPI:              cfg.API,
		KeyBaseURL:          cfg.BaseURL,
		KeySpecSource:       cfg.Spec,
		KeySpecTitle:        cs.Title,
		KeySpecVersion:      cs.Version,
		KeySpecServerURL:    cs.ServerURL(),
		KeyAuthType:         string(cfg.AuthType),
		KeyHeaders:          sortedKV(cfg.Headers),
		KeyScopes:           sortedKeys(cfg.Scopes),
	}
	if ctx[KeyDisplayName] == "" {
		ctx[KeyDisplayName] = naming.Title(cfg.Provider) + " " + naming.Title(cfg.API)
	}

	for opt, suffix := range derivedEnv {
		ctx[AuthPrefix+opt] = naming.EnvName(cfg.Provider, cfg.API, suffix)
	}
	for opt, v := range cfg.Auth {
		ctx[AuthPrefix+naming.Canonical(opt)] = v
	}

	vars := make([]ServerVariable, 0, len(cfg.ServerVariables))
	for _, p := range config.Placeholders(cfg.BaseURL) {
		vars = append(vars, ServerVariable{Name: p, Env: ServerVariableEnv(cfg, p), Default: serverDefault(cs, p)})
	}
	ctx[KeyServerVariables] = vars

	ops, err := operations(cs)
	if err != nil {
		return nil, err
	}
	ctx[KeyOperations] = ops
	return ctx, nil
}

// BuildFor builds a Context and checks it against a template's required variables.
func (b *Builder) BuildFor(cfg config.APIConfig, cs *spec.CanonicalSpec, templateID string, required []string) (Context, error) {
	ctx, err := b.Build(cfg, cs)
	if err != nil {
		var ce *tserrors.ContextError
		if errors.As(err, &ce) {
			ce.Template = templateID
		}
		return nil, err
	}
	if err := Check(ctx, templateID, required); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Missing returns the required keys absent from ctx, sorted.
func Missing(ctx Context, required []string) []string {
	var missing []string
	for _, key := range required {
		if absent(ctx[key]) {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Check fails with a ContextError when a required key is absent.
func Check(ctx Context, templateID string, required []string) error {
	if missing := Missing(ctx, required); len(missing) > 0 {
		return &tserrors.ContextError{Template: templateID, Missing: missing}
	}
	return nil
}

func absent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

func operations(cs *spec.CanonicalSpec) ([]Operation, error) {
	out := make([]Operation, 0, len(cs.Operations))
	owner := map[string]string{}
	for _, op := range cs.Operations {
		method := naming.Display(op.ID)
		if method == "" {
			return nil, &tserrors.ContextError{Message: fmt.Sprintf("operation %s %s has no usable id", op.Method, op.Path)}
		}
		if reservedMethods[method] {
			return nil, &tserrors.ContextError{Message: fmt.Sprintf("operation %q maps to reserved method name %s", op.ID, method)}
		}
		if prev, ok := owner[method]; ok {
			return nil, &tserrors.ContextError{Message: fmt.Sprintf("operations %q and %q share method name %s", prev, op.ID, method)}
		}
		owner[method] = op.ID

		entry := Operation{
			ID:          op.ID,
			MethodName:  method,
			Method:      op.Method,
			Path:        op.Path,
			Summary:     op.Summary,
			Description: op.Description,
			Deprecated:  op.Deprecated,
			Params:      params(op.Parameters),
		}
		if op.Body != nil {
			entry.HasBody = true
			entry.BodyArg = bodyArg(entry.Params)
			entry.BodyRequired = op.Body.Required
			entry.BodyType = op.Body.Type
		}
		schema, err := inputSchema(entry, op.Body)
		if err != nil {
			return nil, &tserrors.ContextError{Message: fmt.Sprintf("input schema for %q: %v", op.ID, err)}
		}
		entry.InputSchema = schema
		out = append(out, entry)
	}
	return out, nil
}

func params(in []spec.Parameter) []Param {
	counts := map[string]int{}
	for _, p := range in {
		counts[p.Name]++
	}
	out := make([]Param, 0, len(in))
	for _, p := range in {
		arg := p.Name
		if counts[p.Name] > 1 && p.In != spec.InPath {
			arg = p.Name + "_" + p.In
		}
		out = append(out, Param{
			Name:        p.Name,
			Arg:         arg,
			In:          p.In,
			Required:    p.Required,
			Type:        p.Type,
			Format:      p.Format,
			Description: p.Description,
			Enum:        p.Enum,
		})
	}
	return out
}

func bodyArg(ps []Param) string {
	taken := map[string]bool{}
	for _, p := range ps {
		taken[p.Arg] = true
	}
	for _, candidate := range []string{"body", "request_body"} {
		if !taken[candidate] {
			return candidate
		}
	}
	for n := 2; ; n++ {
		if c := fmt.Sprintf("request_body%d", n); !taken[c] {
			return c
		}
	}
}

// inputSchema renders the tool argument schema. encoding/json sorts map
// keys, so the output is stable.
func inputSchema(op Operation, body *spec.Body) (string, error) {
	properties := map[string]any{}
	required := []string{}
	for _, p := range op.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Format != "" {
			prop["format"] = p.Format
		}
		if len(p.Enum) > 0 && p.Type == "string" {
			prop["enum"] = p.Enum
		}
		properties[p.Arg] = prop
		if p.Required {
			required = append(required, p.Arg)
		}
	}
	if op.HasBody {
		prop := map[string]any{"type": op.BodyType}
		desc := "JSON request body"
		if body.Description != "" {
			desc = body.Description
		}
		prop["description"] = desc
		properties[op.BodyArg] = prop
		if op.BodyRequired {
			required = append(required, op.BodyArg)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sortedKV(m map[string]string) []KV {
	out := make([]KV, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, KV{Key: k, Value: m[k]})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegistryEntry is one toolset listed in the registry.
type RegistryEntry struct {
	// Name is the toolset name
	Name string
	// Package is the Go package name
	Package string
	// ImportPath is the full import path of the package
	ImportPath string
	// DisplayName is the human-readable name
	DisplayName string
	// Operations is the number of generated tools
	Operations int
}

// Registry builds the context for the registry template.
func (b *Builder) Registry(modulePath string, entries []RegistryEntry) Context {
	return Context{
		KeyGeneratorVersion: b.generatorVersion,
		KeyModulePath:       strings.TrimSuffix(modulePath, "/"),
		KeyToolsets:         append(make([]RegistryEntry, 0, len(entries)), entries...),
	}
}
