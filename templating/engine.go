// Package templating renders toolset source from embedded Go templates.
//
// Every template declares the context variables it needs in a leading
// comment:
//
//	{{/* requires: toolset_name, package_name, auth_token_env */}}
//
// [Engine.Render] refuses a context that lacks any of them, executes the
// template with missingkey=error and formats the result with
// golang.org/x/tools/imports. Output depends only on the template id and the
// context.
//
// Files whose name starts with an underscore hold shared {{define}} blocks
// and are not selectable.
package templating

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/naming"
	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/tserrors"
)

//go:embed templates/*.tmpl
var builtinFS embed.FS

// Built-in template ids.
const (
	TemplateNone             = "none"
	TemplateAPIKey           = "api_key"
	TemplateBearer           = "bearer"
	TemplateOAuth2           = "oauth2"
	TemplateAtlassianOAuth2  = "atlassian_oauth2"
	TemplateSalesforceOAuth2 = "salesforce_oauth2"
	TemplateRegistry         = "registry"
)

// AnyProvider matches every provider in an override.
const AnyProvider = "*"

var requiresPattern = regexp.MustCompile(`^\s*\{\{-?\s*/\*\s*requires:([^*]*)\*/\s*-?\}\}`)

// templateFuncs are available to every template.
var templateFuncs = template.FuncMap{
	"quote":     strconv.Quote,
	"join":      strings.Join,
	"upper":     strings.ToUpper,
	"lower":     strings.ToLower,
	"cleanDesc": cleanDescription,
	"exported":  naming.Exported,
}

type overrideKey struct {
	authType string
	provider string
}

// Engine selects and renders templates. It is safe for concurrent use once
// built.
type Engine struct {
	root      *template.Template
	required  map[string][]string
	blocks    map[string]string
	overrides map[overrideKey]string
	logger    logging.Logger
	dirs      []string
}

// Option configures an Engine.
type Option func(*Engine) error

// WithOverride routes (authType, provider) to templateID. Use AnyProvider to
// match every provider of the auth type.
func WithOverride(authType config.AuthType, provider, templateID string) Option {
	return func(e *Engine) error {
		if templateID == "" {
			return fmt.Errorf("templating: empty template id for override %s/%s", authType, provider)
		}
		if provider == "" {
			provider = AnyProvider
		}
		e.overrides[overrideKey{string(authType), provider}] = templateID
		return nil
	}
}

// WithTemplateDir loads *.tmpl files from dir after the built-in templates.
// A file named like a built-in template replaces it.
func WithTemplateDir(dir string) Option {
	return func(e *Engine) error {
		e.dirs = append(e.dirs, dir)
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) error {
		e.logger = logging.OrNop(l)
		return nil
	}
}

// New returns an Engine with the built-in templates and overrides.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		root:     template.New("").Funcs(templateFuncs).Option("missingkey=error"),
		required: map[string][]string{},
		blocks:   map[string]string{},
		overrides: map[overrideKey]string{
			{string(config.AuthOAuth2), "atlassian"}:  TemplateAtlassianOAuth2,
			{string(config.AuthOAuth2), "salesforce"}: TemplateSalesforceOAuth2,
		},
		logger: logging.NopLogger{},
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if err := e.load(builtinFS, "templates"); err != nil {
		return nil, err
	}
	for _, dir := range e.dirs {
		if err := e.load(os.DirFS(dir), "."); err != nil {
			return nil, err
		}
	}
	for key, id := range e.overrides {
		if _, ok := e.required[id]; !ok {
			return nil, &tserrors.TemplateError{
				TemplateID: id, NotFound: true,
				Message: fmt.Sprintf("override for %s/%s", key.authType, key.provider),
			}
		}
	}
	return e, nil
}

func (e *Engine) load(fsys fs.FS, dir string) error {
	names, err := fs.Glob(fsys, path.Join(dir, "*.tmpl"))
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("templating: read %s: %w", name, err)
		}
		id := strings.TrimSuffix(path.Base(name), ".tmpl")
		partial := strings.HasPrefix(id, "_")
		if err := e.checkNames(id, partial, string(data)); err != nil {
			return err
		}
		if !partial {
			m := requiresPattern.FindSubmatch(data)
			if m == nil {
				return fmt.Errorf("templating: %s has no requires header", name)
			}
			e.required[id] = parseRequires(string(m[1]))
		}
		if _, err := e.root.New(id).Parse(string(data)); err != nil {
			return &tserrors.TemplateError{TemplateID: id, Message: "parse", Cause: err}
		}
		e.logger.Debug("template loaded", "id", id, "partial", partial)
	}
	return nil
}

// checkNames rejects a file whose {{define}} blocks would replace a
// selectable template, and a selectable template named like an existing
// block. Either way one template would silently shadow the other.
func (e *Engine) checkNames(id string, partial bool, src string) error {
	scratch, err := template.New(id).Funcs(templateFuncs).Parse(src)
	if err != nil {
		return &tserrors.TemplateError{TemplateID: id, Message: "parse", Cause: err}
	}
	if owner, ok := e.blocks[id]; ok && !partial {
		return &tserrors.TemplateError{TemplateID: id, Message: fmt.Sprintf("name already defined by %s", owner)}
	}
	var defined []string
	for _, t := range scratch.Templates() {
		if n := t.Name(); n != id {
			if _, selectable := e.required[n]; selectable || n == TemplateRegistry {
				return &tserrors.TemplateError{TemplateID: id, Message: fmt.Sprintf("block %q shadows a selectable template", n)}
			}
			defined = append(defined, n)
		}
	}
	for _, n := range defined {
		e.blocks[n] = id
	}
	return nil
}

func parseRequires(list string) []string {
	var out []string
	for _, field := range strings.Split(list, ",") {
		if f := strings.TrimSpace(field); f != "" {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Templates returns the selectable template ids, sorted.
func (e *Engine) Templates() []string {
	ids := make([]string, 0, len(e.required))
	for id := range e.required {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Select returns the template for authType and provider: an override for
// the provider, then an override for any provider, then the template named
// after the auth type.
func (e *Engine) Select(authType config.AuthType, provider string) (string, error) {
	for _, key := range []overrideKey{{string(authType), provider}, {string(authType), AnyProvider}} {
		if id, ok := e.overrides[key]; ok {
			return id, nil
		}
	}
	if _, ok := e.required[string(authType)]; ok && authType != TemplateRegistry {
		return string(authType), nil
	}
	return "", &tserrors.TemplateError{AuthType: string(authType), Provider: provider, NotFound: true}
}

// Required returns the variables template id declares.
func (e *Engine) Required(id string) ([]string, error) {
	req, ok := e.required[id]
	if !ok {
		return nil, &tserrors.TemplateError{TemplateID: id, NotFound: true}
	}
	return append([]string(nil), req...), nil
}

// Render executes template id against ctx and returns formatted source.
func (e *Engine) Render(id string, ctx rendercontext.Context) ([]byte, error) {
	req, err := e.Required(id)
	if err != nil {
		return nil, err
	}
	if err := rendercontext.Check(ctx, id, req); err != nil {
		return nil, err
	}
	opCount := 0
	if ops, ok := ctx[rendercontext.KeyOperations].([]rendercontext.Operation); ok {
		opCount = len(ops)
	}
	buf := getRenderBuffer(opCount)
	defer putRenderBuffer(buf, opCount)
	if err := e.root.ExecuteTemplate(buf, id, map[string]any(ctx)); err != nil {
		return nil, &tserrors.TemplateError{TemplateID: id, Message: "execute", Cause: err}
	}
	name := "generated.go"
	if n, ok := ctx[rendercontext.KeyToolsetName].(string); ok && n != "" {
		name = n + ".go"
	}
	formatted, err := imports.Process(name, buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, &tserrors.TemplateError{TemplateID: id, Message: "format generated source", Cause: err}
	}
	return formatted, nil
}

// IsNotFound reports whether err is a template lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, tserrors.ErrTemplateNotFound)
}

// cleanDescription collapses whitespace so a description fits on one line.
func cleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
