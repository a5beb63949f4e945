// Package docs renders the gateway's OpenAPI document for each request with
// the server list pointing at the origin the client used.
package docs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"

	eventbus "github.com/hanpama/graphgate/internal/eventbus"
	events "github.com/hanpama/graphgate/internal/events"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var defaultSpec []byte

//go:embed viewer.html
var viewerSource string

var viewer = template.Must(template.New("viewer").Parse(viewerSource))

// Template is a parsed OpenAPI document. It is never modified after loading;
// Render works on a copy.
type Template struct {
	doc map[string]any
}

// ParseTemplate decodes a YAML or JSON OpenAPI document.
func ParseTemplate(data []byte) (*Template, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode OpenAPI template")
	}
	if doc == nil {
		return nil, errors.New("OpenAPI template is empty")
	}
	doc = stringKeys(doc).(map[string]any)
	if _, err := json.Marshal(doc); err != nil {
		return nil, errors.Wrap(err, "OpenAPI template cannot be served as JSON")
	}
	if _, ok := doc["openapi"]; !ok {
		if _, ok := doc["swagger"]; !ok {
			return nil, errors.New("OpenAPI template has no openapi version field")
		}
	}
	return &Template{doc: doc}, nil
}

// LoadTemplate reads the template at path, or the built-in one when path is
// empty.
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return ParseTemplate(defaultSpec)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read OpenAPI template %s", path)
	}
	return ParseTemplate(data)
}

// Title returns info.title, if any.
func (t *Template) Title() string {
	if info, ok := t.doc["info"].(map[string]any); ok {
		if title, ok := info["title"].(string); ok {
			return title
		}
	}
	return ""
}

// Render returns a copy of the document whose servers list holds origin as
// its only entry.
func (t *Template) Render(origin string) map[string]any {
	out := deepCopy(t.doc).(map[string]any)
	out["servers"] = []any{map[string]any{"url": origin}}
	return out
}

// stringKeys converts the map[any]any values yaml produces for non-string
// keys, such as unquoted status codes, into map[string]any.
func stringKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k] = stringKeys(e)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []any:
		for i, e := range v {
			v[i] = stringKeys(e)
		}
		return v
	}
	return v
}

func deepCopy(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}

// ResolveOrigin returns override when set. Otherwise it derives
// scheme://host from the request, preferring X-Forwarded-Proto over the
// connection's own scheme.
func ResolveOrigin(r *http.Request, override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + r.Host
}

// Renderer serves the rendered document.
type Renderer struct {
	tpl      *Template
	override string
	title    string
}

// NewRenderer serves tpl. A non-empty override replaces the origin derived
// from each request.
func NewRenderer(tpl *Template, override string) *Renderer {
	title := tpl.Title()
	if title == "" {
		title = "API Docs"
	}
	return &Renderer{tpl: tpl, override: override, title: title}
}

func (d *Renderer) Template() *Template { return d.tpl }

// HTMLHandler serves a self-contained Swagger UI page with the rendered
// document inlined.
func (d *Renderer) HTMLHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := ResolveOrigin(r, d.override)
		var buf bytes.Buffer
		if err := viewer.Execute(&buf, struct {
			Title string
			Spec  map[string]any
		}{d.title, d.tpl.Render(origin)}); err != nil {
			pfxlog.Logger().WithError(err).Error("failed to render documentation page")
			http.Error(w, "failed to render documentation", http.StatusInternalServerError)
			return
		}
		d.write(w, r, "text/html; charset=utf-8", buf.Bytes(), origin, "html")
	})
}

// JSONHandler serves the rendered document as JSON.
func (d *Renderer) JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := ResolveOrigin(r, d.override)
		body, err := json.Marshal(d.tpl.Render(origin))
		if err != nil {
			pfxlog.Logger().WithError(err).Error("failed to encode documentation")
			http.Error(w, "failed to encode documentation", http.StatusInternalServerError)
			return
		}
		d.write(w, r, "application/json; charset=utf-8", append(body, '\n'), origin, "json")
	})
}

func (d *Renderer) write(w http.ResponseWriter, r *http.Request, contentType string, body []byte, origin, format string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		pfxlog.Logger().WithError(err).Debug("documentation response not delivered")
		return
	}
	eventbus.Publish(r.Context(), events.DocsRendered{Origin: origin, Format: format})
}
