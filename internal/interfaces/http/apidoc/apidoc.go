// Package apidoc publishes an OpenAPI 2.0 description of the mounted API
// routes for the swagger UI.
package apidoc

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/erp/acct/internal/interfaces/http/router"
	"github.com/go-openapi/spec"
	"github.com/swaggo/swag/v2"
)

// Info names the API in the document header
type Info struct {
	Title       string
	Description string
	Version     string
}

// Doc renders the document for a set of endpoints. It satisfies swag.Swagger.
type Doc struct {
	info      Info
	basePath  string
	endpoints []router.Endpoint

	once     sync.Once
	rendered string
}

// New describes the endpoints mounted by r. Call it after r.Setup.
func New(r *router.Router, info Info) *Doc {
	return &Doc{info: info, basePath: r.BasePath(), endpoints: r.Endpoints()}
}

// Register makes d the document served by the swagger handler under name.
// swag panics when a name is registered twice.
func Register(name string, d *Doc) {
	swag.Register(name, d)
}

// ReadDoc returns the JSON document
func (d *Doc) ReadDoc() string {
	d.once.Do(func() {
		b, err := json.Marshal(d.Swagger())
		if err != nil {
			d.rendered = "{}"
			return
		}
		d.rendered = string(b)
	})
	return d.rendered
}

// Swagger builds the document. Every operation requires the bearer token
// and is tagged with its route group.
func (d *Doc) Swagger() *spec.Swagger {
	paths := map[string]spec.PathItem{}
	for _, ep := range d.endpoints {
		rel, params := templatePath(strings.TrimPrefix(ep.Path, d.basePath))
		op := spec.NewOperation(operationID(ep.Method, rel)).
			WithTags(ep.Group).
			RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("Success"))
		for _, p := range params {
			op.AddParam(spec.PathParam(p).Typed("string", ""))
		}

		item := paths[rel]
		switch ep.Method {
		case http.MethodGet:
			item.Get = op
		case http.MethodPost:
			item.Post = op
		case http.MethodPut:
			item.Put = op
		case http.MethodDelete:
			item.Delete = op
		case http.MethodPatch:
			item.Patch = op
		}
		paths[rel] = item
	}

	return &spec.Swagger{SwaggerProps: spec.SwaggerProps{
		Swagger:  "2.0",
		BasePath: d.basePath,
		Info: &spec.Info{InfoProps: spec.InfoProps{
			Title:       d.info.Title,
			Description: d.info.Description,
			Version:     d.info.Version,
		}},
		Paths: &spec.Paths{Paths: paths},
		SecurityDefinitions: spec.SecurityDefinitions{
			"BearerAuth": spec.APIKeyAuth("Authorization", "header"),
		},
		Security: []map[string][]string{{"BearerAuth": {}}},
	}}
}

// templatePath rewrites gin parameters (:id) into OpenAPI templates ({id})
func templatePath(p string) (string, []string) {
	if p == "" {
		p = "/"
	}
	segs := strings.Split(p, "/")
	var params []string
	for i, s := range segs {
		if strings.HasPrefix(s, ":") || strings.HasPrefix(s, "*") {
			name := s[1:]
			params = append(params, name)
			segs[i] = "{" + name + "}"
		}
	}
	return strings.Join(segs, "/"), params
}

func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range strings.Split(path, "/") {
		s = strings.Trim(s, "{}")
		if s == "" {
			continue
		}
		b.WriteByte('_')
		b.WriteString(strings.ReplaceAll(s, "-", "_"))
	}
	return b.String()
}

var _ swag.Swagger = (*Doc)(nil)
