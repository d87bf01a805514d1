package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prasenjit/route-explorer/internal/models"
)

// Provider supplies the raw route registry of a host application
type Provider interface {
	GetRoutes(ctx context.Context) (map[string]models.RawRoute, error)
	Site(ctx context.Context) (models.SiteInfo, error)
}

// Provider kinds accepted by New
const (
	KindFile    = "file"
	KindIndex   = "index"
	KindOpenAPI = "openapi"
)

// New creates the provider for kind reading from source
func New(kind, source string, client *http.Client) (Provider, error) {
	if source == "" {
		return nil, fmt.Errorf("registry source is required")
	}
	switch strings.ToLower(kind) {
	case "", KindFile:
		return NewFileProvider(source), nil
	case KindIndex:
		return NewIndexProvider(source, client), nil
	case KindOpenAPI:
		return NewOpenAPIProvider(source, client), nil
	default:
		return nil, fmt.Errorf("unknown registry type: %s", kind)
	}
}

// Static serves a fixed registry
type Static struct {
	Info   models.SiteInfo
	Routes map[string]models.RawRoute
}

// GetRoutes returns a copy of the fixed route map
func (s *Static) GetRoutes(context.Context) (map[string]models.RawRoute, error) {
	out := make(map[string]models.RawRoute, len(s.Routes))
	for k, v := range s.Routes {
		out[k] = v
	}
	return out, nil
}

// Site returns the fixed site metadata
func (s *Static) Site(context.Context) (models.SiteInfo, error) {
	return s.Info, nil
}

type overridden struct {
	Provider
	site models.SiteInfo
}

// WithSiteOverrides replaces the non-empty fields of site in everything the
// wrapped provider reports
func WithSiteOverrides(p Provider, site models.SiteInfo) Provider {
	if site == (models.SiteInfo{}) {
		return p
	}
	return &overridden{Provider: p, site: site}
}

func (o *overridden) Site(ctx context.Context) (models.SiteInfo, error) {
	info, err := o.Provider.Site(ctx)
	if err != nil {
		return info, err
	}
	if o.site.Name != "" {
		info.Name = o.site.Name
	}
	if o.site.Description != "" {
		info.Description = o.site.Description
	}
	if o.site.HomeURL != "" {
		info.HomeURL = o.site.HomeURL
	}
	if o.site.RESTBaseURL != "" {
		info.RESTBaseURL = o.site.RESTBaseURL
	}
	return info, nil
}
