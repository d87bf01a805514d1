package registry

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prasenjit/route-explorer/internal/models"
)

// FileProvider reads a YAML or JSON registry dump from disk on every call
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider for the dump at path
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

type fileDocument struct {
	Site struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Home        string `yaml:"home"`
		RestURL     string `yaml:"restUrl"`
	} `yaml:"site"`
	Routes map[string]fileRoute `yaml:"routes"`
}

type fileRoute struct {
	Description string                `yaml:"description"`
	Methods     map[string]fileMethod `yaml:"methods"`
}

type fileMethod struct {
	Callback   string         `yaml:"callback"`
	Permission *string        `yaml:"permission"`
	Args       models.ArgList `yaml:"args"`
}

func (p *FileProvider) load() (*fileDocument, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	// yaml.v3 also accepts JSON documents
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry file %s: %w", p.path, err)
	}
	return &doc, nil
}

// GetRoutes returns every route in the dump
func (p *FileProvider) GetRoutes(context.Context) (map[string]models.RawRoute, error) {
	doc, err := p.load()
	if err != nil {
		return nil, err
	}

	routes := make(map[string]models.RawRoute, len(doc.Routes))
	for pattern, r := range doc.Routes {
		raw := models.RawRoute{
			Pattern:     pattern,
			Description: r.Description,
		}
		if r.Methods != nil {
			raw.Methods = make(map[string]models.RawMethod, len(r.Methods))
			for verb, m := range r.Methods {
				perm := models.Permission{Kind: models.PermissionAbsent}
				if m.Permission != nil {
					perm = models.ParsePermission(*m.Permission)
				}
				raw.Methods[verb] = models.RawMethod{
					Callback:   m.Callback,
					Permission: perm,
					Args:       m.Args,
				}
			}
		}
		routes[pattern] = raw
	}
	return routes, nil
}

// Site returns the site block of the dump
func (p *FileProvider) Site(context.Context) (models.SiteInfo, error) {
	doc, err := p.load()
	if err != nil {
		return models.SiteInfo{}, err
	}
	return models.SiteInfo{
		Name:        doc.Site.Name,
		Description: doc.Site.Description,
		HomeURL:     doc.Site.Home,
		RESTBaseURL: doc.Site.RestURL,
	}, nil
}
