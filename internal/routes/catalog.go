package routes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prasenjit/route-explorer/internal/models"
)

// Source supplies raw registry entries keyed by pattern
type Source interface {
	GetRoutes(ctx context.Context) (map[string]models.RawRoute, error)
}

// Catalog is an immutable snapshot of normalized routes
type Catalog struct {
	routes map[string]models.Route
}

// NewCatalog wraps an already-normalized route map
func NewCatalog(routes map[string]models.Route) *Catalog {
	if routes == nil {
		routes = make(map[string]models.Route)
	}
	return &Catalog{routes: routes}
}

// LoadAll pulls every entry from src and normalizes it. Entries are never
// rejected individually; only a failing source aborts the load.
func LoadAll(ctx context.Context, src Source, n *Normalizer) (*Catalog, error) {
	raw, err := src.GetRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}

	routes := make(map[string]models.Route, len(raw))
	for pattern, entry := range raw {
		if entry.Pattern == "" {
			entry.Pattern = pattern
		}
		if entry.Pattern == "" {
			continue
		}
		routes[entry.Pattern] = n.Normalize(entry)
	}
	return NewCatalog(routes), nil
}

// Routes returns the pattern to route mapping
func (c *Catalog) Routes() map[string]models.Route {
	return c.routes
}

// Len returns the number of routes
func (c *Catalog) Len() int {
	return len(c.routes)
}

// Get returns the route registered under pattern
func (c *Catalog) Get(pattern string) (models.Route, error) {
	r, ok := c.routes[pattern]
	if !ok {
		return models.Route{}, models.NewNotFoundError("Route not found: %s", pattern)
	}
	return r, nil
}

// Sorted returns all routes ordered by pattern
func (c *Catalog) Sorted() []models.Route {
	out := make([]models.Route, 0, len(c.routes))
	for _, r := range c.routes {
		out = append(out, r)
	}
	sortByPattern(out)
	return out
}

// GroupByNamespace partitions routes by namespace, sorted by namespace name
func (c *Catalog) GroupByNamespace() []models.NamespaceGroup {
	return groupByNamespace(c.Sorted())
}

// Filter selects routes. Zero-valued fields are ignored; set fields are ANDed.
type Filter struct {
	Namespace  string `json:"namespace,omitempty"`
	Method     string `json:"method,omitempty"`
	PublicOnly bool   `json:"publicOnly,omitempty"`
	Search     string `json:"search,omitempty"`
}

// Match reports whether r passes every set criterion
func (f Filter) Match(r models.Route) bool {
	if f.Namespace != "" && r.Namespace != f.Namespace {
		return false
	}
	if f.Method != "" && !r.HasMethod(f.Method) {
		return false
	}
	if f.PublicOnly && !r.IsPublic {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Pattern), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) {
			return false
		}
	}
	return true
}

// Filter returns the routes matching f, ordered by pattern
func (c *Catalog) Filter(f Filter) []models.Route {
	out := make([]models.Route, 0)
	for _, r := range c.routes {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	sortByPattern(out)
	return out
}

// Stats returns aggregate counts over the catalog
func (c *Catalog) Stats() models.RouteStats {
	stats := models.RouteStats{
		MethodsCount:    make(map[string]int),
		NamespacesCount: make(map[string]int),
	}
	for _, r := range c.routes {
		stats.TotalRoutes++
		if r.IsPublic {
			stats.PublicRoutes++
		} else {
			stats.PrivateRoutes++
		}
		for m := range r.Methods {
			stats.MethodsCount[m]++
		}
		stats.NamespacesCount[r.Namespace]++
		stats.TotalEndpoints += len(r.Methods)
	}
	return stats
}

// GroupRoutes partitions an arbitrary route list by namespace
func GroupRoutes(routes []models.Route) []models.NamespaceGroup {
	sorted := append([]models.Route(nil), routes...)
	sortByPattern(sorted)
	return groupByNamespace(sorted)
}

func groupByNamespace(sorted []models.Route) []models.NamespaceGroup {
	index := make(map[string]int)
	groups := make([]models.NamespaceGroup, 0)
	for _, r := range sorted {
		i, ok := index[r.Namespace]
		if !ok {
			i = len(groups)
			index[r.Namespace] = i
			groups = append(groups, models.NamespaceGroup{Namespace: r.Namespace})
		}
		groups[i].Routes = append(groups[i].Routes, r)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Namespace < groups[j].Namespace
	})
	return groups
}

func sortByPattern(routes []models.Route) {
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Pattern < routes[j].Pattern
	})
}
