package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v3"

	"docreview/internal/config"
)

// RouteInfo is one row of the route index.
type RouteInfo struct {
	Method string
	Path   string
}

// IndexHandler renders the HTML route index.
type IndexHandler struct {
	cfg *config.Config
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(cfg *config.Config) *IndexHandler {
	return &IndexHandler{cfg: cfg}
}

// Routes lists the app's registered routes.
func (h *IndexHandler) Routes(c fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"SiteTitle": h.cfg.SiteTitle,
		"Routes":    listRoutes(c.App().GetRoutes(true)),
	})
}

// listRoutes drops implicit HEAD routes and sorts by path, then method.
func listRoutes(routes []fiber.Route) []RouteInfo {
	out := make([]RouteInfo, 0, len(routes))
	seen := make(map[RouteInfo]bool)
	for _, r := range routes {
		if r.Method == fiber.MethodHead || r.Path == "" || r.Path == "/" {
			continue
		}
		info := RouteInfo{Method: r.Method, Path: r.Path}
		if seen[info] {
			continue
		}
		seen[info] = true
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}
