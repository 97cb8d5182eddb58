// Package routes defines the API routes and URL structure
package routes

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celestiaorg/ec2api/internal/types"
	"github.com/celestiaorg/ec2api/pkg/api/v1/handlers"
)

/*

To keep this file organized, routes should be organized in the following way:

1. Operational routes (health, metrics) first, then instance routes
2. Order routes in GET, POST, PUT, DELETE order.
3. For clarity, naming should match the action (i.e. CreateInstance, TerminateInstance)

*/

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Route names for lookup
const (
	// Health check
	HealthCheck = "HealthCheck"

	// Prometheus metrics
	Metrics = "Metrics"

	// Instance routes
	CreateInstance    = "CreateInstance"
	TerminateInstance = "TerminateInstance"
)

// routeCache stores extracted routes for use prior to compilation
var (
	routeCache     map[string]string
	routeCacheMu   sync.RWMutex
	routeCacheInit sync.Once
)

// RegisterRoutes configures all the routes
func RegisterRoutes(app *fiber.App, instanceHandler *handlers.InstanceHandler) {
	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(types.HealthResponse{Status: "healthy"})
	}).Name(HealthCheck)

	// Metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler())).Name(Metrics)

	// Instance endpoints
	app.Post("/create-instance", instanceHandler.CreateInstance).Name(CreateInstance)
	app.Delete("/terminate-instance", instanceHandler.TerminateInstance).Name(TerminateInstance)
}

// initRouteCache initializes the route cache by creating a mock app and extracting routes
func initRouteCache() {
	routeCacheInit.Do(func() {
		routeCacheMu.Lock()
		defer routeCacheMu.Unlock()

		routeCache = make(map[string]string)

		// Create a mock app
		app := fiber.New()

		// Register routes with an empty handler
		RegisterRoutes(app, &handlers.InstanceHandler{})

		// Extract routes from the app
		for _, route := range app.GetRoutes() {
			if route.Name != "" {
				routeCache[route.Name] = route.Path
			}
		}
	})
}

// GetRoute returns the route pattern for the given route name
func GetRoute(name string) string {
	initRouteCache()

	routeCacheMu.RLock()
	defer routeCacheMu.RUnlock()

	return routeCache[name]
}

// BuildURL builds a URL for the given route name and parameters
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	// Replace parameters in the route
	for param, value := range params {
		route = strings.ReplaceAll(route, ":"+param, value)
	}

	// Add query parameters if any
	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// MetricsURL returns the URL for the metrics endpoint
func MetricsURL() string {
	return BuildURL(Metrics, nil, nil)
}

// CreateInstanceURL returns the URL for creating instances
func CreateInstanceURL() string {
	return BuildURL(CreateInstance, nil, nil)
}

// TerminateInstanceURL returns the URL for terminating instances
func TerminateInstanceURL() string {
	return BuildURL(TerminateInstance, nil, nil)
}
