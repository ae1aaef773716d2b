// package router provides a router wrapper that captures documentation data
package router

import (
	"net/http"
	"strconv"
)

// Middleware wraps a handler
type Middleware func(http.Handler) http.Handler

// RouteResponse represents a documented response for a specific HTTP status code
type RouteResponse struct {
	StatusCode  string    // HTTP status code (e.g., "200", "400")
	Description string    // Description of the response
	Schema      any       // Response schema/type (optional)
	Examples    []Example // Example responses (optional)
}

// Example represents an example response for documentation
type Example struct {
	ContentType string // Content type of the example (e.g., "application/json")
	Value       string // Example value as string
}

// QueryParam documents a query string parameter
type QueryParam struct {
	Name        string
	Type        string // JSON schema type, defaults to string
	Description string
	Enum        []string
}

// Server is an entry of the servers section
type Server struct {
	URL         string
	Description string
}

// Tag is an entry of the tags section
type Tag struct {
	Name        string
	Description string
}

// RouteInfo stores documentation for a route
type RouteInfo struct {
	Method        string                   // HTTP method (GET, POST, etc.)
	Path          string                   // URL path
	Name          string                   // Friendly name for the endpoint
	Description   string                   // Description of what the endpoint does
	Handler       http.Handler             // The handler with route middleware applied
	RequestType   any                      // Example request type (for schema generation)
	ResponseType  any                      // Example success response type (for schema generation)
	SuccessStatus int                      // Status of the success response, 200 when unset
	Responses     map[string]RouteResponse // Map of HTTP status codes to responses
	QueryParams   []QueryParam             // Documented query parameters
	Tags          []string                 // Tags for grouping endpoints
	Secured       bool                     // Whether the route requires the bearer token
}

// RouteConfig is a builder for route configuration
type RouteConfig struct {
	router        *DocRouter
	method        string
	path          string
	handler       http.HandlerFunc
	name          string
	description   string
	requestType   any
	responseType  any
	successStatus int
	responses     map[string]RouteResponse
	queryParams   []QueryParam
	tags          []string
	secured       bool
	middleware    []Middleware
}

// DocRouter wraps http.ServeMux to add documentation capabilities
type DocRouter struct {
	title       string
	description string
	version     string

	mux        *http.ServeMux
	middleware []Middleware
	handler    http.Handler
	routes     []RouteInfo

	servers         []Server
	tags            []Tag
	useBearerAuth   bool
	schemaRegistry  *schemaRegistry
	customResponses map[string]map[string]any
	routeResponses  map[string]map[string]string // routeID -> statusCode -> response name
}

// NewDocRouter creates a new documented router
func NewDocRouter(title, description, version string) *DocRouter {
	mux := http.NewServeMux()
	return &DocRouter{
		title:           title,
		description:     description,
		version:         version,
		mux:             mux,
		handler:         mux,
		routes:          []RouteInfo{},
		schemaRegistry:  newSchemaRegistry(),
		customResponses: make(map[string]map[string]any),
		routeResponses:  make(map[string]map[string]string),
	}
}

// WithServer adds an entry to the servers section
func (dr *DocRouter) WithServer(url, description string) *DocRouter {
	dr.servers = append(dr.servers, Server{URL: url, Description: description})
	return dr
}

// WithTag documents a tag
func (dr *DocRouter) WithTag(name, description string) *DocRouter {
	dr.tags = append(dr.tags, Tag{Name: name, Description: description})
	return dr
}

// WithBearerAuth declares the bearer token security scheme
func (dr *DocRouter) WithBearerAuth() *DocRouter {
	dr.useBearerAuth = true
	return dr
}

// Route starts a route configuration chain
func (dr *DocRouter) Route(method, path string, handler http.HandlerFunc) *RouteConfig {
	return &RouteConfig{
		router:    dr,
		method:    method,
		path:      path,
		handler:   handler,
		responses: make(map[string]RouteResponse),
	}
}

// WithName adds a name to the route
func (rc *RouteConfig) WithName(name string) *RouteConfig {
	rc.name = name
	return rc
}

// WithDescription adds a description to the route
func (rc *RouteConfig) WithDescription(description string) *RouteConfig {
	rc.description = description
	return rc
}

// WithRequest adds a request type to the route
func (rc *RouteConfig) WithRequest(requestType any) *RouteConfig {
	rc.requestType = requestType
	return rc
}

// WithResponse adds a success response type to the route
func (rc *RouteConfig) WithResponse(responseType any) *RouteConfig {
	rc.responseType = responseType
	return rc
}

// WithStatus sets the status code of the success response
func (rc *RouteConfig) WithStatus(status int) *RouteConfig {
	rc.successStatus = status
	return rc
}

// WithErrorResponse adds an error response to the route
func (rc *RouteConfig) WithErrorResponse(statusCode, description string, schema any, examples ...Example) *RouteConfig {
	rc.responses[statusCode] = RouteResponse{
		StatusCode:  statusCode,
		Description: description,
		Schema:      schema,
		Examples:    examples,
	}
	return rc
}

// WithQueryParam documents a query string parameter
func (rc *RouteConfig) WithQueryParam(param QueryParam) *RouteConfig {
	rc.queryParams = append(rc.queryParams, param)
	return rc
}

// WithTags adds tags to the route
func (rc *RouteConfig) WithTags(tags ...string) *RouteConfig {
	rc.tags = tags
	return rc
}

// WithSecurity marks the route as requiring the bearer token
func (rc *RouteConfig) WithSecurity() *RouteConfig {
	rc.secured = true
	return rc
}

// WithMiddleware wraps only this route's handler; the first one runs first
func (rc *RouteConfig) WithMiddleware(middleware ...Middleware) *RouteConfig {
	rc.middleware = append(rc.middleware, middleware...)
	return rc
}

// Register finalizes the route configuration and registers it with the router
func (rc *RouteConfig) Register() {
	handler := chain(rc.handler, rc.middleware)

	// Go 1.22 pattern with method
	rc.router.mux.Handle(rc.method+" "+rc.path, handler)

	rc.router.routes = append(rc.router.routes, RouteInfo{
		Method:        rc.method,
		Path:          rc.path,
		Name:          rc.name,
		Description:   rc.description,
		Handler:       handler,
		RequestType:   rc.requestType,
		ResponseType:  rc.responseType,
		SuccessStatus: rc.successStatus,
		Responses:     rc.responses,
		QueryParams:   rc.queryParams,
		Tags:          rc.tags,
		Secured:       rc.secured,
	})
}

// successCode returns the documented success status as a string
func (ri RouteInfo) successCode() string {
	if ri.SuccessStatus == 0 {
		return "200"
	}
	return strconv.Itoa(ri.SuccessStatus)
}

// NotFound handles every request that matches no registered route
func (dr *DocRouter) NotFound(handler http.HandlerFunc) {
	dr.mux.Handle("/", handler)
}

// GetRoutes returns all documented routes
func (dr *DocRouter) GetRoutes() []RouteInfo {
	return dr.routes
}

// Use appends middleware wrapping every request, registered routes included
func (dr *DocRouter) Use(middleware ...Middleware) {
	dr.middleware = append(dr.middleware, middleware...)
	dr.handler = chain(dr.mux, dr.middleware)
}

// ServeHTTP makes DocRouter implement the http.Handler interface
func (dr *DocRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	dr.handler.ServeHTTP(w, r)
}

// chain applies middleware so that the first one is the outermost
func chain(h http.Handler, middleware []Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
