package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const bearerAuthScheme = "bearerAuth"

// RegisterResponse adds a named response that routes can reference
func (dr *DocRouter) RegisterResponse(name string, response map[string]any) {
	dr.customResponses[name] = response
}

// RegisterRouteResponse associates a named response with a route and status code
func (dr *DocRouter) RegisterRouteResponse(routePath, method, statusCode, responseName string) {
	routeID := routeKey(method, routePath)

	if _, exists := dr.routeResponses[routeID]; !exists {
		dr.routeResponses[routeID] = make(map[string]string)
	}

	dr.routeResponses[routeID][statusCode] = responseName
}

// routeKey identifies a route in routeResponses
func routeKey(method, path string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(method), path)
}

// OpenAPI returns the OpenAPI 3 document describing the registered routes
func (dr *DocRouter) OpenAPI() map[string]any {
	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       dr.title,
			"description": dr.description,
			"version":     dr.version,
		},
		"paths": dr.generatePaths(),
	}

	if len(dr.servers) > 0 {
		servers := make([]any, 0, len(dr.servers))
		for _, s := range dr.servers {
			servers = append(servers, map[string]any{"url": s.URL, "description": s.Description})
		}
		doc["servers"] = servers
	}

	if len(dr.tags) > 0 {
		tags := make([]any, 0, len(dr.tags))
		for _, t := range dr.tags {
			tags = append(tags, map[string]any{"name": t.Name, "description": t.Description})
		}
		doc["tags"] = tags
	}

	// components last, paths register the schemas
	doc["components"] = dr.generateComponents()

	return doc
}

// OpenAPIJSON returns the indented JSON encoding of OpenAPI
func (dr *DocRouter) OpenAPIJSON() ([]byte, error) {
	return json.MarshalIndent(dr.OpenAPI(), "", "  ")
}

// OpenAPIHandler serves the OpenAPI document
func (dr *DocRouter) OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := dr.OpenAPIJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

// extractPathParams gets path parameters from a URL path
func extractPathParams(path string) []string {
	var params []string

	for _, part := range strings.Split(path, "/") {
		if len(part) > 1 && part[0] == '{' && part[len(part)-1] == '}' {
			name := strings.TrimSuffix(part[1:len(part)-1], "...")
			if name != "$" {
				params = append(params, name)
			}
		}
	}

	return params
}

// generatePathParameters creates parameter objects for path parameters
func generatePathParameters(params []string) []any {
	var parameters []any

	for _, param := range params {
		parameters = append(parameters, map[string]any{
			"name":     param,
			"in":       "path",
			"required": true,
			"schema": map[string]any{
				"type": "string",
			},
			"description": fmt.Sprintf("%s parameter", param),
		})
	}

	return parameters
}

// generateQueryParameters creates parameter objects for query parameters
func generateQueryParameters(params []QueryParam) []any {
	var parameters []any

	for _, param := range params {
		typ := param.Type
		if typ == "" {
			typ = "string"
		}

		schema := map[string]any{"type": typ}
		if len(param.Enum) > 0 {
			schema["enum"] = param.Enum
		}

		parameters = append(parameters, map[string]any{
			"name":        param.Name,
			"in":          "query",
			"required":    false,
			"schema":      schema,
			"description": param.Description,
		})
	}

	return parameters
}

// openAPIPath strips ServeMux only syntax from a pattern path
func openAPIPath(path string) string {
	path = strings.ReplaceAll(path, "{$}", "")
	return strings.ReplaceAll(path, "...}", "}")
}

// generatePaths creates the paths section of the OpenAPI document
func (dr *DocRouter) generatePaths() map[string]any {
	paths := map[string]any{}

	for _, route := range dr.routes {
		path := openAPIPath(route.Path)

		if _, exists := paths[path]; !exists {
			paths[path] = map[string]any{}
		}

		pathItem := paths[path].(map[string]any)
		method := strings.ToLower(route.Method)

		operation := map[string]any{
			"summary":     route.Name,
			"description": route.Description,
			"operationId": operationID(method, path),
			"responses":   dr.generateResponses(route),
		}

		if len(route.Tags) > 0 {
			operation["tags"] = route.Tags
		}

		parameters := append(generatePathParameters(extractPathParams(path)), generateQueryParameters(route.QueryParams)...)
		if len(parameters) > 0 {
			operation["parameters"] = parameters
		}

		if route.RequestType != nil && (method == "post" || method == "put" || method == "patch") {
			operation["requestBody"] = dr.generateRequestBody(route)
		}

		if route.Secured && dr.useBearerAuth {
			operation["security"] = []any{
				map[string]any{bearerAuthScheme: []string{}},
			}
		}

		pathItem[method] = operation
	}

	return paths
}

// operationID derives an identifier like get_api_todos_id
func operationID(method, path string) string {
	replacer := strings.NewReplacer("/", "_", "{", "", "}", "")
	return method + strings.TrimRight(replacer.Replace(path), "_")
}

// generateResponses creates response documentation
func (dr *DocRouter) generateResponses(route RouteInfo) map[string]any {
	responses := map[string]any{}

	for statusCode, routeResponse := range route.Responses {
		responseContent := map[string]any{}

		if routeResponse.Schema != nil {
			responseContent["schema"] = dr.schemaRef(routeResponse.Schema)
		}

		if len(routeResponse.Examples) > 0 {
			examples := map[string]any{}
			for i, example := range routeResponse.Examples {
				examples[fmt.Sprintf("example%d", i+1)] = map[string]any{
					"value": exampleValue(example),
				}
			}
			responseContent["examples"] = examples
		}

		response := map[string]any{
			"description": routeResponse.Description,
		}

		if len(responseContent) > 0 {
			response["content"] = map[string]any{
				"application/json": responseContent,
			}
		}

		responses[statusCode] = response
	}

	success := route.successCode()
	if _, exists := responses[success]; !exists {
		response := map[string]any{
			"description": "Successful response",
		}

		if route.ResponseType != nil && success != "204" {
			response["content"] = map[string]any{
				"application/json": map[string]any{
					"schema": dr.schemaRef(route.ResponseType),
				},
			}
		}

		responses[success] = response
	}

	if routeResps, exists := dr.routeResponses[routeKey(route.Method, route.Path)]; exists {
		for statusCode, responseName := range routeResps {
			if _, exists := responses[statusCode]; exists {
				continue
			}

			responses[statusCode] = map[string]any{
				"$ref": "#/components/responses/" + responseName,
			}
		}
	}

	return responses
}

// exampleValue decodes JSON examples so they render as objects
func exampleValue(example Example) any {
	if strings.Contains(example.ContentType, "json") {
		var v any
		if err := json.Unmarshal([]byte(example.Value), &v); err == nil {
			return v
		}
	}
	return example.Value
}

// generateRequestBody creates request body documentation
func (dr *DocRouter) generateRequestBody(route RouteInfo) map[string]any {
	return map[string]any{
		"description": fmt.Sprintf("request body for %s", route.Name),
		"required":    true,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": dr.schemaRef(route.RequestType),
			},
		},
	}
}

// generateComponents creates reusable components
func (dr *DocRouter) generateComponents() map[string]any {
	components := map[string]any{
		"schemas": dr.schemaRegistry.getSchemas(),
	}

	if len(dr.customResponses) > 0 {
		components["responses"] = dr.customResponses
	}

	if dr.useBearerAuth {
		components["securitySchemes"] = map[string]any{
			bearerAuthScheme: map[string]any{
				"type":         "http",
				"scheme":       "bearer",
				"bearerFormat": "JWT",
			},
		}
	}

	return components
}
