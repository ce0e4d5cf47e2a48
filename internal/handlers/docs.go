package handlers

import (
	"encoding/json"
	"net/http"
)

func queryParam(name, description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, map[string]interface{}{"$ref": "#/components/schemas/ErrorResponse"})
}

func filterParams() []map[string]interface{} {
	return []map[string]interface{}{
		queryParam("range", "Time range: 24h, 7d, 30d, all or custom (default: all)", map[string]interface{}{
			"type": "string",
			"enum": []string{"24h", "7d", "30d", "all", "custom"},
		}),
		queryParam("start", "Custom range start date (YYYY-MM-DD, inclusive)", map[string]interface{}{"type": "string", "format": "date"}),
		queryParam("end", "Custom range end date (YYYY-MM-DD, inclusive)", map[string]interface{}{"type": "string", "format": "date"}),
		queryParam("station", "Station name, repeatable", map[string]interface{}{"type": "string"}),
	}
}

func object(props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": props}
}

var (
	stringType  = map[string]interface{}{"type": "string"}
	numberType  = map[string]interface{}{"type": "number"}
	integerType = map[string]interface{}{"type": "integer"}
)

// openAPIDocument builds the OpenAPI 3.0 description of the API.
func openAPIDocument() map[string]interface{} {
	readingSchema := object(map[string]interface{}{
		"timestamp":              map[string]interface{}{"type": "string", "format": "date-time"},
		"station":                stringType,
		"location":               stringType,
		"ph":                     numberType,
		"turbidity":              numberType,
		"dissolved_oxygen":       numberType,
		"temperature":            numberType,
		"conductivity":           numberType,
		"total_dissolved_solids": numberType,
		"nitrates":               numberType,
		"status":                 map[string]interface{}{"type": "string", "enum": []string{"Normal", "Alert", "Critical"}},
	})

	readingsParams := append(filterParams(),
		queryParam("page", "Page number (default: 1)", map[string]interface{}{"type": "integer", "default": 1}),
		queryParam("limit", "Records per page (default: 100, max 1000)", map[string]interface{}{"type": "integer", "default": 100}),
	)

	return map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Water Quality Platform API",
			"description": "Synthetic multi-station water quality data with quality scoring, dashboards and CSV export",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Water Quality Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Reading": readingSchema,
				"ErrorResponse": object(map[string]interface{}{
					"error":   stringType,
					"message": stringType,
					"code":    integerType,
				}),
			},
		},
		"paths": map[string]interface{}{
			"/api/stations": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List monitoring stations",
					"responses": map[string]interface{}{
						"200": jsonResponse("Configured stations", map[string]interface{}{
							"type": "array",
							"items": object(map[string]interface{}{
								"name":      stringType,
								"location":  stringType,
								"base_ph":   numberType,
								"base_temp": numberType,
							}),
						}),
					},
				},
			},
			"/api/readings": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get readings",
					"description": "Retrieve filtered readings with pagination",
					"parameters":  readingsParams,
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", object(map[string]interface{}{
							"data":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"$ref": "#/components/schemas/Reading"}},
							"total":       integerType,
							"page":        integerType,
							"limit":       integerType,
							"total_pages": integerType,
						})),
						"400": errorResponse("Invalid filter"),
					},
				},
			},
			"/api/readings/export": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Export readings as CSV",
					"parameters": filterParams(),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "CSV attachment",
							"content": map[string]interface{}{
								"text/csv": map[string]interface{}{"schema": stringType},
							},
						},
						"400": errorResponse("Invalid filter"),
					},
				},
			},
			"/api/dashboard/kpis": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Dashboard KPIs",
					"parameters": filterParams(),
					"responses": map[string]interface{}{
						"200": jsonResponse("KPI report", object(map[string]interface{}{
							"active_stations": integerType,
							"total_readings":  integerType,
							"alerts_today":    integerType,
							"quality_index":   numberType,
							"rating":          object(map[string]interface{}{"label": stringType, "status": stringType}),
						})),
						"400": errorResponse("Invalid filter"),
					},
				},
			},
			"/api/dashboard/alerts": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Threshold alerts",
					"description": "Threshold breaches on each station's latest reading; lists the first five",
					"parameters":  filterParams(),
					"responses": map[string]interface{}{
						"200": jsonResponse("Alert report", object(map[string]interface{}{
							"alerts": map[string]interface{}{"type": "array", "items": object(map[string]interface{}{
								"station":   stringType,
								"parameter": stringType,
								"value":     numberType,
								"status":    stringType,
								"message":   stringType,
							})},
							"total":     integerType,
							"remaining": integerType,
						})),
						"400": errorResponse("Invalid filter"),
					},
				},
			},
			"/api/dashboard/stations/{station}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Station detail",
					"parameters": append(filterParams(), map[string]interface{}{
						"name":     "station",
						"in":       "path",
						"required": true,
						"schema":   stringType,
					}),
					"responses": map[string]interface{}{
						"200": jsonResponse("Latest parameter cards and radar profile", object(map[string]interface{}{
							"station":       stringType,
							"location":      stringType,
							"timestamp":     map[string]interface{}{"type": "string", "format": "date-time"},
							"cards":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "object"}},
							"radar":         map[string]interface{}{"type": "array", "items": object(map[string]interface{}{"category": stringType, "value": numberType})},
							"quality_index": numberType,
						})),
						"404": errorResponse("Station not found"),
					},
				},
			},
			"/api/dashboard/correlation": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Parameter correlation matrix",
					"parameters": append(filterParams(),
						queryParam("parameter", "Parameter name, repeatable, at least two", stringType),
					),
					"responses": map[string]interface{}{
						"200": jsonResponse("Pearson coefficients; null where undefined", object(map[string]interface{}{
							"parameters": map[string]interface{}{"type": "array", "items": stringType},
							"values": map[string]interface{}{"type": "array", "items": map[string]interface{}{
								"type":  "array",
								"items": map[string]interface{}{"type": "number", "nullable": true},
							}},
						})),
						"400": errorResponse("Invalid parameters"),
					},
				},
			},
			"/api/quality/classify": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Classify a parameter value",
					"parameters": []map[string]interface{}{
						queryParam("parameter", "Parameter name", stringType),
						queryParam("value", "Measured value", numberType),
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Classification", object(map[string]interface{}{
							"parameter": stringType,
							"value":     stringType,
							"status":    map[string]interface{}{"type": "string", "enum": []string{"good", "warning", "critical", "unknown"}},
							"color":     stringType,
						})),
						"400": errorResponse("Invalid value"),
					},
				},
			},
			"/api/quality/index": map[string]interface{}{
				"post": map[string]interface{}{
					"summary": "Compute the quality index",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{"type": "object", "additionalProperties": numberType},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Index and rating", object(map[string]interface{}{
							"index":  numberType,
							"rating": object(map[string]interface{}{"label": stringType, "status": stringType}),
						})),
						"400": errorResponse("Invalid body"),
					},
				},
			},
			"/api/refresh": map[string]interface{}{
				"post": map[string]interface{}{
					"summary": "Regenerate the served dataset",
					"responses": map[string]interface{}{
						"200": jsonResponse("Dataset refreshed", object(map[string]interface{}{"status": stringType, "timestamp": stringType})),
						"500": errorResponse("Regeneration failed"),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API is running",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", object(map[string]interface{}{"status": stringType})),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{"schema": stringType},
							},
						},
					},
				},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Water Quality Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
