// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/tables": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tables"],
                "summary": "List tables",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.TablesResponse"}},
                    "304": {"description": "not modified"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tables"],
                "summary": "Create table",
                "parameters": [
                    {"description": "table_name and capacity", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.CreateTableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httpgin.TableResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/tables/{table_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tables"],
                "summary": "Get table",
                "parameters": [
                    {"type": "integer", "description": "Table ID", "name": "table_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.TableResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/tables/{table_id}/seat": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tables"],
                "summary": "Seat a reservation at a table",
                "parameters": [
                    {"type": "integer", "description": "Table ID", "name": "table_id", "in": "path", "required": true},
                    {"description": "reservation_id", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.SeatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.TableResponse"}},
                    "400": {"description": "occupied, not booked or over capacity", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["tables"],
                "summary": "Free a table and finish its reservation",
                "parameters": [
                    {"type": "integer", "description": "Table ID", "name": "table_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.TableResponse"}},
                    "400": {"description": "not occupied", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/reservations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "List reservations",
                "parameters": [
                    {"type": "string", "description": "YYYY-MM-DD", "name": "date", "in": "query"},
                    {"type": "string", "description": "digits matched anywhere in the number", "name": "mobile_number", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.ReservationsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Create reservation (idempotent)",
                "parameters": [
                    {"type": "string", "description": "replay key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "reservation", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.ReservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httpgin.ReservationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "idempotency key in progress", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "429": {"description": "rate limited", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/reservations/{reservation_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Get reservation",
                "parameters": [
                    {"type": "integer", "description": "Reservation ID", "name": "reservation_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.ReservationResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Update a booked reservation",
                "parameters": [
                    {"type": "integer", "description": "Reservation ID", "name": "reservation_id", "in": "path", "required": true},
                    {"description": "reservation", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.ReservationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.ReservationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/reservations/{reservation_id}/status": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Change reservation status",
                "parameters": [
                    {"type": "integer", "description": "Reservation ID", "name": "reservation_id", "in": "path", "required": true},
                    {"description": "status", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.StatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.ReservationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/admin/consistency": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Report seating inconsistencies",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.ConsistencyResponse"}}
                }
            }
        },
        "/admin/consistency/repair": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Repair seating inconsistencies",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.ConsistencyResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["ops"],
                "summary": "Stream committed changes as server-sent events",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Table": {
            "type": "object",
            "properties": {
                "table_id": {"type": "integer"},
                "table_name": {"type": "string"},
                "capacity": {"type": "integer"},
                "reservation_id": {"type": "integer"},
                "status": {"type": "string", "enum": ["free", "occupied"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Reservation": {
            "type": "object",
            "properties": {
                "reservation_id": {"type": "integer"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "mobile_number": {"type": "string"},
                "reservation_date": {"type": "string"},
                "reservation_time": {"type": "string"},
                "people": {"type": "integer"},
                "status": {"type": "string", "enum": ["booked", "seated", "finished", "cancelled"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Inconsistency": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["stale_assignment", "orphaned_seating"]},
                "table_id": {"type": "integer"},
                "reservation_id": {"type": "integer"},
                "status": {"type": "string"}
            }
        },
        "domain.ConsistencyReport": {
            "type": "object",
            "properties": {
                "issues": {"type": "array", "items": {"$ref": "#/definitions/domain.Inconsistency"}},
                "repaired": {"type": "integer"}
            }
        },
        "httpgin.CreateTableRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "object", "additionalProperties": true}
            }
        },
        "httpgin.SeatRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "object", "properties": {"reservation_id": {"type": "integer"}}}
            }
        },
        "httpgin.ReservationRequest": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {
                        "first_name": {"type": "string"},
                        "last_name": {"type": "string"},
                        "mobile_number": {"type": "string"},
                        "reservation_date": {"type": "string"},
                        "reservation_time": {"type": "string"},
                        "people": {"type": "integer"},
                        "status": {"type": "string"}
                    }
                }
            }
        },
        "httpgin.StatusRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "object", "properties": {"status": {"type": "string"}}}
            }
        },
        "httpgin.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "httpgin.TableResponse": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/domain.Table"}}
        },
        "httpgin.TablesResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.Table"}}}
        },
        "httpgin.ReservationResponse": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/domain.Reservation"}}
        },
        "httpgin.ReservationsResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.Reservation"}}}
        },
        "httpgin.ConsistencyResponse": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/domain.ConsistencyReport"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Periodic Tables API",
	Description:      "Reservations and table seating for a restaurant floor.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
