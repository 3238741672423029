// Package docs registra el documento OpenAPI que sirve /swagger/*.
// Se regenera con `swag init -g cmd/api/main.go -o internal/docs` a partir de los
// comentarios godoc de internal/domain/ledger/handler.go.
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
        "/me/record": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Crear o actualizar mi registro médico",
                "parameters": [
                    {"description": "registro", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ledger.upsertRecordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ledger.recordRefResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}}
                }
            }
        },
        "/me/doctors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["access"],
                "summary": "Médicos con acceso a mi registro, en orden de grant",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["access"],
                "summary": "Dar acceso de lectura a un médico",
                "parameters": [
                    {"description": "médico", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ledger.grantAccessRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ledger.eventRefResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}},
                    "409": {"description": "Conflict", "schema": {"type": "string"}}
                }
            }
        },
        "/me/doctors/{doctor}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["access"],
                "summary": "Revocar el acceso de un médico",
                "parameters": [
                    {"type": "string", "description": "dirección del médico", "name": "doctor", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ledger.eventRefResponse"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}},
                    "409": {"description": "Conflict", "schema": {"type": "string"}}
                }
            }
        },
        "/me/grants": {
            "get": {
                "produces": ["application/json"],
                "tags": ["access"],
                "summary": "Todas mis entries de permiso (incluye revocadas)",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ledger.entryResponse"}}}
                }
            }
        },
        "/patients/{patient}/record": {
            "get": {
                "description": "El paciente lee el suyo; un médico necesita acceso vigente y la lectura queda en el log.",
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Leer el registro de un paciente",
                "parameters": [
                    {"type": "string", "description": "dirección del paciente", "name": "patient", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ledger.recordResponse"}},
                    "403": {"description": "Forbidden", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}}
                }
            }
        },
        "/patients/{patient}/doctors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["access"],
                "summary": "Médicos con acceso al registro del paciente (solo el paciente)",
                "parameters": [
                    {"type": "string", "description": "dirección del paciente", "name": "patient", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "string"}}
                }
            }
        },
        "/patients/{patient}/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Traza de auditoría del paciente (solo el paciente)",
                "parameters": [
                    {"type": "string", "description": "dirección del paciente", "name": "patient", "in": "path", "required": true},
                    {"type": "integer", "description": "máximo de eventos (default 50)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ledger.eventResponse"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "string"}}
                }
            }
        },
        "/events": {
            "get": {
                "description": "Sin from/to devuelve los más recientes primero. Con from y/o to recorre el rango en orden ascendente.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Log de eventos",
                "parameters": [
                    {"type": "integer", "description": "máximo de eventos (default 50, tope 1000)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "sequence inicial (inclusive)", "name": "from", "in": "query"},
                    {"type": "integer", "description": "sequence final (inclusive)", "name": "to", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ledger.eventResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "ledger.upsertRecordRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "age": {"type": "integer"},
                "medical_history": {"type": "string"},
                "document_ref": {"type": "string"}
            }
        },
        "ledger.recordRefResponse": {
            "type": "object",
            "properties": {
                "owner": {"type": "string"},
                "sequence": {"type": "integer"},
                "event_id": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ledger.grantAccessRequest": {
            "type": "object",
            "properties": {
                "doctor": {"type": "string"}
            }
        },
        "ledger.eventRefResponse": {
            "type": "object",
            "properties": {
                "sequence": {"type": "integer"},
                "event_id": {"type": "string"},
                "kind": {"type": "string"}
            }
        },
        "ledger.recordResponse": {
            "type": "object",
            "properties": {
                "owner": {"type": "string"},
                "name": {"type": "string"},
                "age": {"type": "integer"},
                "medical_history": {"type": "string"},
                "document_ref": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "access_sequence": {"type": "integer"},
                "access_event_id": {"type": "string"}
            }
        },
        "ledger.entryResponse": {
            "type": "object",
            "properties": {
                "doctor": {"type": "string"},
                "state": {"type": "string"},
                "granted_at": {"type": "string"},
                "ordinal": {"type": "integer"}
            }
        },
        "ledger.eventResponse": {
            "type": "object",
            "properties": {
                "sequence": {"type": "integer"},
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "patient": {"type": "string"},
                "doctor": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Medical Access Ledger API",
	Description:      "Registro médico por paciente, permisos de lectura por médico y log de eventos append-only.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
