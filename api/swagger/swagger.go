package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Math Facts Mastery API",
        "description": "Timed math-fact assessments and per-operation mastery progression",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Assignments", "description": "Student assessment load and submit"},
        {"name": "Progress", "description": "Per-operation levels, placement and mastery"},
        {"name": "Policies", "description": "Classroom progression policy"}
    ],
    "paths": {
        "/student/assignments/{id}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Load an assessment for the current student",
                "description": "READY with questions, NOT_OPEN, CLOSED, or ALREADY_SUBMITTED with the stored result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not a recipient", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/student/assignments/{id}/submit": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Submit answers for an assessment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Graded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not a recipient", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Window closed or already submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/student/progress": {
            "get": {
                "tags": ["Progress"],
                "summary": "Current student's levels per operation",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms/{id}/policy": {
            "get": {
                "tags": ["Policies"],
                "summary": "Resolved progression policy of a classroom",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No enabled operations", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Policies"],
                "summary": "Replace a classroom's progression policy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePolicyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms/{id}/students/{studentId}/placement": {
            "post": {
                "tags": ["Progress"],
                "summary": "Initialise a student's levels",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PlacementRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms/{id}/students/{studentId}/mastery": {
            "post": {
                "tags": ["Progress"],
                "summary": "Apply a full-mastery result to a student's operation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MasteryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "answers": {
                    "type": "object",
                    "description": "Answers keyed by question id; blank or non-numeric values count as unanswered",
                    "additionalProperties": {"type": "string"}
                }
            }
        },
        "UpdatePolicyRequest": {
            "type": "object",
            "properties": {
                "enabledOperations": {"type": "array", "items": {"type": "string", "enum": ["ADD", "SUB", "MUL", "DIV"]}},
                "operationOrder": {"type": "array", "items": {"type": "string", "enum": ["ADD", "SUB", "MUL", "DIV"]}},
                "maxNumber": {"type": "integer", "minimum": 1, "maximum": 100}
            },
            "required": ["enabledOperations", "maxNumber"]
        },
        "PlacementRequest": {
            "type": "object",
            "properties": {
                "startOperation": {"type": "string", "enum": ["ADD", "SUB", "MUL", "DIV"]},
                "levelAmount": {"type": "integer", "minimum": 1}
            },
            "required": ["startOperation", "levelAmount"]
        },
        "MasteryRequest": {
            "type": "object",
            "properties": {
                "operation": {"type": "string", "enum": ["ADD", "SUB", "MUL", "DIV"]}
            },
            "required": ["operation"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
