package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Asset Registry API",
        "description": "IT asset and license tracking for healthcare facilities",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Users", "description": "Account registration and approval"},
        {"name": "Assets", "description": "Asset and license records"},
        {"name": "Reports", "description": "Issue reports against assets"},
        {"name": "Archive", "description": "Soft-deleted asset snapshots"},
        {"name": "Dashboard", "description": "Aggregated inventory summary"},
        {"name": "Exports", "description": "Background inventory exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive a token pair",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for a new pair",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/register": {
            "post": {
                "tags": ["Users"],
                "summary": "Open a pending account awaiting approval",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke all refresh tokens of the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/auth/password": {
            "put": {
                "tags": ["Auth"],
                "summary": "Rotate the caller's password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/api/v1/assets": {
            "get": {
                "tags": ["Assets"],
                "summary": "List assets with report annotations and expiry badges",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "sub_type", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "assigned_personnel", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "sort_order", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Assets"],
                "summary": "Create an asset record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "QR artifact exceeds the hard size ceiling"}
                }
            }
        },
        "/api/v1/assets/{id}": {
            "get": {
                "tags": ["Assets"],
                "summary": "Get an asset record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Assets"],
                "summary": "Edit an asset record",
                "description": "Status changes require a reason; returning an asset from maintenance to service requires the maintainer name. Pass the record version for optimistic concurrency.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditAssetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version conflict or oversize QR needs confirmation"}
                }
            },
            "delete": {
                "tags": ["Assets"],
                "summary": "Archive and remove an asset record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DeleteAssetRequest"}}
                ],
                "responses": {
                    "200": {"description": "Archived snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Snapshot archived but live record removal failed"},
                    "502": {"description": "Archival failed, live record untouched"}
                }
            }
        },
        "/api/v1/assets/{id}/qr": {
            "post": {
                "tags": ["Assets"],
                "summary": "Materialize a QR artifact for an asset",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/MaterializeQRRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Oversize artifact needs confirmation"},
                    "413": {"description": "Artifact exceeds the hard size ceiling"}
                }
            },
            "delete": {
                "tags": ["Assets"],
                "summary": "Disable the QR binding of an asset",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List issue reports",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "asset_record_id", "in": "query", "type": "string"},
                    {"name": "condition", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Submit an issue report, optionally with a photo",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "assetRecordId", "in": "formData", "required": true, "type": "string"},
                    {"name": "condition", "in": "formData", "required": true, "type": "string"},
                    {"name": "description", "in": "formData", "required": true, "type": "string"},
                    {"name": "image", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/archive": {
            "get": {
                "tags": ["Archive"],
                "summary": "List archived asset snapshots",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/archive/{id}": {
            "get": {
                "tags": ["Archive"],
                "summary": "Get an archived snapshot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Archive"],
                "summary": "Permanently purge an archived snapshot (SUPERADMIN)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/api/v1/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List accounts (SUPERADMIN)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Fetch the caller's own account",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Users"],
                "summary": "Edit the caller's own account details",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/users/{id}/approve": {
            "post": {
                "tags": ["Users"],
                "summary": "Activate a pending account (SUPERADMIN)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Registration already decided"}
                }
            }
        },
        "/api/v1/users/{id}/reject": {
            "post": {
                "tags": ["Users"],
                "summary": "Decline a pending account (SUPERADMIN)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Aggregated inventory counts and expiry buckets",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports": {
            "get": {
                "tags": ["Exports"],
                "summary": "List the caller's recent export jobs",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an inventory export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Fetch an export job with its download link when ready",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{id}/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a completed export via a signed token",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshRequest": {
            "type": "object",
            "properties": {
                "refreshToken": {"type": "string"}
            },
            "required": ["refreshToken"]
        },
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "fullName": {"type": "string"},
                "position": {"type": "string"}
            },
            "required": ["email", "password", "fullName"]
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {
                "currentPassword": {"type": "string"},
                "newPassword": {"type": "string"}
            },
            "required": ["currentPassword", "newPassword"]
        },
        "UpdateProfileRequest": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "position": {"type": "string"}
            }
        },
        "RejectRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "CreateAssetRequest": {
            "type": "object",
            "properties": {
                "assetId": {"type": "string"},
                "assetName": {"type": "string"},
                "category": {"type": "string", "enum": ["asset", "license"]},
                "subType": {"type": "string"},
                "serialNo": {"type": "string"},
                "operationalPeriod": {"type": "string"},
                "status": {"type": "string"},
                "assignedPersonnel": {"type": "string"},
                "purchaseDate": {"type": "string", "format": "date"},
                "renewalDate": {"type": "string", "format": "date"},
                "generateQr": {"type": "boolean"},
                "acceptOversizeQr": {"type": "boolean"}
            },
            "required": ["assetId", "assetName", "category", "operationalPeriod", "status"]
        },
        "EditAssetRequest": {
            "type": "object",
            "properties": {
                "assetId": {"type": "string"},
                "assetName": {"type": "string"},
                "category": {"type": "string", "enum": ["asset", "license"]},
                "subType": {"type": "string"},
                "serialNo": {"type": "string"},
                "operationalPeriod": {"type": "string"},
                "status": {"type": "string"},
                "assignedPersonnel": {"type": "string"},
                "purchaseDate": {"type": "string", "format": "date"},
                "renewalDate": {"type": "string", "format": "date"},
                "reason": {"type": "string"},
                "maintainedBy": {"type": "string"},
                "generateQr": {"type": "boolean"},
                "acceptOversizeQr": {"type": "boolean"},
                "version": {"type": "integer"}
            },
            "required": ["assetId", "assetName", "category", "operationalPeriod", "status"]
        },
        "DeleteAssetRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "MaterializeQRRequest": {
            "type": "object",
            "properties": {
                "urlOverride": {"type": "string"},
                "acceptOversizeQr": {"type": "boolean"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "title": {"type": "string"}
            },
            "required": ["format"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
