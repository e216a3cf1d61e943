package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CourseHub API",
        "description": "Shared course resources, reviews and announcements",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Registration, login and token rotation"},
        {"name": "Resources", "description": "Shared course resources and uploads"},
        {"name": "Tags", "description": "Resource tag parsing and canonicalization"},
        {"name": "Courses", "description": "Course catalogue and offerings"},
        {"name": "Reviews", "description": "Course ratings"},
        {"name": "Announcements", "description": "Site announcements"},
        {"name": "Exports", "description": "Asynchronous resource catalogue exports"},
        {"name": "Users", "description": "Admin account management"},
        {"name": "System", "description": "Health and metrics"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a new account",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "409": {"description": "Email taken"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for tokens",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Invalid credentials"}, "429": {"description": "Rate limited"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid token"}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke a refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change the current password",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}, "403": {"description": "Wrong password"}}
            }
        },
        "/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Auth"],
                "summary": "Update the current profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/resources": {
            "get": {
                "tags": ["Resources"],
                "summary": "List resources with parsed labels",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "tag", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Resources"],
                "summary": "Create a link or note resource",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}}
            }
        },
        "/resources/upload": {
            "post": {
                "tags": ["Resources"],
                "summary": "Upload a file resource",
                "consumes": ["multipart/form-data"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "metadata", "in": "formData", "type": "string"}
                ],
                "responses": {"201": {"description": "Created"}, "413": {"description": "File too large"}, "415": {"description": "Unsupported type"}}
            }
        },
        "/resources/{id}": {
            "get": {
                "tags": ["Resources"],
                "summary": "Get a resource",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Resources"],
                "summary": "Update a resource",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            },
            "delete": {
                "tags": ["Resources"],
                "summary": "Delete a resource",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/resources/{id}/download-url": {
            "get": {
                "tags": ["Resources"],
                "summary": "Issue a signed download URL",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/resources/{id}/download": {
            "get": {
                "tags": ["Resources"],
                "summary": "Download a stored file",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "File"}, "401": {"description": "Invalid token"}}
            }
        },
        "/tags/parse": {
            "post": {
                "tags": ["Tags"],
                "summary": "Classify a resource's tags",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResourceTagSet"}}}
            }
        },
        "/tags/canonicalize": {
            "post": {
                "tags": ["Tags"],
                "summary": "Build canonical tags from structured fields",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a course",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Course detail with rating summary",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/courses/{id}/offerings": {
            "get": {
                "tags": ["Courses"],
                "summary": "List offerings of a course",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create an offering",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/courses/{id}/reviews": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List reviews with summary",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Reviews"],
                "summary": "Review a course",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Already reviewed"}}
            }
        },
        "/reviews/{id}": {
            "delete": {
                "tags": ["Reviews"],
                "summary": "Delete a review",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/announcements": {
            "get": {
                "tags": ["Announcements"],
                "summary": "List active announcements",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Announcements"],
                "summary": "Create an announcement",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/announcements/{id}": {
            "get": {
                "tags": ["Announcements"],
                "summary": "Get an announcement",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Announcements"],
                "summary": "Update an announcement",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Announcements"],
                "summary": "Delete an announcement",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a resource catalogue export",
                "security": [{"BearerAuth": []}],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "parameters": [{"name": "token", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "File"}, "404": {"description": "Expired"}}
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List accounts",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/admin/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get an account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Users"],
                "summary": "Change role or status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Own account"}}
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Deactivate an account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "ResourceTagSet": {
            "type": "object",
            "properties": {
                "term": {"type": "array", "items": {"type": "string"}},
                "courseName": {"type": "array", "items": {"type": "string"}},
                "courseCode": {"type": "array", "items": {"type": "string"}},
                "instructors": {"type": "array", "items": {"type": "string"}},
                "others": {"type": "array", "items": {"type": "string"}}
            }
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
