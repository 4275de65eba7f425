package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the API description.
// - GET /swagger/index.html  -> swagger-ui page loading doc.json
// - GET /swagger/doc.json    -> OpenAPI document, served as-is
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>progreview-api - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "progreview-api", "version": "v0.2.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Log in with username and password",
        "security": [],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["username","password"],"properties":{"username":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "access and refresh tokens" }, "401": { "description": "invalid credentials" }, "429": { "description": "too many login attempts" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate refresh token and issue a new access token", "security": [], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new tokens" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Current user", "responses": { "200": { "description": "public user" } } }
    },
    "/api/users": {
      "get": { "summary": "List users (Administrators)", "responses": { "200": { "description": "public users" } } }
    },
    "/api/user": {
      "post": { "summary": "Create user (Administrators)", "responses": { "201": { "description": "created" }, "400": { "description": "invalid input" }, "409": { "description": "username taken" } } }
    },
    "/api/user/{user_id}": {
      "get": { "summary": "Get user (Administrators)", "responses": { "200": { "description": "public user" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update user (Administrators)", "responses": { "200": { "description": "updated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete user (Administrators)", "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/api/departments": {
      "get": { "summary": "List departments with chairs (Administrators)", "responses": { "200": { "description": "departments" } } }
    },
    "/api/department": {
      "post": { "summary": "Create department (Administrators)", "responses": { "201": { "description": "created" } } }
    },
    "/api/department/{department_id}": {
      "get": { "summary": "Get department (Administrators)", "responses": { "200": { "description": "department" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update department (Administrators)", "responses": { "200": { "description": "updated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete department (Administrators)", "responses": { "204": { "description": "deleted" }, "400": { "description": "programs still reference it" }, "404": { "description": "not found" } } }
    },
    "/api/department/{department_id}/programs": {
      "get": { "summary": "Programs of a department (Administrators)", "responses": { "200": { "description": "programs" } } }
    },
    "/api/programs": {
      "get": { "summary": "List programs (Administrators)", "responses": { "200": { "description": "programs" } } }
    },
    "/api/program": {
      "post": { "summary": "Create program (Administrators)", "responses": { "201": { "description": "created" }, "400": { "description": "invalid input" } } }
    },
    "/api/program/{program_id}": {
      "get": { "summary": "Get program (Administrators)", "responses": { "200": { "description": "program" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update program (Administrators)", "responses": { "200": { "description": "updated" } } },
      "delete": { "summary": "Delete program (Administrators)", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/actions": {
      "get": { "summary": "Action log, newest first (Administrators)", "parameters": [ { "name": "page", "in": "query", "schema": { "type": "integer", "minimum": 0 } } ], "responses": { "200": { "description": "actions" } } }
    },
    "/api/documents": {
      "get": { "summary": "List documents", "responses": { "200": { "description": "documents" } } }
    },
    "/api/document": {
      "post": { "summary": "Create document", "responses": { "201": { "description": "created" } } }
    },
    "/api/document/{document_id}": {
      "get": { "summary": "Get document with comments", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update title and/or currentRevision", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"title":{"type":"string"},"currentRevision":{"type":"integer"}}}}}}, "responses": { "200": { "description": "updated" }, "400": { "description": "unknown field or invalid revision" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete document, its comments and revision files", "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/api/document/{document_id}/revision": {
      "post": { "summary": "Add empty revision", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"message":{"type":"string"}}}}}}, "responses": { "201": { "description": "created" }, "404": { "description": "not found" } } }
    },
    "/api/document/{document_id}/revision/{revision}": {
      "delete": { "summary": "Delete revision and its file", "responses": { "204": { "description": "deleted" }, "400": { "description": "invalid revision" }, "404": { "description": "not found" } } }
    },
    "/api/document/{document_id}/revision/{revision}/file": {
      "get": { "summary": "Download revision file", "responses": { "200": { "description": "file" }, "404": { "description": "no such revision or file" } } },
      "post": { "summary": "Upload revision file (multipart field file)", "responses": { "200": { "description": "stored" }, "400": { "description": "invalid extension" }, "404": { "description": "no such revision" }, "409": { "description": "revision already has a file" }, "413": { "description": "file too large" } } }
    },
    "/api/document/{document_id}/comment": {
      "get": { "summary": "List comments", "responses": { "200": { "description": "comments" } } },
      "post": { "summary": "Add comment", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"body":{"type":"string","maxLength":2000}}}}}}, "responses": { "201": { "description": "created" }, "400": { "description": "invalid body" } } }
    },
    "/api/document/{document_id}/comment/{comment_id}": {
      "delete": { "summary": "Delete comment", "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "metrics" } } } }
  }
}`
