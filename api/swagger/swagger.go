package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Literacy Tracker API",
        "description": "Classroom literacy assessment tracking: classes, students, assessments and month-bucketed progress",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Teacher authentication"},
        {"name": "Classes", "description": "Class roster management"},
        {"name": "Students", "description": "Student enrollment and assessments"},
        {"name": "Dashboard", "description": "Teacher-wide aggregates"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a teacher",
                "responses": {
                    "200": {"description": "Access token and account info"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current account",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Account info"}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List the teacher's classes",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Classes with pagination"}}
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create a class",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created class"}}
            }
        },
        "/classes/{id}": {
            "get": {
                "tags": ["Classes"],
                "summary": "Get one class",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Class"}, "404": {"description": "Unknown class"}}
            },
            "patch": {
                "tags": ["Classes"],
                "summary": "Partially update a class",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Updated class"}}
            },
            "delete": {
                "tags": ["Classes"],
                "summary": "Delete a class and its roster",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/classes/{id}/students": {
            "get": {
                "tags": ["Classes"],
                "summary": "List the class roster",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Students"}}
            }
        },
        "/classes/{id}/statistics": {
            "get": {
                "tags": ["Classes"],
                "summary": "Class tier distribution and mean scores",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Class statistics"}}
            }
        },
        "/classes/{id}/progress": {
            "get": {
                "tags": ["Classes"],
                "summary": "Month-bucketed class progress",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Progress points"}}
            }
        },
        "/classes/{id}/export": {
            "get": {
                "tags": ["Classes"],
                "summary": "Download the class roster (csv, pdf or xlsx)",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Rendered file"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List the teacher's students",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Students with pagination"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Enroll a student",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created student"}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get a student with assessment history",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Student"}, "404": {"description": "Unknown student"}}
            },
            "patch": {
                "tags": ["Students"],
                "summary": "Partially update a student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Updated student"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Remove a student",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/students/{id}/assessments": {
            "post": {
                "tags": ["Students"],
                "summary": "Record an assessment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Student with updated level and history"},
                    "400": {"description": "Scores out of range"}
                }
            }
        },
        "/students/{id}/progress": {
            "get": {
                "tags": ["Students"],
                "summary": "Month-bucketed progress for one student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Progress points"}}
            }
        },
        "/dashboard/statistics": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Tier distribution across all of the teacher's students",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Statistics"}}
            }
        },
        "/dashboard/progress": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Month-bucketed progress across all of the teacher's students",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Progress points"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
