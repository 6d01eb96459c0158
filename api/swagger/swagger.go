package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Registrar API",
        "description": "Course management and enrollment service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Students", "description": "Student records and academic standing"},
        {"name": "Courses", "description": "Course catalog and rosters"},
        {"name": "Professors", "description": "Faculty and teaching assignments"},
        {"name": "Enrollments", "description": "Admission, grading and withdrawal"},
        {"name": "Transcripts", "description": "Transcript views and async exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {"200": {"description": "Paginated students"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already used"},
                    "422": {"description": "Validation failed"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "responses": {"200": {"description": "Student"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "responses": {"200": {"description": "Updated"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student and enrollment history",
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        },
        "/students/{id}/transcript": {
            "get": {
                "tags": ["Transcripts"],
                "summary": "Student transcript with cumulative GPA",
                "responses": {"200": {"description": "Transcript"}, "404": {"description": "Not found"}}
            }
        },
        "/students/{id}/transcript/export": {
            "post": {
                "tags": ["Transcripts"],
                "summary": "Queue an asynchronous CSV or PDF export",
                "responses": {"202": {"description": "Export queued"}}
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "responses": {"200": {"description": "Paginated courses"}}
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create course",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Code already used or teaching load exceeded"}
                }
            }
        },
        "/courses/{id}/roster": {
            "get": {
                "tags": ["Courses"],
                "summary": "Active enrollments for a course",
                "responses": {"200": {"description": "Roster"}}
            }
        },
        "/professors": {
            "get": {
                "tags": ["Professors"],
                "summary": "List professors",
                "responses": {"200": {"description": "Paginated professors"}}
            },
            "post": {
                "tags": ["Professors"],
                "summary": "Create professor",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "responses": {"200": {"description": "Paginated enrollments"}}
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student in a course",
                "responses": {
                    "201": {"description": "Admitted"},
                    "404": {"description": "Student or course not found"},
                    "409": {"description": "Admission rule violated"}
                }
            }
        },
        "/enrollments/{studentId}/{courseId}": {
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Withdraw from a course",
                "responses": {"200": {"description": "Withdrawn"}, "404": {"description": "Not found"}}
            }
        },
        "/enrollments/{studentId}/{courseId}/grade": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Assign a letter grade",
                "responses": {"200": {"description": "Standing refreshed"}, "404": {"description": "Not found"}}
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
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
