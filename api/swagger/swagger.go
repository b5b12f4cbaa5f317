package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Weekly timetable scheduling, exam blocks and teacher substitution",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {
            "name": "Timetable",
            "description": "Weekly grid, conflicts and undo/redo"
        },
        {
            "name": "ExamBlocks",
            "description": "Exam and activity blocks"
        },
        {
            "name": "Substitutions",
            "description": "Teacher absences and substitute assignment"
        },
        {
            "name": "Observability",
            "description": "Counters and probes"
        }
    ],
    "paths": {
        "/timetable/entries": {
            "get": {
                "tags": [
                    "Timetable"
                ],
                "summary": "List timetable entries",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "day",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "teacher_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "batch_id",
                        "in": "query",
                        "type": "string"
                    }
                ]
            },
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Place a lesson on the grid",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict or exam block",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/PlaceEntryRequest"
                        }
                    }
                ]
            }
        },
        "/timetable/entries/{id}": {
            "get": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Get a timetable entry",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    }
                ]
            },
            "patch": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Change teacher, batch or subject of an entry",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict or exam block",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateEntryRequest"
                        }
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Remove an entry",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    }
                ]
            }
        },
        "/timetable/entries/{id}/move": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Move an entry to another slot",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict or exam block",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Entry ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/MoveEntryRequest"
                        }
                    }
                ]
            }
        },
        "/timetable/undo": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Undo the latest change",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Nothing to undo",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/timetable/redo": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Re-apply the latest undone change",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Nothing to redo",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/timetable/history": {
            "get": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Show undo and redo stacks",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/timetable/conflicts": {
            "get": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Check a candidate slot for conflicts and exam blocks",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "day",
                        "in": "query",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "teacher_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "batch_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "exclude_entry_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string",
                        "description": "YYYY-MM-DD"
                    }
                ]
            }
        },
        "/timetable/teacher-loads": {
            "get": {
                "tags": [
                    "Timetable"
                ],
                "summary": "List teachers with their scheduled period counts",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/timetable/save": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Persist the current timetable",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/timetable/reload": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Discard unsaved changes and reload the persisted timetable",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/timetable/export": {
            "get": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Export the timetable as CSV or PDF",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    },
                    {
                        "name": "teacher_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "batch_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "day",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Rendered document",
                        "schema": {
                            "type": "file"
                        }
                    }
                }
            }
        },
        "/exam-blocks": {
            "get": {
                "tags": [
                    "ExamBlocks"
                ],
                "summary": "List active exam blocks",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string",
                        "description": "Only blocks covering this date"
                    }
                ]
            }
        },
        "/exam-blocks/check": {
            "get": {
                "tags": [
                    "ExamBlocks"
                ],
                "summary": "Check whether a dated slot is blocked",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "batch_id",
                        "in": "query",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/exam-blocks/refresh": {
            "post": {
                "tags": [
                    "ExamBlocks"
                ],
                "summary": "Reload active exam blocks from storage",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/absences": {
            "get": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "List teacher absences",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string"
                    }
                ]
            },
            "post": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "Record a teacher absence",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/MarkAbsentRequest"
                        }
                    }
                ]
            }
        },
        "/absences/{id}": {
            "delete": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "Cancel an absence and its substitutions",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Absence ID"
                    }
                ]
            }
        },
        "/substitutions": {
            "get": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "List substitution assignments",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string"
                    }
                ]
            },
            "post": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "Assign a substitute to an affected period",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict or exam block",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AssignSubstituteRequest"
                        }
                    }
                ]
            }
        },
        "/substitutions/affected": {
            "get": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "List lessons affected by absences on a date",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/substitutions/available": {
            "get": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "List teachers who could cover a dated period",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "name": "exclude_teacher_id",
                        "in": "query",
                        "type": "string"
                    }
                ]
            }
        },
        "/substitutions/{id}": {
            "delete": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "Delete a substitution",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Assignment ID"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    }
                }
            }
        },
        "/substitutions/{id}/confirm": {
            "post": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "Confirm a substitution",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Invalid status transition",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Assignment ID"
                    }
                ]
            }
        },
        "/substitutions/{id}/decline": {
            "post": {
                "tags": [
                    "Substitutions"
                ],
                "summary": "Decline a substitution, leaving the period uncovered",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Invalid status transition",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Assignment ID"
                    }
                ]
            }
        },
        "/stats": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Aggregated scheduler counters",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "PlaceEntryRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "day": {
                    "type": "string"
                },
                "period_number": {
                    "type": "integer"
                },
                "teacher_id": {
                    "type": "string"
                },
                "batch_id": {
                    "type": "string"
                },
                "subject_name": {
                    "type": "string"
                },
                "date": {
                    "type": "string",
                    "format": "date"
                }
            },
            "required": [
                "day",
                "period_number",
                "teacher_id",
                "batch_id"
            ]
        },
        "MoveEntryRequest": {
            "type": "object",
            "properties": {
                "day": {
                    "type": "string"
                },
                "period_number": {
                    "type": "integer"
                },
                "date": {
                    "type": "string",
                    "format": "date"
                }
            },
            "required": [
                "day",
                "period_number"
            ]
        },
        "UpdateEntryRequest": {
            "type": "object",
            "properties": {
                "teacher_id": {
                    "type": "string"
                },
                "batch_id": {
                    "type": "string"
                },
                "subject_name": {
                    "type": "string"
                }
            }
        },
        "MarkAbsentRequest": {
            "type": "object",
            "properties": {
                "teacher_id": {
                    "type": "string"
                },
                "date": {
                    "type": "string",
                    "format": "date"
                },
                "absence_type": {
                    "type": "string",
                    "enum": [
                        "full_day",
                        "partial"
                    ]
                },
                "periods": {
                    "type": "array",
                    "items": {
                        "type": "integer"
                    }
                },
                "reason": {
                    "type": "string"
                }
            },
            "required": [
                "teacher_id",
                "date",
                "absence_type"
            ]
        },
        "AssignSubstituteRequest": {
            "type": "object",
            "properties": {
                "absence_id": {
                    "type": "string"
                },
                "period": {
                    "type": "integer"
                },
                "substitute_teacher_id": {
                    "type": "string"
                }
            },
            "required": [
                "absence_id",
                "period",
                "substitute_teacher_id"
            ]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
