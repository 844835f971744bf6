package config

// scenarioSchema is the JSON Schema every scenario document must
// satisfy before structural validation runs. YAML documents are
// converted to JSON first (see AsJSON).
const scenarioSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Scenario",
  "type": "object",
  "required": ["name", "base_url", "steps"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "base_url": {"type": "string", "minLength": 1},
    "variables": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "load": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "threads": {"type": "integer", "minimum": 0},
        "loops": {"type": "integer", "minimum": 0},
        "ramp_up": {"$ref": "#/definitions/duration"},
        "graceful_stop": {"$ref": "#/definitions/duration"}
      }
    },
    "http": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "timeout": {"$ref": "#/definitions/duration"},
        "insecure_skip_verify": {"type": "boolean"},
        "disable_keep_alives": {"type": "boolean"},
        "max_idle_conns_per_host": {"type": "integer", "minimum": 0}
      }
    },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/definitions/step"}
    }
  },
  "definitions": {
    "duration": {"type": ["string", "number"]},
    "step": {
      "type": "object",
      "minProperties": 1,
      "maxProperties": 1,
      "additionalProperties": false,
      "properties": {
        "request": {"$ref": "#/definitions/request"},
        "for_each": {"$ref": "#/definitions/for_each"},
        "loop": {"$ref": "#/definitions/loop"}
      }
    },
    "request": {
      "type": "object",
      "required": ["name", "path"],
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "method": {
          "type": "string",
          "enum": ["GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"]
        },
        "path": {"type": "string", "minLength": 1},
        "headers": {
          "type": "object",
          "additionalProperties": {"type": "string"}
        },
        "body": {"type": "string"},
        "body_fields": {
          "type": "array",
          "items": {"$ref": "#/definitions/body_field"}
        },
        "extract": {
          "type": "array",
          "items": {"$ref": "#/definitions/extract"}
        },
        "expect": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "status": {"type": "integer", "minimum": 100, "maximum": 599}
          }
        },
        "think_time": {"$ref": "#/definitions/duration"}
      }
    },
    "body_field": {
      "type": "object",
      "required": ["key", "value"],
      "additionalProperties": false,
      "properties": {
        "key": {"type": "string", "minLength": 1},
        "value": {"type": "string"},
        "type": {"type": "string", "enum": ["string", "bool", "int", "raw"]}
      }
    },
    "extract": {
      "type": "object",
      "required": ["name"],
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "source": {"type": "string", "enum": ["body", "header"]},
        "path": {"type": "string"},
        "pattern": {"type": "string"},
        "default": {"type": "string"}
      }
    },
    "for_each": {
      "type": "object",
      "required": ["in", "as", "steps"],
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string"},
        "in": {"type": "string", "minLength": 1},
        "as": {"type": "string", "minLength": 1},
        "steps": {
          "type": "array",
          "minItems": 1,
          "items": {"$ref": "#/definitions/step"}
        }
      }
    },
    "loop": {
      "type": "object",
      "required": ["steps"],
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string"},
        "count": {"type": "integer", "minimum": 0},
        "forever": {"type": "boolean"},
        "steps": {
          "type": "array",
          "minItems": 1,
          "items": {"$ref": "#/definitions/step"}
        }
      }
    }
  }
}`
