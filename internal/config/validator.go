package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wesleyorama2/riposte/pkg/jsonschema"
)

// ValidationError represents a single field-scoped validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// Validate performs structural checks beyond what the schema can
// express and returns every failure found.
func (s *Scenario) Validate() []ValidationError {
	var errs []ValidationError

	if s.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "scenario name is required"})
	}
	if s.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "base_url", Message: "base URL is required"})
	}
	if s.Load.Threads < 0 {
		errs = append(errs, ValidationError{Field: "load.threads", Message: "threads cannot be negative"})
	}
	if s.Load.Loops < 0 {
		errs = append(errs, ValidationError{Field: "load.loops", Message: "loops cannot be negative"})
	}
	if s.Load.RampUp < 0 {
		errs = append(errs, ValidationError{Field: "load.ramp_up", Message: "ramp-up cannot be negative"})
	}
	if len(s.Steps) == 0 {
		errs = append(errs, ValidationError{Field: "steps", Message: "at least one step is required"})
	}

	errs = append(errs, validateSteps(s.Steps, "steps")...)
	return errs
}

func validateSteps(steps []StepConfig, field string) []ValidationError {
	var errs []ValidationError
	for i, step := range steps {
		stepField := fmt.Sprintf("%s[%d]", field, i)

		set := 0
		if step.Request != nil {
			set++
		}
		if step.ForEach != nil {
			set++
		}
		if step.Loop != nil {
			set++
		}
		if set != 1 {
			errs = append(errs, ValidationError{
				Field:   stepField,
				Message: "exactly one of request, for_each, or loop must be set",
			})
			continue
		}

		switch {
		case step.Request != nil:
			errs = append(errs, validateRequest(step.Request, stepField+".request")...)
		case step.ForEach != nil:
			errs = append(errs, validateForEach(step.ForEach, stepField+".for_each")...)
		case step.Loop != nil:
			errs = append(errs, validateLoop(step.Loop, stepField+".loop")...)
		}
	}
	return errs
}

func validateRequest(req *RequestConfig, field string) []ValidationError {
	var errs []ValidationError

	if req.Name == "" {
		errs = append(errs, ValidationError{Field: field + ".name", Message: "request name is required"})
	}
	if req.Path == "" {
		errs = append(errs, ValidationError{Field: field + ".path", Message: "request path is required"})
	}
	if req.Method != "" && !validMethods[strings.ToUpper(req.Method)] {
		errs = append(errs, ValidationError{
			Field:   field + ".method",
			Message: fmt.Sprintf("unsupported method %q", req.Method),
		})
	}
	if req.Body != "" && len(req.Fields) > 0 {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "body and body_fields are mutually exclusive",
		})
	}
	for i, f := range req.Fields {
		fieldField := fmt.Sprintf("%s.body_fields[%d]", field, i)
		if f.Key == "" {
			errs = append(errs, ValidationError{Field: fieldField + ".key", Message: "field key is required"})
		}
		switch f.Type {
		case "", FieldTypeString, FieldTypeBool, FieldTypeInt, FieldTypeRaw:
		default:
			errs = append(errs, ValidationError{
				Field:   fieldField + ".type",
				Message: fmt.Sprintf("unsupported field type %q", f.Type),
			})
		}
	}
	for i, ext := range req.Extract {
		errs = append(errs, validateExtract(&ext, fmt.Sprintf("%s.extract[%d]", field, i))...)
	}
	if req.Expect != nil && req.Expect.Status != 0 && (req.Expect.Status < 100 || req.Expect.Status > 599) {
		errs = append(errs, ValidationError{
			Field:   field + ".expect.status",
			Message: fmt.Sprintf("status %d outside 100..599", req.Expect.Status),
		})
	}
	if req.ThinkTime < 0 {
		errs = append(errs, ValidationError{Field: field + ".think_time", Message: "think time cannot be negative"})
	}
	return errs
}

func validateExtract(ext *ExtractConfig, field string) []ValidationError {
	var errs []ValidationError

	if ext.Name == "" {
		errs = append(errs, ValidationError{Field: field + ".name", Message: "extract name is required"})
	}

	source := ext.Source
	if source == "" {
		// Source is inferred from which expression is present.
		switch {
		case ext.Path != "" && ext.Pattern == "":
			source = SourceBody
		case ext.Pattern != "" && ext.Path == "":
			source = SourceHeader
		default:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "exactly one of path (body) or pattern (header) must be set",
			})
			return errs
		}
	}

	switch source {
	case SourceBody:
		if ext.Path == "" {
			errs = append(errs, ValidationError{Field: field + ".path", Message: "body extraction requires a path"})
		}
	case SourceHeader:
		if ext.Pattern == "" {
			errs = append(errs, ValidationError{Field: field + ".pattern", Message: "header extraction requires a pattern"})
		} else if _, err := regexp.Compile(ext.Pattern); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".pattern",
				Message: fmt.Sprintf("invalid pattern: %v", err),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   field + ".source",
			Message: fmt.Sprintf("unsupported source %q", ext.Source),
		})
	}
	return errs
}

func validateForEach(fe *ForEachConfig, field string) []ValidationError {
	var errs []ValidationError
	if fe.In == "" {
		errs = append(errs, ValidationError{Field: field + ".in", Message: "for_each input reference is required"})
	}
	if fe.As == "" {
		errs = append(errs, ValidationError{Field: field + ".as", Message: "for_each output reference is required"})
	}
	if len(fe.Steps) == 0 {
		errs = append(errs, ValidationError{Field: field + ".steps", Message: "for_each body cannot be empty"})
	}
	errs = append(errs, validateSteps(fe.Steps, field+".steps")...)
	return errs
}

func validateLoop(loop *LoopConfig, field string) []ValidationError {
	var errs []ValidationError
	if loop.Count < 0 {
		errs = append(errs, ValidationError{Field: field + ".count", Message: "count cannot be negative"})
	}
	if len(loop.Steps) == 0 {
		errs = append(errs, ValidationError{Field: field + ".steps", Message: "loop body cannot be empty"})
	}
	errs = append(errs, validateSteps(loop.Steps, field+".steps")...)
	return errs
}

// ValidateSchema checks raw scenario data against the embedded JSON
// Schema. data may be YAML or JSON; path picks the format.
func ValidateSchema(data []byte, path string) error {
	doc, err := AsJSON(data, path)
	if err != nil {
		return err
	}
	valid, errs := jsonschema.ValidateWithErrors(string(doc), scenarioSchema)
	if !valid {
		return errs
	}
	return nil
}
