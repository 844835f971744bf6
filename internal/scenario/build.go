package scenario

import (
	"fmt"
	"time"

	"github.com/wesleyorama2/riposte/internal/config"
)

// BuildPlan compiles a parsed scenario into the runnable step tree
// shared by every virtual user. The configuration must already be
// validated and defaulted.
func BuildPlan(cfg *config.Scenario) (*Plan, error) {
	steps, err := buildSteps(cfg.Steps)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string, len(cfg.Variables))
	for k, v := range cfg.Variables {
		vars[k] = v
	}

	return &Plan{
		Name:      cfg.Name,
		Variables: vars,
		Steps:     steps,
	}, nil
}

func buildSteps(configs []config.StepConfig) ([]Step, error) {
	steps := make([]Step, 0, len(configs))
	for i, sc := range configs {
		switch {
		case sc.Request != nil:
			step, err := buildRequest(sc.Request)
			if err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i, sc.Request.Name, err)
			}
			steps = append(steps, step)

		case sc.ForEach != nil:
			body, err := buildSteps(sc.ForEach.Steps)
			if err != nil {
				return nil, err
			}
			name := sc.ForEach.Name
			if name == "" {
				name = fmt.Sprintf("for_each(%s)", sc.ForEach.In)
			}
			steps = append(steps, &ForEachStep{
				Name:  name,
				In:    sc.ForEach.In,
				As:    sc.ForEach.As,
				Steps: body,
			})

		case sc.Loop != nil:
			body, err := buildSteps(sc.Loop.Steps)
			if err != nil {
				return nil, err
			}
			name := sc.Loop.Name
			if name == "" {
				name = "loop"
			}
			count := sc.Loop.Count
			if count == 0 && !sc.Loop.Forever {
				count = 1
			}
			steps = append(steps, &LoopStep{
				Name:    name,
				Count:   count,
				Forever: sc.Loop.Forever,
				Steps:   body,
			})

		default:
			return nil, fmt.Errorf("step %d: empty step", i)
		}
	}
	return steps, nil
}

func buildRequest(rc *config.RequestConfig) (*RequestStep, error) {
	step := &RequestStep{
		Name:      rc.Name,
		Method:    rc.Method,
		Path:      rc.Path,
		Body:      rc.Body,
		ThinkTime: time.Duration(rc.ThinkTime),
	}

	if len(rc.Headers) > 0 {
		step.Headers = make(map[string]string, len(rc.Headers))
		for k, v := range rc.Headers {
			step.Headers[k] = v
		}
	}

	for _, f := range rc.Fields {
		fieldType := FieldType(f.Type)
		if f.Type == "" {
			fieldType = FieldString
		}
		step.BodyFields = append(step.BodyFields, BodyField{
			Key:   f.Key,
			Value: f.Value,
			Type:  fieldType,
		})
	}

	for _, ext := range rc.Extract {
		switch ext.Source {
		case config.SourceHeader:
			he, err := NewHeaderExtract(ext.Name, ext.Pattern)
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", ext.Name, err)
			}
			step.HeaderExtracts = append(step.HeaderExtracts, he)
		default:
			step.JSONExtracts = append(step.JSONExtracts, &JSONExtract{
				Name:    ext.Name,
				Path:    ext.Path,
				Default: ext.Default,
			})
		}
	}

	if rc.Expect != nil && rc.Expect.Status != 0 {
		step.Expect = &Expect{Status: rc.Expect.Status}
	}
	return step, nil
}

// Expand renders ${name} references in a template against a plain
// variable map, outside any run. The base URL goes through this once
// before the HTTP client is built.
func Expand(template string, vars map[string]string) string {
	return NewRenderer(NewScopeFrom(vars)).Render(template)
}
