package config

import "strings"

// NoMatchDefault is bound by a body extraction that matches nothing
// when the scenario does not declare its own default.
const NoMatchDefault = "User_Not_found"

// ApplyDefaults fills in the optional parts of a parsed scenario.
// It is called after schema and structural validation pass.
func ApplyDefaults(s *Scenario) {
	if s.Load.Threads <= 0 {
		s.Load.Threads = 1
	}
	if s.Load.Loops <= 0 {
		s.Load.Loops = 1
	}
	applyStepDefaults(s.Steps)
}

func applyStepDefaults(steps []StepConfig) {
	for i := range steps {
		step := &steps[i]
		switch {
		case step.Request != nil:
			applyRequestDefaults(step.Request)
		case step.ForEach != nil:
			applyStepDefaults(step.ForEach.Steps)
		case step.Loop != nil:
			applyStepDefaults(step.Loop.Steps)
		}
	}
}

func applyRequestDefaults(req *RequestConfig) {
	if req.Method == "" {
		req.Method = "GET"
	} else {
		req.Method = strings.ToUpper(req.Method)
	}
	for i := range req.Extract {
		ext := &req.Extract[i]
		if ext.Source == "" {
			if ext.Pattern != "" {
				ext.Source = SourceHeader
			} else {
				ext.Source = SourceBody
			}
		}
		if ext.Source == SourceBody && ext.Default == "" {
			ext.Default = NoMatchDefault
		}
	}
}
