package scenario

import "time"

// Step is one node of a scenario: a request, a for-each, or a counted
// loop. The runner walks steps in order; there is no branching.
type Step interface {
	// StepName identifies the step in records and logs.
	StepName() string
}

// Expect declares the response a request step requires. A zero Status
// means any 2xx counts as success.
type Expect struct {
	Status int
}

// RequestStep performs one templated HTTP call, applies its
// extractions, and checks its expectation.
type RequestStep struct {
	Name    string
	Method  string
	Path    string
	Headers map[string]string

	// Body is a raw body template. BodyFields is the ordered typed
	// alternative; at most one of the two is set.
	Body       string
	BodyFields []BodyField

	JSONExtracts   []*JSONExtract
	HeaderExtracts []*HeaderExtract

	Expect    *Expect
	ThinkTime time.Duration
}

// StepName returns the step's configured name.
func (s *RequestStep) StepName() string { return s.Name }

// ForEachStep iterates an extracted list. Each element runs the body
// once with the element bound under As and its 0-based index under
// As_idx, in a pushed scope frame that merges down afterwards. A
// missing or empty input list means zero iterations.
type ForEachStep struct {
	Name  string
	In    string
	As    string
	Steps []Step
}

// StepName returns the step's configured name.
func (s *ForEachStep) StepName() string { return s.Name }

// LoopStep runs its body a fixed number of times, or until the pass is
// cancelled when Forever is set. Count 1 is the plain grouping form.
type LoopStep struct {
	Name    string
	Count   int
	Forever bool
	Steps   []Step
}

// StepName returns the step's configured name.
func (s *LoopStep) StepName() string { return s.Name }

// Plan is a fully built scenario: seed variables plus the step tree.
// A Plan is immutable once built and shared by every virtual user.
type Plan struct {
	Name      string
	Variables map[string]string
	Steps     []Step
}
