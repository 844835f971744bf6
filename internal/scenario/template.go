package scenario

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// placeholderPattern matches ${...} references. Nesting is not part
	// of the template language.
	placeholderPattern = regexp.MustCompile(`\$\{([^{}]*)\}`)

	// randomPattern matches the random(min,max[,name]) function form
	// inside a placeholder.
	randomPattern = regexp.MustCompile(`^random\(\s*(-?\d+)\s*,\s*(-?\d+)\s*(?:,\s*([A-Za-z0-9_]+)\s*)?\)$`)
)

// FieldType declares how a rendered body field value is coerced before
// JSON serialization.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldBool   FieldType = "bool"
	FieldInt    FieldType = "int"
	FieldRaw    FieldType = "raw"
)

// BodyField is one entry of an ordered JSON body: a target key, a value
// template, and the type the rendered value is coerced to.
type BodyField struct {
	Key   string
	Value string
	Type  FieldType
}

// Renderer substitutes ${name} references and ${random(...)} function
// calls in templates against a Scope. Like the Scope it reads, a
// Renderer belongs to one virtual user.
type Renderer struct {
	scope *Scope
	rng   *rand.Rand
}

// NewRenderer returns a renderer over scope with a time-seeded random
// source.
func NewRenderer(scope *Scope) *Renderer {
	return NewRendererWithSeed(scope, time.Now().UnixNano())
}

// NewRendererWithSeed returns a renderer whose random draws are
// reproducible from seed.
func NewRendererWithSeed(scope *Scope, seed int64) *Renderer {
	return &Renderer{
		scope: scope,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Render substitutes every ${...} placeholder in tmpl:
//
//   - ${name} becomes the scope value of name, or the empty string when
//     name is unbound;
//   - ${random(min,max)} becomes a fresh integer in [min,max);
//   - ${random(min,max,name)} additionally writes the drawn digits back
//     to the scope under name, so later templates can reuse the draw.
//
// Two renders of the same template against the same bindings differ
// only in fresh random draws.
func (r *Renderer) Render(tmpl string) string {
	if !strings.Contains(tmpl, "${") {
		return tmpl
	}
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		ref := match[2 : len(match)-1]
		if args := randomPattern.FindStringSubmatch(ref); args != nil {
			return r.renderRandom(args)
		}
		return r.scope.GetDefault(strings.TrimSpace(ref), "")
	})
}

// RenderFields renders an ordered field list into a compact JSON
// object, preserving declaration order and coercing each value to its
// declared type.
func (r *Renderer) RenderFields(fields []BodyField) (string, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", field.Key, err)
		}
		sb.Write(key)
		sb.WriteByte(':')

		rendered := r.Render(field.Value)
		switch field.Type {
		case FieldBool:
			b, err := strconv.ParseBool(strings.TrimSpace(rendered))
			if err != nil {
				return "", fmt.Errorf("field %q: %q is not a bool", field.Key, rendered)
			}
			sb.WriteString(strconv.FormatBool(b))
		case FieldInt:
			n, err := strconv.ParseInt(strings.TrimSpace(rendered), 10, 64)
			if err != nil {
				return "", fmt.Errorf("field %q: %q is not an integer", field.Key, rendered)
			}
			sb.WriteString(strconv.FormatInt(n, 10))
		case FieldRaw:
			if !json.Valid([]byte(rendered)) {
				return "", fmt.Errorf("field %q: rendered value is not valid JSON", field.Key)
			}
			sb.WriteString(rendered)
		default:
			value, err := json.Marshal(rendered)
			if err != nil {
				return "", fmt.Errorf("field %q: %w", field.Key, err)
			}
			sb.Write(value)
		}
	}
	sb.WriteByte('}')
	return sb.String(), nil
}

// renderRandom draws from [min,max) and applies the optional write-back.
// args is the randomPattern submatch slice.
func (r *Renderer) renderRandom(args []string) string {
	min, _ := strconv.Atoi(strings.TrimSpace(args[1]))
	max, _ := strconv.Atoi(strings.TrimSpace(args[2]))

	n := min
	if max > min {
		n = min + r.rng.Intn(max-min)
	}
	digits := strconv.Itoa(n)

	if name := args[3]; name != "" {
		r.scope.Set(name, digits)
	}
	return digits
}
