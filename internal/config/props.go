package config

import (
	"fmt"
	"strconv"
	"strings"
)

// envPropPrefix marks environment variables that carry injected
// properties, e.g. RIPOSTE_PROP_HOSTNAME=10.0.0.4.
const envPropPrefix = "RIPOSTE_PROP_"

// ParseProps parses key=value property pairs as given on the command
// line.
func ParseProps(pairs []string) (map[string]string, error) {
	props := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q (want key=value)", pair)
		}
		props[key] = value
	}
	return props, nil
}

// EnvProps collects injected properties from the environment. Names
// are the part after the RIPOSTE_PROP_ prefix, lowercased, so
// RIPOSTE_PROP_IAM_USERNAME sets the property iam_username.
func EnvProps(environ []string) map[string]string {
	props := make(map[string]string)
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, envPropPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, envPropPrefix))
		if name == "" {
			continue
		}
		props[name] = value
	}
	return props
}

// ApplyProperties overlays injected properties onto a parsed scenario.
// The reserved keys threads, loops, and rampup adjust the load
// profile; every other key seeds or overrides a scenario variable.
func ApplyProperties(s *Scenario, props map[string]string) error {
	for key, value := range props {
		switch key {
		case "threads":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("property threads: %q is not a positive integer", value)
			}
			s.Load.Threads = n
		case "loops":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 1 {
				return fmt.Errorf("property loops: %q is not a positive integer", value)
			}
			s.Load.Loops = n
		case "rampup":
			d, err := ParseDurationString(value)
			if err != nil {
				return fmt.Errorf("property rampup: %v", err)
			}
			s.Load.RampUp = Duration(d)
		default:
			if s.Variables == nil {
				s.Variables = make(map[string]string)
			}
			s.Variables[key] = value
		}
	}
	return nil
}
