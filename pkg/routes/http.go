package routes

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type (
	// PathMatchType selects how a PathMatch value is compared.
	PathMatchType int

	// ValueMatchType selects how a header or query parameter value is
	// compared.
	ValueMatchType int

	// HTTPRouteMatch is a set of predicates that must all hold for a request
	// to match. Unset fields match everything.
	HTTPRouteMatch struct {
		Path        *PathMatch
		Headers     []HeaderMatch
		QueryParams []QueryParamMatch
		Method      string
	}

	PathMatch struct {
		Type  PathMatchType
		Value string
	}

	HeaderMatch struct {
		Name  string
		Type  ValueMatchType
		Value string
	}

	QueryParamMatch struct {
		Name  string
		Type  ValueMatchType
		Value string
	}
)

const (
	PathMatchPrefix PathMatchType = iota
	PathMatchExact
	PathMatchRegex
)

const (
	ValueMatchExact ValueMatchType = iota
	ValueMatchRegex
)

var errEmptyName = errors.New("match name must not be empty")

func (t PathMatchType) String() string {
	switch t {
	case PathMatchPrefix:
		return "Prefix"
	case PathMatchExact:
		return "Exact"
	case PathMatchRegex:
		return "Regex"
	default:
		return fmt.Sprintf("PathMatchType(%d)", int(t))
	}
}

func (t ValueMatchType) String() string {
	switch t {
	case ValueMatchExact:
		return "Exact"
	case ValueMatchRegex:
		return "Regex"
	default:
		return fmt.Sprintf("ValueMatchType(%d)", int(t))
	}
}

// Validate checks that paths are absolute and that every regular expression
// compiles.
func (m HTTPRouteMatch) Validate() error {
	if m.Path != nil {
		switch m.Path.Type {
		case PathMatchPrefix, PathMatchExact:
			if !strings.HasPrefix(m.Path.Value, "/") {
				return fmt.Errorf("path %q must be absolute", m.Path.Value)
			}
		case PathMatchRegex:
			if _, err := regexp.Compile(m.Path.Value); err != nil {
				return fmt.Errorf("invalid path regex %q: %w", m.Path.Value, err)
			}
		default:
			return fmt.Errorf("unknown path match type %s", m.Path.Type)
		}
	}

	for _, h := range m.Headers {
		if err := validateValueMatch(h.Name, h.Type, h.Value); err != nil {
			return fmt.Errorf("invalid header match: %w", err)
		}
	}
	for _, q := range m.QueryParams {
		if err := validateValueMatch(q.Name, q.Type, q.Value); err != nil {
			return fmt.Errorf("invalid query parameter match: %w", err)
		}
	}
	return nil
}

func validateValueMatch(name string, typ ValueMatchType, value string) error {
	if name == "" {
		return errEmptyName
	}
	switch typ {
	case ValueMatchExact:
		return nil
	case ValueMatchRegex:
		if _, err := regexp.Compile(value); err != nil {
			return fmt.Errorf("%s: invalid regex %q: %w", name, value, err)
		}
		return nil
	default:
		return fmt.Errorf("%s: unknown match type %s", name, typ)
	}
}
