package routes

import "fmt"

type (
	Header struct {
		Name  string
		Value string
	}

	// HeaderModifierFilter adds, sets or removes headers. Add appends to
	// existing values while Set overwrites them.
	HeaderModifierFilter struct {
		Add    []Header
		Set    []Header
		Remove []string
	}

	// PathModifierType selects how a redirect rewrites the request path.
	PathModifierType int

	PathModifier struct {
		Type  PathModifierType
		Value string
	}

	// RequestRedirectFilter answers a request with a redirect. Zero values
	// keep the corresponding component of the original request.
	RequestRedirectFilter struct {
		Scheme string
		Host   string
		Path   *PathModifier
		Port   uint16
		Status uint16
	}

	// Ratio is a fraction Numerator/Denominator of requests.
	Ratio struct {
		Numerator   uint32
		Denominator uint32
	}

	// FailureInjectorFilter fails a ratio of requests with the given status
	// and message.
	FailureInjectorFilter struct {
		Status  uint16
		Message string
		Ratio   Ratio
	}
)

const (
	ReplaceFullPath PathModifierType = iota
	ReplacePrefixMatch
)

// DefaultRedirectStatus is used when a redirect does not name a status.
const DefaultRedirectStatus = 302

func (t PathModifierType) String() string {
	switch t {
	case ReplaceFullPath:
		return "ReplaceFullPath"
	case ReplacePrefixMatch:
		return "ReplacePrefixMatch"
	default:
		return fmt.Sprintf("PathModifierType(%d)", int(t))
	}
}

// Validate checks that the ratio is a fraction of at most one.
func (r Ratio) Validate() error {
	if r.Denominator == 0 {
		return fmt.Errorf("ratio denominator must be positive")
	}
	if r.Numerator > r.Denominator {
		return fmt.Errorf("ratio %d/%d exceeds 1", r.Numerator, r.Denominator)
	}
	return nil
}

// Validate checks the injected status and ratio.
func (f FailureInjectorFilter) Validate() error {
	if f.Status < 100 || f.Status > 599 {
		return fmt.Errorf("invalid failure status %d", f.Status)
	}
	return f.Ratio.Validate()
}

// Validate checks the redirect status code.
func (f RequestRedirectFilter) Validate() error {
	switch f.Status {
	case 0, 301, 302, 303, 307, 308:
		return nil
	default:
		return fmt.Errorf("invalid redirect status %d", f.Status)
	}
}
