// Package config loads stub collections from YAML or JSON fixture files
// and converts them into registered stub requests.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/getstubd/stubd/internal/matching"
	"github.com/getstubd/stubd/pkg/matcher"
	"github.com/getstubd/stubd/pkg/stub"
)

// StubCollection is the root of a fixture file.
type StubCollection struct {
	// Stubs are applied in file order; file order is match priority.
	Stubs []StubDefinition `json:"stubs" yaml:"stubs"`
}

// StubDefinition describes one stub in a fixture file. Exactly one of
// Response and Failure must be set.
type StubDefinition struct {
	// Name is an optional label used in diagnostics.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Request describes which requests the stub intercepts.
	Request RequestDefinition `json:"request" yaml:"request"`

	// Response is the canned reply.
	Response *ResponseDefinition `json:"response,omitempty" yaml:"response,omitempty"`

	// Failure makes the stub report a client-level error instead.
	Failure *FailureDefinition `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// RequestDefinition is the pattern side of a stub definition. Exactly one
// of URL, URLPattern, and URLGlob must be set.
type RequestDefinition struct {
	// Method is the HTTP method to intercept.
	Method string `json:"method" yaml:"method"`

	// URL matches the full request URL exactly.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// URLPattern matches the full request URL against a regex.
	URLPattern string `json:"urlPattern,omitempty" yaml:"urlPattern,omitempty"`

	// URLGlob matches the full request URL against a glob (** supported).
	URLGlob string `json:"urlGlob,omitempty" yaml:"urlGlob,omitempty"`

	// Headers are exact-value header constraints (case-insensitive names).
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Body matches the request body exactly.
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// BodyPattern matches the request body against a regex.
	BodyPattern string `json:"bodyPattern,omitempty" yaml:"bodyPattern,omitempty"`

	// BodyJSONPath maps JSONPath expressions to required values.
	BodyJSONPath map[string]any `json:"bodyJsonPath,omitempty" yaml:"bodyJsonPath,omitempty"`
}

// ResponseDefinition is the response side of a stub definition.
type ResponseDefinition struct {
	Status  int               `json:"status" yaml:"status"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
	DelayMs int               `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`
}

// FailureDefinition configures an intentional transport-level error.
type FailureDefinition struct {
	Message string `json:"message" yaml:"message"`
}

// Validate checks a collection for structural errors: missing methods,
// ambiguous URL forms, uncompilable patterns, and response/failure
// conflicts. Returns all problems joined.
func (c *StubCollection) Validate() error {
	var errs []error
	for i := range c.Stubs {
		if err := c.Stubs[i].validate(); err != nil {
			errs = append(errs, fmt.Errorf("stub %d (%s): %w", i, c.Stubs[i].label(i), err))
		}
	}
	return errors.Join(errs...)
}

func (d *StubDefinition) label(i int) string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("#%d", i)
}

func (d *StubDefinition) validate() error {
	if d.Request.Method == "" {
		return errors.New("request.method is required")
	}

	urlForms := 0
	for _, form := range []string{d.Request.URL, d.Request.URLPattern, d.Request.URLGlob} {
		if form != "" {
			urlForms++
		}
	}
	if urlForms != 1 {
		return errors.New("exactly one of request.url, request.urlPattern, request.urlGlob is required")
	}
	if d.Request.URLPattern != "" {
		if _, err := matcher.Regex(d.Request.URLPattern); err != nil {
			return err
		}
	}
	if d.Request.URLGlob != "" {
		if _, err := matcher.Glob(d.Request.URLGlob); err != nil {
			return err
		}
	}

	if d.Request.Body != "" && d.Request.BodyPattern != "" {
		return errors.New("request.body and request.bodyPattern are mutually exclusive")
	}
	if d.Request.BodyPattern != "" {
		if _, err := matcher.Regex(d.Request.BodyPattern); err != nil {
			return err
		}
	}
	for path := range d.Request.BodyJSONPath {
		if err := matching.ValidateJSONPathExpression(path); err != nil {
			return err
		}
	}

	switch {
	case d.Response == nil && d.Failure == nil:
		return errors.New("one of response and failure is required")
	case d.Response != nil && d.Failure != nil:
		return errors.New("response and failure are mutually exclusive")
	case d.Response != nil && d.Response.Status == 0:
		return errors.New("response.status is required")
	case d.Failure != nil && d.Failure.Message == "":
		return errors.New("failure.message is required")
	}
	return nil
}

// Build converts a validated collection into stub requests, in file order.
func (c *StubCollection) Build() ([]*stub.Request, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	stubs := make([]*stub.Request, 0, len(c.Stubs))
	for i := range c.Stubs {
		s, err := c.Stubs[i].build()
		if err != nil {
			return nil, fmt.Errorf("stub %d (%s): %w", i, c.Stubs[i].label(i), err)
		}
		stubs = append(stubs, s)
	}
	return stubs, nil
}

func (d *StubDefinition) build() (*stub.Request, error) {
	urlMatcher, err := d.urlMatcher()
	if err != nil {
		return nil, err
	}

	s := stub.New(d.Request.Method, urlMatcher)
	s.Name = d.Name
	for name, value := range d.Request.Headers {
		s.SetHeader(name, matcher.String(value))
	}
	switch {
	case d.Request.Body != "":
		s.SetBody(matcher.String(d.Request.Body))
	case d.Request.BodyPattern != "":
		m, err := matcher.Regex(d.Request.BodyPattern)
		if err != nil {
			return nil, err
		}
		s.SetBody(m)
	}
	if len(d.Request.BodyJSONPath) > 0 {
		s.BodyJSONPath = d.Request.BodyJSONPath
	}

	if d.Failure != nil {
		s.Response = stub.NewFailureResponse(errors.New(d.Failure.Message))
		return s, nil
	}

	resp := stub.NewResponse(d.Response.Status)
	resp.Body = []byte(d.Response.Body)
	resp.Delay = time.Duration(d.Response.DelayMs) * time.Millisecond
	for name, value := range d.Response.Headers {
		resp.SetHeader(name, value)
	}
	s.Response = resp
	return s, nil
}

func (d *StubDefinition) urlMatcher() (matcher.Matcher, error) {
	switch {
	case d.Request.URL != "":
		return matcher.String(d.Request.URL), nil
	case d.Request.URLPattern != "":
		return matcher.Regex(d.Request.URLPattern)
	case d.Request.URLGlob != "":
		return matcher.Glob(d.Request.URLGlob)
	default:
		return nil, errors.New("no URL form set")
	}
}
