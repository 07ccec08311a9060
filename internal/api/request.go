package api

import (
	"maps"
	"net/http"
	"net/url"
)

// Method is the HTTP verb of a [Request].
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// Valid reports whether m is one of the supported verbs.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return true
	}
	return false
}

// Parameters are flat string key/value pairs sent with a [Request].
type Parameters map[string]string

// Request describes a single API call. The client never mutates it.
type Request struct {
	URL        string
	Method     Method
	Parameters Parameters
	Headers    map[string]string
}

// NewRequest builds a Request with no parameters or headers.
func NewRequest(method Method, rawURL string) Request {
	return Request{URL: rawURL, Method: method}
}

// WithParameters returns a copy of r carrying p.
func (r Request) WithParameters(p Parameters) Request {
	r.Parameters = maps.Clone(p)
	return r
}

// inBody reports whether parameters travel in the body instead of the query string.
func (r Request) inBody() bool {
	return r.Method == MethodPost
}

// EncodeParameters serializes p as key=value pairs joined with "&", ordered by key.
// Values are form-encoded so spaces become "+".
func EncodeParameters(p Parameters) string {
	if len(p) == 0 {
		return ""
	}
	values := make(url.Values, len(p))
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}

// DecodeParameters parses the output of [EncodeParameters].
func DecodeParameters(s string) (Parameters, error) {
	values, err := url.ParseQuery(s)
	if err != nil {
		return nil, err
	}
	p := make(Parameters, len(values))
	for k, v := range values {
		if len(v) > 0 {
			p[k] = v[0]
		}
	}
	return p, nil
}
