package eachlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is a transport-ready request built from an Endpoint.
type Request struct {
	// Op labels the endpoint variant for errors and observers.
	Op     string
	Method string
	URL    *url.URL
	Header http.Header
	// Body is the serialized JSON envelope; nil for GET.
	Body []byte
}

// Build turns ep into a Request rooted at baseURL.
//
// baseURL and the endpoint path are concatenated verbatim and must form an
// absolute URL. Flow and trigger ids must not contain '/', '?' or '#'. POST
// variants always carry a body; a parameter value that cannot be encoded
// fails the build instead of producing an empty POST.
func Build(baseURL string, ep Endpoint) (*Request, error) {
	if ep == nil {
		return nil, &Error{Kind: KindInvalidURL, Err: errors.New("nil endpoint")}
	}
	op := opName(ep)

	for _, id := range pathIDs(ep) {
		if strings.ContainsAny(id, "/?#") {
			return nil, &Error{Op: op, Kind: KindInvalidURL, Err: fmt.Errorf("id %q must not contain '/', '?' or '#'", id)}
		}
	}

	u, err := resolveURL(baseURL + ep.Path())
	if err != nil {
		return nil, &Error{Op: op, Kind: KindInvalidURL, Err: err}
	}

	req := &Request{
		Op:     op,
		Method: ep.Method(),
		URL:    u,
		Header: ep.Headers(),
	}

	if env := envelope(ep); env != nil {
		body, err := json.Marshal(env)
		if err != nil {
			return nil, &Error{Op: op, Kind: KindEncode, Err: err}
		}
		req.Body = body
	}

	return req, nil
}

// HTTPRequest converts r into a *http.Request bound to ctx.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, r.URL.String(), body)
	if err != nil {
		return nil, &Error{Op: r.Op, Kind: KindInvalidURL, Err: err}
	}

	httpReq.Header = r.Header.Clone()
	return httpReq, nil
}

func resolveURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute url", raw)
	}
	return u, nil
}

// validateBaseURL checks a base URL the way Build would, with an empty path.
func validateBaseURL(base string) error {
	if _, err := resolveURL(base); err != nil {
		return &Error{Kind: KindInvalidURL, Err: err}
	}
	return nil
}
