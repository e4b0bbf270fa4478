package eachlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Object is a response body validated to be a JSON object.
type Object struct {
	raw []byte
}

// ParseObject validates raw as a JSON object.
func ParseObject(raw []byte) (Object, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Object{}, &Error{Kind: KindDecode, Err: errors.New("empty body")}
	}
	if !gjson.ValidBytes(raw) {
		return Object{}, &Error{Kind: KindDecode, Err: errors.New("invalid json in response")}
	}
	if res := gjson.ParseBytes(raw); !res.IsObject() {
		return Object{}, &Error{Kind: KindShape, Err: fmt.Errorf("top-level json is %s", describe(res))}
	}
	return Object{raw: raw}, nil
}

// Raw returns the body bytes.
func (o Object) Raw() []byte { return o.raw }

// Get looks up a gjson path in the object.
func (o Object) Get(path string) gjson.Result {
	return gjson.GetBytes(o.raw, path)
}

// Map returns the object decoded into Go values. Numbers are json.Number so
// integers wider than 53 bits keep every digit.
func (o Object) Map() map[string]any {
	m := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(o.raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Transport sends one Request and classifies the outcome.
type Transport struct {
	doer     Doer
	observer Observer

	// passthrough disables the non-2xx check.
	passthrough bool
}

// NewTransport returns a Transport using doer. A nil doer uses a plain
// *http.Client; a nil observer discards events.
func NewTransport(doer Doer, obs Observer) *Transport {
	if doer == nil {
		doer = &http.Client{}
	}
	if obs == nil {
		obs = NoopObserver{}
	}
	return &Transport{doer: doer, observer: obs}
}

// Execute performs exactly one HTTP call for req and returns the parsed
// object, or an *Error matching ErrNoResult.
func (t *Transport) Execute(ctx context.Context, req *Request) (Object, error) {
	info := RequestInfo{Op: req.Op, Method: req.Method, Path: req.URL.Path}
	t.observer.OnRequestStart(ctx, info)
	start := time.Now()

	obj, code, err := t.execute(ctx, req)

	info.StatusCode = code
	t.observer.OnRequestCompleted(ctx, info, err, time.Since(start))
	return obj, err
}

func (t *Transport) execute(ctx context.Context, req *Request) (Object, int, error) {
	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return Object{}, 0, err
	}

	resp, err := t.doer.Do(httpReq)
	if err != nil {
		return Object{}, 0, &Error{Op: req.Op, Kind: KindTransport, Err: err}
	}
	if resp == nil {
		return Object{}, 0, &Error{Op: req.Op, Kind: KindTransport, Err: errors.New("no response")}
	}
	if resp.Body == nil {
		return Object{}, resp.StatusCode, &Error{Op: req.Op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: errors.New("missing body")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Object{}, resp.StatusCode, &Error{Op: req.Op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if !t.passthrough && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return Object{}, resp.StatusCode, &Error{
			Op:         req.Op,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("request failed: %s - %s", resp.Status, truncate(body, 512)),
		}
	}

	obj, err := ParseObject(body)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Op = req.Op
			e.StatusCode = resp.StatusCode
		}
		return Object{}, resp.StatusCode, err
	}
	return obj, resp.StatusCode, nil
}

func describe(res gjson.Result) string {
	switch {
	case res.IsArray():
		return "an array"
	case res.Type == gjson.String:
		return "a string"
	case res.Type == gjson.Number:
		return "a number"
	case res.Type == gjson.True || res.Type == gjson.False:
		return "a boolean"
	case res.Type == gjson.Null:
		return "null"
	default:
		return "not an object"
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
