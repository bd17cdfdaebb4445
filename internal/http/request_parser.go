// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies are read once and may be JSON or form-encoded; numeric fields are
// accepted as JSON numbers or numeric strings, the way the web client sends them.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"moneytracker/internal/core"
)

const (
	defaultBodyLimit = 1 << 20
	importBodyLimit  = 8 << 20
)

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]json.RawMessage
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads up to limit bytes of the request body.
func NewRequestBodyParser(r *http.Request, limit int64) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, limit+1))
	if p.err == nil && int64(len(p.body)) > limit {
		p.err = fmt.Errorf("%w: request body exceeds %d bytes", core.ErrValidation, limit)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON body", core.ErrValidation)
			return p.err
		}
		return nil
	}
	if trimmed[0] == '[' {
		p.err = fmt.Errorf("%w: request body must be a JSON object", core.ErrValidation)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: invalid form body", core.ErrValidation)
	}
	return p.err
}

// Has reports whether key was sent, even with an empty or null value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if raw, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(raw)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// First returns the value of the first key present, for fields the web client
// has sent under more than one name.
func (p *RequestBodyParser) First(keys ...string) (string, string) {
	for _, k := range keys {
		if p.Has(k) {
			return k, p.Get(k)
		}
	}
	return "", ""
}

// GetID reads a positive integer id. Missing or empty yields 0.
func (p *RequestBodyParser) GetID(key string) (int64, error) {
	v := p.Get(key)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("%w: %s must be an integer", core.ErrValidation, key)
		}
		id = int64(f)
	}
	if id < 0 {
		return 0, fmt.Errorf("%w: %s must be positive", core.ErrValidation, key)
	}
	return id, nil
}

// GetAmount reads an amount in minor units, flooring fractions. Missing or empty
// yields 0 and leaves the positivity rule to domain validation.
func (p *RequestBodyParser) GetAmount(key string) (int64, error) {
	v := p.Get(key)
	if v == "" {
		return 0, nil
	}
	amount, err := core.ParseNonNegativeAmount(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", core.ErrValidation, key, err)
	}
	return amount, nil
}

// GetInt reads a plain integer such as a day of month.
func (p *RequestBodyParser) GetInt(key string) (int, error) {
	v := p.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrValidation, key)
	}
	return n, nil
}

// GetBool accepts true/false as well as the 1/0 the web client sends for checkboxes.
func (p *RequestBodyParser) GetBool(key string) (bool, error) {
	switch strings.ToLower(p.Get(key)) {
	case "1", "true", "on", "yes":
		return true, nil
	case "", "0", "false", "off", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", core.ErrValidation, key)
	}
}

// Decode unmarshals a nested JSON value into v. It fails when the body was not
// JSON or the key is missing; an explicit null leaves v untouched.
func (p *RequestBodyParser) Decode(key string, v any) error {
	raw, ok := p.jsonData[key]
	if !ok {
		return fmt.Errorf("%w: %s is required", core.ErrValidation, key)
	}
	if string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: invalid %s: %v", core.ErrValidation, key, err)
	}
	return nil
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue renders a scalar JSON value as text. Objects and arrays yield "".
func stringValue(raw json.RawMessage) string {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// monthQuery reads the required month query parameter.
func monthQuery(r *http.Request, name string) (core.MonthKey, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s query param required", core.ErrValidation, name)
	}
	return core.ParseMonthKey(v)
}

// pathID reads the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrValidation, r.PathValue("id"))
	}
	return id, nil
}
