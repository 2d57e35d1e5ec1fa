package http

import (
	"net/http"
)

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

// NewPayloadRequest picks the method from the payload: POST with data as the raw
// body when data is non-empty, GET otherwise.
func NewPayloadRequest(requestURL, data string, headers map[string]string) *Request {
	method := http.MethodGet
	if data != "" {
		method = http.MethodPost
	}
	r := NewRequest(method, requestURL)
	for k, v := range headers {
		r.SetHeader(k, v)
	}
	return r.SetBody(data)
}
