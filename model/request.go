// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import "net/url"

// Request is an immutable, transport-agnostic view over a decoded HTTP
// request. The host constructs one from its own http.Request (or
// equivalent) before calling into any of the three pipelines — the core
// never touches net/http directly so it stays embeddable behind any HTTP
// framework the host chooses.
type Request struct {
	Method      string
	Headers     map[string][]string
	Query       url.Values
	Body        url.Values
	ContentType string
}

// Header returns the first value of the named header, case-sensitively
// keyed as the host supplied it (hosts are expected to use
// http.Header.Get-style canonicalization when populating Headers).
func (r *Request) Header(name string) string {
	if v, ok := r.Headers[name]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// Param returns the first value of name, preferring the body over the
// query string — this matches the source order the spec's §9 Open
// Questions call out for /authorize's dual redirect_uri source, and is
// applied uniformly to every parameter both endpoints read.
func (r *Request) Param(name string) string {
	if r.Body != nil {
		if v := r.Body.Get(name); v != "" {
			return v
		}
	}
	if r.Query != nil {
		return r.Query.Get(name)
	}
	return ""
}

// ParamSources reports how many of {body, query} carry a non-empty value
// for name — callers use this to reject simultaneous presence where the
// protocol requires a single source (§4.5 bearer token extraction).
func (r *Request) ParamSources(name string) int {
	n := 0
	if r.Body != nil && r.Body.Get(name) != "" {
		n++
	}
	if r.Query != nil && r.Query.Get(name) != "" {
		n++
	}
	return n
}

// Response is the value object a handler returns: a status, a JSON body
// (nil for redirects), a redirect target (empty for direct responses),
// and any headers the host must copy onto its own response writer.
type Response struct {
	Status      int
	Body        any
	Redirect    string
	Headers     map[string]string
}
