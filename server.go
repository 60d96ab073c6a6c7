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

// Package oauth2 is an embeddable OAuth 2.0 authorization server core
// conforming to RFC 6749 and the RFC 6750 Bearer Token profile. It owns
// neither the HTTP transport nor persistent storage: a host constructs a
// Server around its own model.Model implementation and drives the three
// pipelines — Token, Authorize, Authenticate — from its own request
// handling code.
package oauth2

import (
	"context"
	"maps"

	"github.com/oauthforge/oauth2/grants"
	"github.com/oauthforge/oauth2/model"
)

// Server is a thin façade carrying the host's model plus per-pipeline
// defaults. Each of its three operations constructs a fresh, stateless
// handler and dispatches to it — the façade itself holds no per-request
// state (§5: "reentrant and stateless across requests").
type Server struct {
	model  model.Model
	grants map[string]grants.Factory

	tokenDefaults        TokenOptions
	authorizeDefaults    AuthorizeOptions
	authenticateDefaults AuthenticateOptions
}

// ServerOption configures a Server at construction time.
type ServerOption func(*Server)

// WithExtensionGrant registers an additional grant_type beyond the four
// RFC 6749 built-ins, e.g. grants.NewAPIKeyGrant under grants.APIKey.
func WithExtensionGrant(name string, factory grants.Factory) ServerOption {
	return func(s *Server) { s.grants[name] = factory }
}

// WithTokenDefaults overrides the server-level defaults Server.Token falls
// back to when a call omits an option.
func WithTokenDefaults(opts TokenOptions) ServerOption {
	return func(s *Server) { s.tokenDefaults = opts }
}

// WithAuthorizeDefaults overrides the server-level Authorize defaults.
func WithAuthorizeDefaults(opts AuthorizeOptions) ServerOption {
	return func(s *Server) { s.authorizeDefaults = opts }
}

// WithAuthenticateDefaults overrides the server-level Authenticate
// defaults.
func WithAuthenticateDefaults(opts AuthenticateOptions) ServerOption {
	return func(s *Server) { s.authenticateDefaults = opts }
}

// NewServer constructs a Server around m — the single mandatory
// dependency (§4.1) — with the four built-in grants registered and
// package defaults in effect until overridden by opts.
func NewServer(m model.Model, opts ...ServerOption) *Server {
	s := &Server{
		model:                m,
		grants:               grants.Builtins(),
		tokenDefaults:        DefaultTokenOptions(),
		authorizeDefaults:    DefaultAuthorizeOptions(),
		authenticateDefaults: DefaultAuthenticateOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token runs the §4.2 POST /token pipeline. Option precedence is
// per-call ▸ server-level ▸ package default (§4.1).
func (s *Server) Token(ctx context.Context, req *model.Request, opts ...TokenOption) (*model.Response, error) {
	options := s.tokenDefaults
	options.RequireClientAuthentication = maps.Clone(s.tokenDefaults.RequireClientAuthentication)
	for _, opt := range opts {
		opt(&options)
	}
	handler := NewTokenHandler(s.model, s.grants, options)
	return handler.Handle(ctx, req)
}

// Authorize runs the §4.4 GET|POST /authorize pipeline.
func (s *Server) Authorize(ctx context.Context, req *model.Request, opts ...AuthorizeOption) (*model.Response, error) {
	options := s.authorizeDefaults
	for _, opt := range opts {
		opt(&options)
	}
	handler := NewAuthorizeHandler(s.model, options)
	return handler.Handle(ctx, req)
}

// Authenticate runs the §4.5 bearer-token validation pipeline.
func (s *Server) Authenticate(ctx context.Context, req *model.Request, opts ...AuthenticateOption) (*model.Response, error) {
	options := s.authenticateDefaults
	for _, opt := range opts {
		opt(&options)
	}
	handler := NewAuthenticateHandler(s.model, options)
	return handler.Handle(ctx, req)
}
