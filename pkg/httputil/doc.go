// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, validation, and common HTTP middleware patterns.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, resource)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteUnauthorized(w, "Token expired")
//	httputil.WriteForbidden(w, "Insufficient permissions")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req revokeRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	id, err := httputil.ParsePathInt64(r, "id")
//	slug, err := httputil.ParsePathString(r, "slug")
//
// Query parameters:
//
//	limit, err := httputil.ParseQueryInt(r, "limit", 20)
//	offset, err := httputil.ParseQueryInt(r, "offset", 0)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware,
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/authz: authentication and per-route authorization middleware
package httputil
