// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{}

// subjectKey is the context key for the authenticated token subject.
var subjectKey contextKey

// getSubject returns the token subject from the request context, if present.
func getSubject(r *http.Request) string {
	if s, ok := r.Context().Value(subjectKey).(string); ok {
		return s
	}
	return ""
}

// bearerAuthMiddleware requires an HS256 bearer token signed with secret.
// An empty secret disables the check.
func bearerAuthMiddleware(opts Options, next http.Handler) http.Handler {
	if opts.AuthSecret == "" {
		return next
	}
	secret := []byte(opts.AuthSecret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			if opts.Debug {
				log.Printf("JWT Validation failed: %v", err)
			}
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		sub, _ := token.Claims.GetSubject()
		ctx := context.WithValue(r.Context(), subjectKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
