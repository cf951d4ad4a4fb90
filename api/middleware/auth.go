/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jerry-enebeli/notebox/config"
	"github.com/jerry-enebeli/notebox/internal/apierror"
)

const (
	KeyHeader       = "X-Notebox-Key"
	OutboxKeyHeader = "x-outbox-key"
	OutboxKeyQuery  = "key"
)

var pathToResource = map[string]Resource{
	"inbox":           ResourceInbox,
	"entries":         ResourceEntries,
	"config":          ResourceConfig,
	"forward-pending": ResourceForwardPending,
	"outbox":          ResourceOutbox,
}

// AuthMiddleware checks the shared secrets guarding each route.
type AuthMiddleware struct {
	conf *config.Configuration
}

func NewAuthMiddleware(conf *config.Configuration) *AuthMiddleware {
	return &AuthMiddleware{conf: conf}
}

// getResourceFromPath maps /api/<resource>/... to its resource.
func getResourceFromPath(path string) Resource {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		return ""
	}
	return pathToResource[parts[1]]
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": message, "code": apierror.ErrUnauthorized})
}

// Authenticate enforces the guard of the requested resource before any
// handler runs.
//
// Responses:
// - 401 Unauthorized: the key is missing, wrong, or the outbox key is not configured.
// - 500 Internal Server Error: secure mode is on without a secret key.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch GuardFor(getResourceFromPath(c.Request.URL.Path), c.Request.Method) {
		case GuardOutbox:
			// An unset cron key rejects every request.
			cronKey := m.conf.Outbox.CronKey
			if cronKey == "" || !secureCompare(cronKey, extractOutboxKey(c)) {
				abortUnauthorized(c, "Unauthorized")
				return
			}
		case GuardSecret:
			if !m.conf.Server.Secure {
				break
			}
			if m.conf.Server.SecretKey == "" {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Secret key is not configured", "code": apierror.ErrInternalServer})
				return
			}
			key := extractKey(c)
			if key == "" {
				abortUnauthorized(c, "Authentication required. Use X-Notebox-Key header")
				return
			}
			if !secureCompare(m.conf.Server.SecretKey, key) {
				abortUnauthorized(c, "Invalid secret key")
				return
			}
		}
		c.Next()
	}
}

func extractKey(c *gin.Context) string {
	return c.GetHeader(KeyHeader)
}

// extractOutboxKey reads the header first, then the query parameter used by
// cron services that cannot set headers.
func extractOutboxKey(c *gin.Context) string {
	if key := c.GetHeader(OutboxKeyHeader); key != "" {
		return key
	}
	return c.Query(OutboxKeyQuery)
}
