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
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jerry-enebeli/notebox/config"
	"github.com/stretchr/testify/assert"
)

func newRouter(conf *config.Configuration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(conf).Authenticate())
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/", ok)
	r.GET("/api/inbox", ok)
	r.POST("/api/inbox", ok)
	r.GET("/api/entries", ok)
	r.GET("/api/forward-pending", ok)
	r.POST("/api/forward-pending", ok)
	r.GET("/api/outbox", ok)
	return r
}

func TestGetResourceFromPath(t *testing.T) {
	assert.Equal(t, ResourceInbox, getResourceFromPath("/api/inbox"))
	assert.Equal(t, ResourceEntries, getResourceFromPath("/api/entries/abc"))
	assert.Equal(t, ResourceConfig, getResourceFromPath("/api/config/categories"))
	assert.Equal(t, ResourceForwardPending, getResourceFromPath("/api/forward-pending"))
	assert.Equal(t, Resource(""), getResourceFromPath("/"))
	assert.Equal(t, Resource(""), getResourceFromPath("/inbox"))
}

func TestAuthenticate(t *testing.T) {
	secure := &config.Configuration{
		Server: config.ServerConfig{Secure: true, SecretKey: "server-secret"},
		Outbox: config.OutboxConfig{CronKey: "cron-secret"},
	}
	open := &config.Configuration{Outbox: config.OutboxConfig{CronKey: "cron-secret"}}
	noCronKey := &config.Configuration{}

	tests := []struct {
		name    string
		conf    *config.Configuration
		method  string
		path    string
		headers map[string]string
		want    int
	}{
		{"root is public", secure, "GET", "/", nil, http.StatusOK},
		{"inbox probe is public", secure, "GET", "/api/inbox", nil, http.StatusOK},
		{"capture without key in secure mode", secure, "POST", "/api/inbox", nil, http.StatusUnauthorized},
		{"capture with wrong key", secure, "POST", "/api/inbox", map[string]string{KeyHeader: "nope"}, http.StatusUnauthorized},
		{"capture with key", secure, "POST", "/api/inbox", map[string]string{KeyHeader: "server-secret"}, http.StatusOK},
		{"capture when not secure", open, "POST", "/api/inbox", nil, http.StatusOK},
		{"entries need the key", secure, "GET", "/api/entries", nil, http.StatusUnauthorized},
		{"sweep with header key", open, "POST", "/api/forward-pending", map[string]string{OutboxKeyHeader: "cron-secret"}, http.StatusOK},
		{"sweep with query key", open, "GET", "/api/forward-pending?key=cron-secret", nil, http.StatusOK},
		{"sweep with wrong key", open, "POST", "/api/forward-pending?key=wrong", nil, http.StatusUnauthorized},
		{"sweep without key", open, "GET", "/api/forward-pending", nil, http.StatusUnauthorized},
		{"sweep when cron key unset", noCronKey, "GET", "/api/forward-pending", map[string]string{OutboxKeyHeader: ""}, http.StatusUnauthorized},
		{"server key does not open the outbox", secure, "GET", "/api/outbox", map[string]string{KeyHeader: "server-secret"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			newRouter(tt.conf).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestAuthenticate_SecureWithoutSecret(t *testing.T) {
	conf := &config.Configuration{Server: config.ServerConfig{Secure: true}}
	req := httptest.NewRequest("GET", "/api/entries", nil)
	req.Header.Set(KeyHeader, "anything")
	w := httptest.NewRecorder()
	newRouter(conf).ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rps := 1.0
	burst := 1
	conf := &config.Configuration{RateLimit: config.RateLimitConfig{RequestsPerSecond: &rps, Burst: &burst}}

	r := gin.New()
	r.Use(RateLimitMiddleware(conf))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)

	// Disabled when unset.
	r = gin.New()
	r.Use(RateLimitMiddleware(&config.Configuration{}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
