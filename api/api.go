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

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jerry-enebeli/notebox"
	"github.com/jerry-enebeli/notebox/api/middleware"
	"github.com/jerry-enebeli/notebox/config"
	"github.com/jerry-enebeli/notebox/internal/apierror"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	notebox *notebox.Notebox
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.GET("/api/inbox", a.InboxStatus)
	router.POST("/api/inbox", a.Capture)

	router.GET("/api/forward-pending", a.ForwardPending)
	router.POST("/api/forward-pending", a.ForwardPending)
	router.GET("/api/outbox", a.GetOutbox)

	router.GET("/api/entries", a.GetEntries)
	router.PATCH("/api/entries/:id", a.UpdateEntry)
	router.DELETE("/api/entries/:id", a.DeleteEntry)

	router.GET("/api/config/categories", a.GetCategories)
	router.PUT("/api/config/categories", a.ReplaceCategories)
	return a.router
}

func NewAPI(n *notebox.Notebox) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	r.Use(middleware.NewAuthMiddleware(conf).Authenticate())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{notebox: n, router: r}
}

// respondWithError writes the {ok:false, error, code} body for err.
func respondWithError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	c.JSON(apierror.MapErrorToHTTPStatus(apiErr), gin.H{"ok": false, "error": apiErr.Message, "code": apiErr.Code})
}

func toAPIError(err error) apierror.APIError {
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs), errors.Is(err, notebox.ErrInvalidCategories):
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	case errors.Is(err, notebox.ErrEmptyText):
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Missing text", nil)
	case errors.Is(err, notebox.ErrEntryNotFound):
		return apierror.NewAPIError(apierror.ErrNotFound, "Entry not found", nil)
	case errors.Is(err, notebox.ErrStorage):
		return apierror.NewAPIError(apierror.ErrStorage, "Failed to store note", err)
	default:
		return apierror.NewAPIError(apierror.ErrInternalServer, "Internal server error", err)
	}
}
