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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jerry-enebeli/notebox/api/model"
	"github.com/jerry-enebeli/notebox/internal/apierror"
)

func (a Api) GetCategories(c *gin.Context) {
	categories, err := a.notebox.Categories(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "categories": categories})
}

// ReplaceCategories overwrites the whole category list.
func (a Api) ReplaceCategories(c *gin.Context) {
	var req model.ReplaceCategories
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid categories format", nil))
		return
	}
	if err := req.ValidateReplaceCategories(); err != nil {
		respondWithError(c, err)
		return
	}

	categories, err := a.notebox.ReplaceCategories(c.Request.Context(), req.Categories)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "categories": categories})
}
