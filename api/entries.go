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

func (a Api) GetEntries(c *gin.Context) {
	entries, err := a.notebox.ListEntries(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entries": entries})
}

// UpdateEntry edits an entry in place. The entry status is not editable.
//
// Responses:
// - 400 Bad Request: the body is not valid JSON or fails validation.
// - 404 Not Found: no entry carries the id.
// - 200 OK: the entry was updated.
func (a Api) UpdateEntry(c *gin.Context) {
	id := c.Param("id")

	var req model.UpdateEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid JSON body", nil))
		return
	}
	if err := req.ValidateUpdateEntry(); err != nil {
		respondWithError(c, err)
		return
	}

	updated, err := a.notebox.UpdateEntry(c.Request.Context(), id, req.ToPatch())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id, "updated": updated})
}

// DeleteEntry removes the entry row. Its outbox record, if any, is kept.
func (a Api) DeleteEntry(c *gin.Context) {
	id := c.Param("id")
	if err := a.notebox.DeleteEntry(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id, "deleted": true})
}
