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
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jerry-enebeli/notebox"
	"github.com/jerry-enebeli/notebox/api/model"
	"github.com/jerry-enebeli/notebox/internal/apierror"
)

// maxInboxBody caps the webhook body read into memory.
const maxInboxBody = 1 << 20

// InboxStatus is the liveness probe for shortcut setup.
func (a Api) InboxStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "inbox live"})
}

// Capture accepts a note as JSON, form data or raw text.
//
// Responses:
// - 400 Bad Request: the note text is empty.
// - 500 Internal Server Error: the note could not be stored.
// - 200 OK: the note was stored; forwarding outcome is reported in the body.
func (a Api) Capture(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInboxBody))
	if err != nil {
		respondWithError(c, apierror.NewAPIError(apierror.ErrBadRequest, "Failed to read body", err))
		return
	}

	in := model.ParseInboxBody(c.ContentType(), body)
	resp, err := a.notebox.Capture(c.Request.Context(), notebox.CaptureInput{Text: in.Text, CreatedAt: in.CreatedAt})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"id":              resp.ID,
		"classification":  resp.Classification,
		"calendar_routed": resp.CalendarRouted,
		"forwarded":       resp.Forwarded,
		"remote_id":       resp.RemoteID,
		"stored":          resp.Stored,
	})
}
