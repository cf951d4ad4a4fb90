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

package model

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/url"
	"strings"
)

// Inbox is an inbound note after body parsing.
type Inbox struct {
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

var textKeys = []string{"text", "content", "note", "message"}

var createdAtKeys = []string{"created_at", "createdAt"}

// ParseInboxBody extracts the note from a webhook body. JSON and form bodies
// are understood; a blank text field yields blank text. Anything else,
// including a body that fails to parse or carries no text field, is taken
// verbatim as the note text.
func ParseInboxBody(contentType string, body []byte) Inbox {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	trimmed := bytes.TrimSpace(body)
	switch {
	case strings.Contains(mediaType, "json"):
		if in, ok := parseJSON(trimmed); ok {
			return in
		}
	case mediaType == "application/x-www-form-urlencoded":
		if in, ok := parseForm(string(trimmed)); ok {
			return in
		}
	case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '"'):
		// Shortcuts often post JSON as text/plain.
		if in, ok := parseJSON(trimmed); ok {
			return in
		}
	}
	return Inbox{Text: string(body)}
}

func parseJSON(body []byte) (Inbox, bool) {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return Inbox{Text: s}, true
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return Inbox{}, false
	}
	text, found := firstString(obj, textKeys)
	if !found {
		return Inbox{}, false
	}
	createdAt, _ := firstString(obj, createdAtKeys)
	return Inbox{Text: text, CreatedAt: createdAt}, true
}

func parseForm(body string) (Inbox, bool) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return Inbox{}, false
	}
	in := Inbox{}
	found := false
	for _, k := range textKeys {
		if !values.Has(k) {
			continue
		}
		found = true
		if v := values.Get(k); v != "" {
			in.Text = v
			break
		}
	}
	if !found {
		return Inbox{}, false
	}
	for _, k := range createdAtKeys {
		if c := values.Get(k); c != "" {
			in.CreatedAt = c
			break
		}
	}
	return in, true
}

// firstString returns the first non-empty string under keys. found is true
// when any of the keys holds a string, blank or not.
func firstString(obj map[string]interface{}, keys []string) (string, bool) {
	found := false
	for _, k := range keys {
		v, ok := obj[k].(string)
		if !ok {
			continue
		}
		found = true
		if v != "" {
			return v, true
		}
	}
	return "", found
}
