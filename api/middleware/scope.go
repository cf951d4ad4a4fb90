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

import "net/http"

// Resource is the first path segment under /api.
type Resource string

// Guard names the credential a request must present.
type Guard int

const (
	GuardNone Guard = iota
	// GuardSecret requires the server secret key when secure mode is on.
	GuardSecret
	// GuardOutbox requires the outbox cron key, always.
	GuardOutbox
)

const (
	ResourceInbox          Resource = "inbox"
	ResourceEntries        Resource = "entries"
	ResourceConfig         Resource = "config"
	ResourceForwardPending Resource = "forward-pending"
	ResourceOutbox         Resource = "outbox"
)

// GuardFor returns the guard protecting method on resource.
func GuardFor(resource Resource, method string) Guard {
	switch resource {
	case ResourceForwardPending, ResourceOutbox:
		return GuardOutbox
	case ResourceInbox:
		// GET is the liveness probe.
		if method == http.MethodGet || method == http.MethodHead {
			return GuardNone
		}
		return GuardSecret
	case ResourceEntries, ResourceConfig:
		return GuardSecret
	}
	return GuardNone
}
