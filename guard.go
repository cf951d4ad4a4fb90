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

package notebox

import (
	"sync"
	"sync/atomic"
)

// InitGuard runs one-time startup work, such as logging the table layouts,
// at most once per guard. Each Notebox owns its own guard.
type InitGuard struct {
	once sync.Once
	ran  atomic.Bool
}

func NewInitGuard() *InitGuard {
	return &InitGuard{}
}

// Do runs fn the first time it is called and reports whether it ran fn.
func (g *InitGuard) Do(fn func()) bool {
	ran := false
	g.once.Do(func() {
		fn()
		ran = true
		g.ran.Store(true)
	})
	return ran
}

// Done reports whether the guarded work has already run.
func (g *InitGuard) Done() bool {
	return g.ran.Load()
}
