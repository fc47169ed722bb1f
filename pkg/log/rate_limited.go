// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits log messages per key, such as an extension or event name.
// At most one message per key is emitted each interval. Messages dropped in
// between are counted and the count is appended to the next message emitted
// for the same key.
type Throttle struct {
	every time.Duration

	// logger is nil for the global logger, looked up on each message so that
	// a later SetTarget or SetLevel applies.
	logger *BasicLogger

	// now is replaced in tests.
	now func() time.Time

	mu sync.Mutex

	// +checklocks:mu
	keys map[string]*throttleKey
}

type throttleKey struct {
	limit   *rate.Limiter
	dropped uint64
}

// NewThrottle returns a Throttle writing to logger, or to the global logger
// if logger is nil.
func NewThrottle(logger *BasicLogger, every time.Duration) *Throttle {
	return &Throttle{
		every:  every,
		logger: logger,
		now:    time.Now,
		keys:   make(map[string]*throttleKey),
	}
}

// Warningf logs at a warning level unless key was logged recently.
func (t *Throttle) Warningf(key, format string, v ...any) {
	t.emit(key, Warning, format, v)
}

// Infof logs at an info level unless key was logged recently.
func (t *Throttle) Infof(key, format string, v ...any) {
	t.emit(key, Info, format, v)
}

func (t *Throttle) emit(key string, level Level, format string, v []any) {
	l := t.logger
	if l == nil {
		l = Log()
	}
	if !l.IsLogging(level) {
		return
	}
	now := t.now()
	dropped, ok := t.allow(key, now)
	if !ok {
		return
	}
	if dropped > 0 {
		format += " (%d similar messages dropped)"
		v = append(v[:len(v):len(v)], dropped)
	}
	// Depth 2 attributes the message to the caller of Warningf or Infof.
	l.Emit(2, level, now, format, v...)
}

// allow reports whether a message for key may be emitted at now, and if so
// how many were dropped since the last one.
func (t *Throttle) allow(key string, now time.Time) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k, ok := t.keys[key]
	if !ok {
		k = &throttleKey{limit: rate.NewLimiter(rate.Every(t.every), 1)}
		t.keys[key] = k
	}
	if !k.limit.AllowN(now, 1) {
		k.dropped++
		return 0, false
	}
	dropped := k.dropped
	k.dropped = 0
	return dropped, true
}
