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
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// jsonLine is one line written by JSONEmitter. msg, level and time are also
// the fields of the error lines runsbi writes to --log.
type jsonLine struct {
	Msg    string    `json:"msg"`
	Level  Level     `json:"level"`
	Time   time.Time `json:"time"`
	Caller string    `json:"caller,omitempty"`
}

var levelNames = [...]string{
	Warning: "warning",
	Info:    "info",
	Debug:   "debug",
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if int(l) >= len(levelNames) {
		return nil, fmt.Errorf("unknown level %d", uint32(l))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	for lv, name := range levelNames {
		if string(b) == name {
			*l = Level(lv)
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", b)
}

// JSONEmitter writes one JSON object per message. The source location is
// kept in its own field rather than in the message.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	line := jsonLine{
		Msg:   fmt.Sprintf(format, v...),
		Level: level,
		Time:  timestamp.UTC(),
	}
	if _, file, n, ok := runtime.Caller(depth + 1); ok {
		line.Caller = fmt.Sprintf("%s:%d", file[strings.LastIndexByte(file, '/')+1:], n)
	}
	b, err := json.Marshal(line)
	if err != nil {
		// Only a level outside levelNames fails to marshal.
		panic(err)
	}
	e.Writer.Write(append(b, '\n'))
}
