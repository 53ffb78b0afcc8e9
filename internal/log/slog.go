// Copyright The Draconis Authors. All Rights Reserved.
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
	"context"
	"log/slog"
)

type slogHandler struct {
	l *logger
}

var _ slog.Handler = &slogHandler{}

// SetSlogLogger installs a draconis-backed handler as the default slog
// logger, scoped to source (or the library default when source is empty).
func SetSlogLogger(source string) {
	var l *logger
	if source == "" {
		l = defaultLogger.(*logger)
	} else {
		reg.Lock()
		l = reg.get(source)
		reg.Unlock()
	}
	slog.SetDefault(slog.New(&slogHandler{l: l}))
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	switch {
	case level < slog.LevelInfo:
		return h.l.DebugEnabled()
	default:
		return h.l.enabled(fromSlogLevel(level))
	}
}

func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	h.l.log(fromSlogLevel(r.Level), "%s", r.Message)
	return nil
}

func (h *slogHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *slogHandler) WithGroup(_ string) slog.Handler      { return h }

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}
