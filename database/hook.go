/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var querySilent atomic.Bool

// SetQuerySilent mutes every QueryHook and SlowQueryHook of the process.
func SetQuerySilent(b bool) {
	querySilent.Store(b)
}

var operationColors = map[string]*color.Color{
	"SELECT": color.New(color.FgGreen),
	"INSERT": color.New(color.FgBlue),
	"UPDATE": color.New(color.FgYellow),
	"DELETE": color.New(color.FgMagenta),
}

var defaultOperationColor = color.New(color.FgRed)

func operationColor(event *bun.QueryEvent) *color.Color {
	if c, ok := operationColors[event.Operation()]; ok {
		return c
	}
	return defaultOperationColor
}

// QueryHook prints every statement, colored by operation, to a writer.
// By default only failed statements are printed; verbose prints all of them.
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

type QueryHookOption func(*QueryHook)

// WithVerbose prints successful statements too.
func WithVerbose(on bool) QueryHookOption {
	return func(h *QueryHook) { h.verbose = on }
}

// WithWriter sets the output writer, os.Stderr by default.
func WithWriter(w io.Writer) QueryHookOption {
	return func(h *QueryHook) { h.writer = w }
}

// FromEnv reads the hook state from an environment variable at query time:
// "0" or "" disables, "1" enables, "2" enables verbose output.
func FromEnv(name string) QueryHookOption {
	return func(h *QueryHook) { h.envName = name }
}

func NewQueryHook(opts ...QueryHookOption) *QueryHook {
	h := &QueryHook{enabled: true, writer: os.Stderr}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if querySilent.Load() {
		return
	}
	enabled, verbose := h.enabled, h.verbose
	if h.envName != "" {
		if env, ok := os.LookupEnv(h.envName); ok {
			enabled = env != "" && env != "0"
			verbose = env == "2"
		}
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		color.CyanString("%8s", "[SQL]"),
		fmt.Sprintf("%12s", now.Sub(event.StartTime).Round(time.Microsecond)),
		operationColor(event).Sprint(event.Query),
	}
	if event.Err != nil {
		kind, _ := ClassifySQLError(event.Err)
		args = append(args, color.New(color.BgRed, color.FgWhite).Sprintf(" %s: %s ", kind, event.Err))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

// SlowQueryHook warns through a Logger about successful statements slower
// than a threshold. The CRUD_SLOW_QUERY environment variable set to "0"
// turns it off.
type SlowQueryHook struct {
	threshold time.Duration
	logger    Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(threshold time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{threshold: threshold, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if querySilent.Load() || event.Err != nil || h.logger == nil {
		return
	}
	if env, ok := os.LookupEnv("CRUD_SLOW_QUERY"); ok && strings.TrimSpace(env) == "0" {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.threshold {
		h.logger.Warn(color.YellowString("Database slow query detected"),
			"duration", duration.Round(time.Microsecond),
			"slow_threshold", h.threshold,
			"query", event.Query,
		)
	}
}
