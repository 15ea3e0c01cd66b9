// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry configures application observability: structured
// logging compatible with Google Cloud Logging, OpenTelemetry traces,
// and metrics export.
package telemetry

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// traceCorrelationHandler decorates an slog.Handler so every record
// emitted inside an active span carries the trace and span identifiers.
// Cloud Logging uses these fields to link log lines to their trace in
// the console.
type traceCorrelationHandler struct {
	slog.Handler
}

// Handle stamps the record with the Cloud Logging trace correlation
// fields when the context holds a valid span, then delegates to the
// wrapped handler.
// See: https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
func (h *traceCorrelationHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("logging.googleapis.com/trace", s.TraceID()),
			slog.Any("logging.googleapis.com/spanId", s.SpanID()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return h.Handler.Handle(ctx, record)
}

// renameForCloudLogging maps slog's default attribute keys onto the
// names the Cloud Logging agent parses ("severity", "timestamp",
// "message"). slog's WARN level string differs from the LogSeverity
// enum, so it is rewritten to WARNING.
// https://cloud.google.com/logging/docs/reference/v2/rest/v2/LogEntry#LogSeverity
func renameForCloudLogging(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// SetupLogging installs the process-wide loggers. Both the standard log
// package and slog write JSON-adjacent output to stdout and to app.log,
// and the slog default handler injects trace correlation fields so log
// lines land next to their spans in Cloud Trace.
func SetupLogging() {
	file, _ := os.Create("app.log")
	sink := io.MultiWriter(os.Stdout, file)

	log.SetOutput(sink)
	log.SetPrefix("[INFO] ")
	log.SetFlags(log.Ldate | log.Ltime)

	handler := &traceCorrelationHandler{
		Handler: slog.NewJSONHandler(sink, &slog.HandlerOptions{ReplaceAttr: renameForCloudLogging}),
	}
	slog.SetDefault(slog.New(handler))
	slog.SetLogLoggerLevel(slog.LevelInfo)
}
