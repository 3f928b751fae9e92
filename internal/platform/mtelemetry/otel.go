// Package mtelemetry wraps the global OpenTelemetry tracer with the small
// set of helpers every service-layer call site uses: start a child span
// named after the operation, attach the operation's input as an attribute,
// and record a failure on the span without having to repeat the
// SetStatus+RecordError pair everywhere.
package mtelemetry

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/lakekeeper/catalog"

// Start opens a child span under the given operation name.
func Start(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

// SetSpanAttributesFromStruct marshals value to JSON and attaches it to span
// under key. Marshal failures are returned, never silently swallowed, since
// callers use this for audit-relevant context.
func SetSpanAttributesFromStruct(span trace.Span, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.String(key, string(raw)))

	return nil
}

// HandleSpanError records err on span and marks it failed. message gives
// the breadcrumb a human-readable anchor independent of err's own text.
func HandleSpanError(span trace.Span, message string, err error) {
	span.SetStatus(codes.Error, message+": "+err.Error())
	span.RecordError(err)
}
