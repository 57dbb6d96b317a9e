// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelslog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestHandler_Handle(t *testing.T) {
	t.Run("will not add otel attributes", func(t *testing.T) {
		t.Run("if the context has no span", func(t *testing.T) {
			var buf bytes.Buffer
			log := New(slog.NewJSONHandler(&buf, nil))

			log.InfoContext(context.Background(), "hello")

			var record map[string]any
			err := json.Unmarshal(buf.Bytes(), &record)
			require.Nil(t, err)

			_, ok := record["otel"]
			assert.False(t, ok)
		})
	})

	t.Run("will add otel attributes", func(t *testing.T) {
		t.Run("if the context has a valid span context", func(t *testing.T) {
			spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
				TraceID: trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
				SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
			})
			ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

			var buf bytes.Buffer
			log := New(slog.NewJSONHandler(&buf, nil))

			log.InfoContext(ctx, "hello")

			var record map[string]any
			err := json.Unmarshal(buf.Bytes(), &record)
			require.Nil(t, err)

			otelGroup, ok := record["otel"].(map[string]any)
			require.True(t, ok)

			assert.Equal(t, spanCtx.TraceID().String(), otelGroup["trace_id"])
			assert.Equal(t, spanCtx.SpanID().String(), otelGroup["span_id"])
		})
	})
}
