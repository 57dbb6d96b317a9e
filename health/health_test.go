// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package health

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinary(t *testing.T) {
	t.Run("will be healthy", func(t *testing.T) {
		t.Run("if it is the zero value", func(t *testing.T) {
			var b Binary
			assert.True(t, b.Healthy(context.Background()))
		})
	})

	t.Run("will be unhealthy", func(t *testing.T) {
		t.Run("if it is toggled", func(t *testing.T) {
			var b Binary
			b.Toggle()
			assert.False(t, b.Healthy(context.Background()))
		})
	})
}

func TestAnd(t *testing.T) {
	t.Run("will be healthy", func(t *testing.T) {
		t.Run("if all metrics are healthy", func(t *testing.T) {
			var a, b Binary
			assert.True(t, And(&a, &b).Healthy(context.Background()))
		})
	})

	t.Run("will be unhealthy", func(t *testing.T) {
		t.Run("if any metric is unhealthy", func(t *testing.T) {
			var a, b Binary
			b.Toggle()
			assert.False(t, And(&a, &b).Healthy(context.Background()))
		})
	})
}

func TestOr(t *testing.T) {
	t.Run("will be healthy", func(t *testing.T) {
		t.Run("if any metric is healthy", func(t *testing.T) {
			var a, b Binary
			b.Toggle()
			assert.True(t, Or(&a, &b).Healthy(context.Background()))
		})
	})

	t.Run("will be unhealthy", func(t *testing.T) {
		t.Run("if all metrics are unhealthy", func(t *testing.T) {
			var a, b Binary
			a.Toggle()
			b.Toggle()
			assert.False(t, Or(&a, &b).Healthy(context.Background()))
		})
	})
}

func TestStarted(t *testing.T) {
	t.Run("will be unhealthy", func(t *testing.T) {
		t.Run("if it is the zero value", func(t *testing.T) {
			var s Started
			assert.False(t, s.Healthy(context.Background()))
		})
	})

	t.Run("will be healthy", func(t *testing.T) {
		t.Run("if it has been marked started", func(t *testing.T) {
			var s Started
			s.Started()
			assert.True(t, s.Healthy(context.Background()))
		})
	})
}

func TestLiveness(t *testing.T) {
	t.Run("will be healthy", func(t *testing.T) {
		t.Run("if it is the zero value", func(t *testing.T) {
			var l Liveness
			assert.True(t, l.Healthy(context.Background()))
		})

		t.Run("if it is marked alive after being marked dead", func(t *testing.T) {
			var l Liveness
			l.Dead()
			l.Alive()
			assert.True(t, l.Healthy(context.Background()))
		})
	})

	t.Run("will be unhealthy", func(t *testing.T) {
		t.Run("if it has been marked dead", func(t *testing.T) {
			var l Liveness
			l.Dead()
			assert.False(t, l.Healthy(context.Background()))
		})
	})
}

func TestReadiness(t *testing.T) {
	t.Run("will be healthy", func(t *testing.T) {
		t.Run("if it is the zero value", func(t *testing.T) {
			var r Readiness
			assert.True(t, r.Healthy(context.Background()))
		})
	})

	t.Run("will be unhealthy", func(t *testing.T) {
		t.Run("if it has been marked not ready", func(t *testing.T) {
			var r Readiness
			r.NotReady()
			assert.False(t, r.Healthy(context.Background()))
		})
	})
}

func TestNewHandler(t *testing.T) {
	t.Run("will return 200", func(t *testing.T) {
		t.Run("if the metric is healthy", func(t *testing.T) {
			var b Binary

			w := httptest.NewRecorder()
			NewHandler(&b).ServeHTTP(w, httptest.NewRequest("GET", "/health/liveness", nil))

			assert.Equal(t, 200, w.Code)
		})
	})

	t.Run("will return 503", func(t *testing.T) {
		t.Run("if the metric is unhealthy", func(t *testing.T) {
			var b Binary
			b.Toggle()

			w := httptest.NewRecorder()
			NewHandler(&b).ServeHTTP(w, httptest.NewRequest("GET", "/health/liveness", nil))

			assert.Equal(t, 503, w.Code)
		})
	})
}
