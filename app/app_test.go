// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/centarr/centarr/lifecycle"
	"github.com/centarr/centarr/sonarr"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func freePort(t *testing.T) uint {
	t.Helper()

	ls, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ls.Close()

	return uint(ls.Addr().(*net.TCPAddr).Port)
}

func TestBuilder(t *testing.T) {
	t.Run("will build the service", func(t *testing.T) {
		t.Run("if only defaults are configured", func(t *testing.T) {
			var lc lifecycle.Context
			ctx := lifecycle.NewContext(context.Background(), &lc)

			app, err := Builder().Build(ctx, Config{})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.NotNil(t, app) {
				return
			}
		})
	})

	t.Run("will initialize tracing", func(t *testing.T) {
		t.Run("if the local exporter is configured", func(t *testing.T) {
			var lc lifecycle.Context
			ctx := lifecycle.NewContext(context.Background(), &lc)

			cfg := Config{}
			cfg.OTel.ServiceName = "centarr"
			cfg.OTel.Exporter = "local"

			app, err := Builder().Build(ctx, cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.NotNil(t, app) {
				return
			}

			// The tracer provider shutdown is registered as a post run hook.
			err = lc.PostRun().Run(ctx)
			if !assert.Nil(t, err) {
				return
			}
		})
	})

	t.Run("will serve the gateway routes", func(t *testing.T) {
		t.Run("if the service is running", func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode([]sonarr.Series{
					{ID: 1, Title: "one"},
				})
			}))
			defer upstream.Close()

			port := freePort(t)

			var lc lifecycle.Context
			ctx := lifecycle.NewContext(context.Background(), &lc)

			cfg := Config{}
			cfg.HTTP.Port = port
			cfg.Sonarr.URL = upstream.URL
			cfg.Sonarr.APIKey = "secret"

			app, err := Builder().Build(ctx, cfg)
			if !assert.Nil(t, err) {
				return
			}

			rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			var statusCode int
			g, gctx := errgroup.WithContext(rctx)
			g.Go(func() error {
				return app.Run(gctx)
			})
			g.Go(func() error {
				defer cancel()

				addr := fmt.Sprintf("http://localhost:%d/shows", port)
				var resp *http.Response
				var err error
				for i := 0; i < 50; i++ {
					resp, err = http.Get(addr)
					if err == nil {
						break
					}
					<-time.After(100 * time.Millisecond)
				}
				if err != nil {
					return err
				}
				defer resp.Body.Close()

				statusCode = resp.StatusCode
				return nil
			})

			err = g.Wait()
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusOK, statusCode) {
				return
			}
		})
	})
}
