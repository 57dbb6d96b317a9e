// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package centarr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/centarr/centarr/config"
	"github.com/centarr/centarr/internal/try"
	"github.com/centarr/centarr/lifecycle"

	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Port uint `config:"port"`
}

func TestRun(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a config source fails to be read", func(t *testing.T) {
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				return nil, nil
			})

			err := Run(
				context.Background(),
				builder,
				config.FromYaml(strings.NewReader("hello: {")),
			)

			var cerr ConfigReadError
			if !assert.ErrorAs(t, err, &cerr) {
				return
			}
		})

		t.Run("if the app fails to build", func(t *testing.T) {
			buildErr := errors.New("failed to build")
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				return nil, buildErr
			})

			err := Run(context.Background(), builder)

			var berr AppBuildError
			if !assert.ErrorAs(t, err, &berr) {
				return
			}
			if !assert.ErrorIs(t, err, buildErr) {
				return
			}
		})

		t.Run("if the app fails to run", func(t *testing.T) {
			runErr := errors.New("failed to run")
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				return runFunc(func(ctx context.Context) error {
					return runErr
				}), nil
			})

			err := Run(context.Background(), builder)

			var rerr AppRunError
			if !assert.ErrorAs(t, err, &rerr) {
				return
			}
			if !assert.ErrorIs(t, err, runErr) {
				return
			}
		})
	})

	t.Run("will unmarshal the config", func(t *testing.T) {
		t.Run("if a yaml source is provided", func(t *testing.T) {
			var got testConfig
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				got = cfg
				return runFunc(func(ctx context.Context) error {
					return nil
				}), nil
			})

			err := Run(
				context.Background(),
				builder,
				config.FromYaml(strings.NewReader("port: 3000")),
			)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, uint(3000), got.Port) {
				return
			}
		})
	})

	t.Run("will run post run hooks", func(t *testing.T) {
		t.Run("if the app ran successfully", func(t *testing.T) {
			var ran bool
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				lc, ok := lifecycle.FromContext(ctx)
				if !ok {
					return nil, errors.New("no lifecycle context")
				}
				lc.OnPostRun(lifecycle.HookFunc(func(ctx context.Context) error {
					ran = true
					return nil
				}))

				return runFunc(func(ctx context.Context) error {
					return nil
				}), nil
			})

			err := Run(context.Background(), builder)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.True(t, ran) {
				return
			}
		})

		t.Run("if the app failed to run", func(t *testing.T) {
			runErr := errors.New("failed to run")

			var ran bool
			builder := AppBuilderFunc[testConfig](func(ctx context.Context, cfg testConfig) (App, error) {
				lc, ok := lifecycle.FromContext(ctx)
				if !ok {
					return nil, errors.New("no lifecycle context")
				}
				lc.OnPostRun(lifecycle.HookFunc(func(ctx context.Context) error {
					ran = true
					return nil
				}))

				return runFunc(func(ctx context.Context) error {
					return runErr
				}), nil
			})

			err := Run(context.Background(), builder)
			if !assert.ErrorIs(t, err, runErr) {
				return
			}
			if !assert.True(t, ran) {
				return
			}
		})
	})
}

func TestRecover(t *testing.T) {
	t.Run("will return a PanicError", func(t *testing.T) {
		t.Run("if the app panics", func(t *testing.T) {
			app := Recover(runFunc(func(ctx context.Context) error {
				panic("oops")
			}))

			err := app.Run(context.Background())

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "oops", perr.Value) {
				return
			}
		})
	})
}

func TestWithSignalNotifications(t *testing.T) {
	t.Run("will pass through the run result", func(t *testing.T) {
		t.Run("if no signal is received", func(t *testing.T) {
			runErr := errors.New("run finished")
			app := WithSignalNotifications(runFunc(func(ctx context.Context) error {
				return runErr
			}))

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, runErr) {
				return
			}
		})
	})
}
