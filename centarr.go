// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package centarr

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/centarr/centarr/config"
	"github.com/centarr/centarr/internal/try"
	"github.com/centarr/centarr/lifecycle"
)

// App represents the entry point for user specific code.
type App interface {
	Run(context.Context) error
}

// AppBuilder represents anything which can initialize an [App] from config.
type AppBuilder[T any] interface {
	Build(ctx context.Context, cfg T) (App, error)
}

// AppBuilderFunc is a functional implementation of
// the AppBuilder interface.
type AppBuilderFunc[T any] func(context.Context, T) (App, error)

// Build implements the AppBuilder interface.
func (f AppBuilderFunc[T]) Build(ctx context.Context, cfg T) (App, error) {
	return f(ctx, cfg)
}

// Run executes the application. It's responsible for reading the provided
// config sources, unmarshalling them into the generic config type, using
// the config and builder to build the users [App] and, lastly, running the
// returned [App]. Any [lifecycle.Hook]s registered during the build are
// executed after the [App] returns, regardless of whether it failed.
func Run[T any](ctx context.Context, builder AppBuilder[T], srcs ...config.Source) (err error) {
	m, err := config.Read(srcs...)
	if err != nil {
		return ConfigReadError{Cause: err}
	}

	var cfg T
	err = m.Unmarshal(&cfg)
	if err != nil {
		return ConfigUnmarshalError{Cause: err}
	}

	var lc lifecycle.Context
	ctx = lifecycle.NewContext(ctx, &lc)

	app, err := builder.Build(ctx, cfg)
	if err != nil {
		return AppBuildError{Cause: err}
	}

	// Post run hooks are always executed regardless if the
	// underlying [App] returns an error or panics.
	defer runPostRun(ctx, &lc, &err)

	err = app.Run(ctx)
	if err != nil {
		return AppRunError{Cause: err}
	}
	return nil
}

func runPostRun(ctx context.Context, lc *lifecycle.Context, err *error) {
	hookErr := lc.PostRun().Run(ctx)
	if hookErr == nil {
		return
	}
	if *err == nil {
		*err = hookErr
		return
	}
	*err = fmt.Errorf("%w: post run hook failed: %w", *err, hookErr)
}

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Recover will wrap the given [App] with panic recovery.
// The recovered panic value is returned as a [try.PanicError].
func Recover(app App) App {
	return runFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications wraps a given [App] in an implementation
// that cancels the [context.Context] that's passed to app.Run if an [os.Signal]
// is received by the running process.
func WithSignalNotifications(app App, signals ...os.Signal) App {
	return runFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// ConfigReadError occurs when the config sources fail to be read.
type ConfigReadError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigReadError) Error() string {
	return fmt.Sprintf("failed to read config source(s): %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigReadError) Unwrap() error {
	return e.Cause
}

// ConfigUnmarshalError occurs when the merged config fails to unmarshal.
type ConfigUnmarshalError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigUnmarshalError) Error() string {
	return fmt.Sprintf("failed to unmarshal read config source(s) into custom type: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigUnmarshalError) Unwrap() error {
	return e.Cause
}

// AppBuildError occurs when the [AppBuilder] fails.
type AppBuildError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e AppBuildError) Error() string {
	return fmt.Sprintf("failed to build app: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AppBuildError) Unwrap() error {
	return e.Cause
}

// AppRunError occurs when the [App] fails while running.
type AppRunError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e AppRunError) Error() string {
	return fmt.Sprintf("failed to run app: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AppRunError) Unwrap() error {
	return e.Cause
}
