// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package wirehttp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/z5labs/wirehttp/config"
)

// App represents the entry point for user specific code.
type App interface {
	Run(context.Context) error
}

// AppFunc is a functional implementation of the [App] interface.
type AppFunc func(context.Context) error

// Run implements the [App] interface.
func (f AppFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// AppBuilder represents anything which can initialize an [App] from config.
type AppBuilder[T any] interface {
	Build(ctx context.Context, cfg T) (App, error)
}

// AppBuilderFunc is a functional implementation of
// the AppBuilder interface.
type AppBuilderFunc[T any] func(context.Context, T) (App, error)

// Build implements the [AppBuilder] interface.
func (f AppBuilderFunc[T]) Build(ctx context.Context, cfg T) (App, error) {
	return f(ctx, cfg)
}

// DefaultEnvPrefix is the prefix of environment variables which override
// config, e.g. WIREHTTP_HTTP__WORKERS=8 sets http.workers.
const DefaultEnvPrefix = "WIREHTTP_"

type runOptions struct {
	defaults  io.Reader
	srcs      []config.Source
	file      string
	envPrefix string
}

// RunOption configures the config layers read by [Run].
type RunOption func(*runOptions)

// Defaults sets the lowest config layer, usually a YAML document embedded
// in the binary. It is rendered as a template first, see [ConfigFile].
func Defaults(r io.Reader) RunOption {
	return func(ro *runOptions) {
		ro.defaults = r
	}
}

// Sources adds config layers above the defaults and below the config file.
func Sources(srcs ...config.Source) RunOption {
	return func(ro *runOptions) {
		ro.srcs = append(ro.srcs, srcs...)
	}
}

// ConfigFile layers a YAML or JSON file, chosen by its extension, over the
// defaults. An empty path is ignored.
//
// The file is rendered as a text/template before it is decoded. Templates
// may call "env" to read an environment variable and "default" to fall
// back to a value when a string is empty:
//
//	http:
//	  port: {{env "PORT" | default 8080}}
func ConfigFile(path string) RunOption {
	return func(ro *runOptions) {
		ro.file = path
	}
}

// EnvPrefix overrides [DefaultEnvPrefix]. Environment variables always
// form the top config layer, an empty prefix removes that layer.
func EnvPrefix(prefix string) RunOption {
	return func(ro *runOptions) {
		ro.envPrefix = prefix
	}
}

// Run reads the config layers, lowest precedence first: the defaults, any
// extra sources, the config file and the environment. The merged config is
// unmarshalled into T, which builder turns into the [App] that is then run
// until it returns.
func Run[T any](ctx context.Context, builder AppBuilder[T], opts ...RunOption) error {
	ro := &runOptions{
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(ro)
	}

	layers, err := ro.layers()
	if err != nil {
		return ConfigReadError{Cause: err}
	}

	m, err := config.Read(layers...)
	if err != nil {
		return ConfigReadError{Cause: err}
	}

	var cfg T
	err = m.Unmarshal(&cfg)
	if err != nil {
		return ConfigUnmarshalError{Cause: err}
	}

	app, err := builder.Build(ctx, cfg)
	if err != nil {
		return AppBuildError{Cause: err}
	}

	err = app.Run(ctx)
	if err != nil {
		return AppRunError{Cause: err}
	}
	return nil
}

func (ro *runOptions) layers() ([]config.Source, error) {
	layers := make([]config.Source, 0, len(ro.srcs)+3)
	if ro.defaults != nil {
		layers = append(layers, config.Layer{
			Name:   "defaults",
			Source: config.FromYaml(config.RenderTextTemplate(ro.defaults)),
		})
	}
	for i, src := range ro.srcs {
		layers = append(layers, config.Layer{
			Name:   fmt.Sprintf("source %d", i),
			Source: src,
		})
	}
	if ro.file != "" {
		src, err := fileSource(ro.file)
		if err != nil {
			return nil, config.LayerError{Layer: ro.file, Cause: err}
		}
		layers = append(layers, config.Layer{Name: ro.file, Source: src})
	}
	if ro.envPrefix != "" {
		layers = append(layers, config.Layer{
			Name:   "env " + ro.envPrefix,
			Source: config.FromEnv(ro.envPrefix),
		})
	}
	return layers, nil
}

func fileSource(path string) (config.Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	format, err := config.FormatOf(abs)
	if err != nil {
		return nil, err
	}

	r := config.NewFileReader(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
	return config.Decode(format, config.RenderTextTemplate(r)), nil
}

// ConfigReadError occurs when a config layer can not be read. It wraps a
// [config.LayerError] naming the layer.
type ConfigReadError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigReadError) Error() string {
	return fmt.Sprintf("failed to read config: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigReadError) Unwrap() error {
	return e.Cause
}

// ConfigUnmarshalError occurs when the merged config does not fit the
// config type, e.g. a port which is not a number.
type ConfigUnmarshalError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigUnmarshalError) Error() string {
	return fmt.Sprintf("invalid config: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigUnmarshalError) Unwrap() error {
	return e.Cause
}

// AppBuildError occurs when the [AppBuilder] fails, e.g. a TLS
// certificate could not be loaded or a route pattern is invalid.
type AppBuildError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e AppBuildError) Error() string {
	return fmt.Sprintf("failed to build server: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AppBuildError) Unwrap() error {
	return e.Cause
}

// AppRunError occurs when the [App] stops with an error, e.g. a worker
// listener could not be bound.
type AppRunError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e AppRunError) Error() string {
	return fmt.Sprintf("server stopped: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AppRunError) Unwrap() error {
	return e.Cause
}
