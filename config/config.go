// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"reflect"

	"github.com/z5labs/wirehttp/config/key"

	"github.com/go-viper/mapstructure/v2"
)

// Store represents a general key value structure.
type Store interface {
	Set(key.Keyer, any) error
}

// Source is anything which can write its config into a [Store].
type Source interface {
	Apply(Store) error
}

// Layer names a [Source], e.g. "defaults" or the path of a config file,
// so that a failure to apply it says where the bad config came from.
type Layer struct {
	Name   string
	Source Source
}

// LayerError occurs when a [Layer] fails to apply.
type LayerError struct {
	Layer string
	Cause error
}

// Error implements the error interface.
func (e LayerError) Error() string {
	return fmt.Sprintf("config layer %q: %s", e.Layer, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e LayerError) Unwrap() error {
	return e.Cause
}

// Apply implements the [Source] interface.
func (l Layer) Apply(store Store) error {
	err := l.Source.Apply(store)
	if err != nil {
		return LayerError{Layer: l.Name, Cause: err}
	}
	return nil
}

// Manager holds the merged result of every [Source] given to [Read].
type Manager struct {
	store Map
}

// Read applies srcs, in order, to an empty [Map]. A key set by a later
// source replaces the same key, compared case-insensitively, from an
// earlier one. Reading stops at the first source which fails.
func Read(srcs ...Source) (*Manager, error) {
	m := &Manager{
		store: make(Map),
	}
	for _, src := range srcs {
		err := src.Apply(m.store)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Apply implements the [Source] interface so a [Manager] can be layered
// under further sources.
func (m *Manager) Apply(store Store) error {
	return m.store.Apply(store)
}

// Unmarshal decodes the merged config into v, which must be a pointer.
//
// Values are weakly typed, so "8080" decodes into a uint and "true" into a
// bool, letting environment variables override typed YAML values. Strings
// are also decoded through [encoding.TextUnmarshaler], e.g. [log/slog.Level],
// and [time.ParseDuration].
func (m *Manager) Unmarshal(v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		Result:           v,
		WeaklyTypedInput: true,
		DecodeHook: coerce(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(m.store))
}

// TypeCoercionError occurs when a config value can not be converted into
// the type of the field it is decoded into.
type TypeCoercionError struct {
	From  reflect.Type
	To    reflect.Type
	Cause error
}

// Error implements the error interface.
func (e TypeCoercionError) Error() string {
	return fmt.Sprintf("failed to coerce %s into %s: %s", e.From, e.To, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e TypeCoercionError) Unwrap() error {
	return e.Cause
}

func coerce(hooks ...mapstructure.DecodeHookFunc) mapstructure.DecodeHookFuncValue {
	hook := mapstructure.ComposeDecodeHookFunc(hooks...)

	return func(from, to reflect.Value) (any, error) {
		v, err := mapstructure.DecodeHookExec(hook, from, to)
		if err != nil {
			return nil, TypeCoercionError{
				From:  from.Type(),
				To:    to.Type(),
				Cause: err,
			}
		}
		return v, nil
	}
}
