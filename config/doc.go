// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config layers key value sources and decodes the result into a
// struct using "config" field tags.
//
// Every [Source] is applied, in order, to a single [Map] so later sources
// override earlier ones key by key:
//
//	file, err := config.FromFile(os.DirFS("."), "wirehttp.json")
//	if err != nil {
//	    return err
//	}
//
//	m, err := config.Read(
//	    config.Layer{Name: "defaults", Source: config.FromYaml(config.RenderTextTemplate(bytes.NewReader(defaultYaml)))},
//	    config.Layer{Name: "wirehttp.json", Source: file},
//	    config.Layer{Name: "env", Source: config.FromEnv("WIREHTTP_")},
//	)
//	if err != nil {
//	    return err
//	}
//
//	var cfg struct {
//	    HTTP struct {
//	        Port uint `config:"port"`
//	    } `config:"http"`
//	}
//	err = m.Unmarshal(&cfg)
//
// Keys are matched case-insensitively. Strings are coerced into the field
// type, including any [encoding.TextUnmarshaler] such as [log/slog.Level]
// and [time.Duration] strings like "5s".
package config
