// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	_ "embed"
	"os"

	"github.com/z5labs/wirehttp"
	"github.com/z5labs/wirehttp/internal/app"

	"github.com/spf13/cobra"
)

//go:embed config.yaml
var baseCfgSrc []byte

func main() {
	err := newCommand(app.Builder()).ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func newCommand(builder wirehttp.AppBuilder[app.Config]) *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:          "wirehttp",
		Short:        "Serve static files and a key value store over HTTP/1.1",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wirehttp.Run(
				cmd.Context(),
				builder,
				wirehttp.Defaults(bytes.NewReader(baseCfgSrc)),
				wirehttp.ConfigFile(cfgPath),
			)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML or JSON config file layered over the defaults")
	return cmd
}
