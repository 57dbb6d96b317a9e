// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/centarr/centarr"
	"github.com/centarr/centarr/app"
	"github.com/centarr/centarr/config"

	"github.com/spf13/cobra"
)

//go:embed base_config.yaml
var baseCfgSrc []byte

func main() {
	rootCmd := &cobra.Command{
		Use:          "centarr",
		Short:        "HTTP gateway for streaming Sonarr managed media",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			srcs := []config.Source{
				yamlSource(bytes.NewReader(baseCfgSrc)),
			}
			if cfgFile != "" {
				srcs = append(srcs, yamlSource(config.NewFileReader(
					os.DirFS(filepath.Dir(cfgFile)),
					filepath.Base(cfgFile),
				)))
			}

			// CENTARR_ prefixed variables override any file provided config.
			srcs = append(srcs, config.FromEnv("CENTARR_"))

			return centarr.Run(cmd.Context(), app.Builder(), srcs...)
		},
	}
	rootCmd.Flags().String("config", "", "Path to a yaml config file which is merged over the base config.")

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func yamlSource(r io.Reader) config.Source {
	return config.FromYaml(
		config.RenderTextTemplate(
			r,
			config.TemplateFunc("env", os.Getenv),
			config.TemplateFunc("envOr", envOr),
		),
	)
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
