package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	wlf "github.com/dangdungcntt/go-wlf"
)

func newCompileCmd(a *app) *cobra.Command {
	var useCache bool
	cmd := &cobra.Command{
		Use:   "compile <template>",
		Short: "Print the compiled source of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.engine(nil).Compile(cmd.Context(), args[0], useCache)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&useCache, "use-cache", false, "reuse and persist the compiled artifact")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		dataFile string
		token    string
		useCache bool
	)
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template with data read from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readData(dataFile)
			if err != nil {
				return err
			}
			if token == "" {
				if token, err = wlf.NewToken(); err != nil {
					return err
				}
			}
			return a.engine(wlf.StaticToken(token)).RenderTo(cmd.Context(), cmd.OutOrStdout(), args[0], data, useCache)
		},
	}
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "YAML or JSON file holding the template data")
	cmd.Flags().StringVar(&token, "token", "", "csrf token written by @csrf (random when empty)")
	cmd.Flags().BoolVar(&useCache, "use-cache", true, "reuse and persist the compiled artifact")
	return cmd
}

// readData decodes a data file. JSON documents are valid YAML.
func readData(file string) (map[string]any, error) {
	data := map[string]any{}
	if file == "" {
		return data, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", file, err)
	}
	return data, nil
}

func newPrecompileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "precompile",
		Short: "Compile every template of the views directory into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.engine(nil).Precompile(cmd.Context())
		},
	}
}
