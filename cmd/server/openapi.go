package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prasenjit/route-explorer/internal/openapi"
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Export the route catalog as an OpenAPI 3 document",
	RunE:  runOpenAPI,
}

var (
	openapiFormat   string
	openapiOutput   string
	openapiValidate bool
)

func init() {
	openapiCmd.Flags().StringVarP(&openapiFormat, "format", "f", "json", "Output format: json or yaml")
	openapiCmd.Flags().StringVarP(&openapiOutput, "output", "o", "", "Write to file instead of stdout")
	openapiCmd.Flags().BoolVar(&openapiValidate, "validate", false, "Validate the document before writing it")
}

func runOpenAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	catalog, err := a.loader.Load(ctx)
	if err != nil {
		return err
	}
	doc := openapi.Project(catalog, a.site)

	if openapiValidate {
		if err := openapi.Validate(ctx, doc); err != nil {
			return fmt.Errorf("generated document is invalid: %w", err)
		}
	}

	var data []byte
	switch openapiFormat {
	case "json":
		data, err = openapi.JSON(doc)
	case "yaml", "yml":
		data, err = openapi.YAML(doc)
	default:
		return fmt.Errorf("unknown format: %s", openapiFormat)
	}
	if err != nil {
		return err
	}

	if openapiOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(openapiOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", openapiOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", openapiOutput)
	return nil
}
