package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/prasenjit/route-explorer/internal/routes"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the normalized route catalog as JSON",
	RunE:  runRoutes,
}

var (
	routesFilter  routes.Filter
	routesGrouped bool
	routesStats   bool
)

func init() {
	routesCmd.Flags().StringVar(&routesFilter.Namespace, "namespace", "", "Only routes in this namespace")
	routesCmd.Flags().StringVar(&routesFilter.Method, "method", "", "Only routes supporting this HTTP method")
	routesCmd.Flags().BoolVar(&routesFilter.PublicOnly, "public", false, "Only public routes")
	routesCmd.Flags().StringVar(&routesFilter.Search, "search", "", "Case-insensitive search over pattern and description")
	routesCmd.Flags().BoolVar(&routesGrouped, "grouped", false, "Group routes by namespace")
	routesCmd.Flags().BoolVar(&routesStats, "stats", false, "Print catalog statistics instead of routes")
}

func runRoutes(cmd *cobra.Command, args []string) error {
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

	f := routesFilter
	if !cfg.Settings.ShowPrivateRoutes {
		f.PublicOnly = true
	}

	switch {
	case routesStats:
		return writeJSON(cmd.OutOrStdout(), catalog.Stats())
	case routesGrouped:
		return writeJSON(cmd.OutOrStdout(), routes.GroupRoutes(catalog.Filter(f)))
	default:
		return writeJSON(cmd.OutOrStdout(), catalog.Filter(f))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
