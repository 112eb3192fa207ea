package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/heatbox-map/internal/cache/layercache"
	"github.com/mohammed-shakir/heatbox-map/internal/catalog"
	"github.com/mohammed-shakir/heatbox-map/internal/core/config"
	"github.com/mohammed-shakir/heatbox-map/internal/core/router"
	"github.com/mohammed-shakir/heatbox-map/internal/evaluate"
	"github.com/mohammed-shakir/heatbox-map/internal/logger"
	"github.com/mohammed-shakir/heatbox-map/internal/panel"
	"github.com/mohammed-shakir/heatbox-map/internal/source/filesource"
)

type evaluateOpts struct {
	polygon    string
	layersDir  string
	format     string
	categories []string
	verbose    bool
}

func addEvaluateCmd(rootCmd *cobra.Command) {
	var o evaluateOpts
	evalCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a drawn polygon against layer files and print the result panel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), o)
		},
	}
	evalCmd.Flags().StringVarP(&o.polygon, "polygon", "p", "", "GeoJSON file with the drawn Polygon or Feature (- for stdin)")
	evalCmd.Flags().StringVarP(&o.layersDir, "layers-dir", "d", "./data", "Directory holding <category>.geojson files")
	evalCmd.Flags().StringVarP(&o.format, "format", "f", "text", "Output format: text, json or html")
	evalCmd.Flags().StringSliceVarP(&o.categories, "categories", "c", nil, "Restrict to these categories")
	evalCmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Log layer loading to stderr")
	_ = evalCmd.MarkFlagRequired("polygon")
	rootCmd.AddCommand(evalCmd)
}

func runEvaluate(ctx context.Context, out, errOut io.Writer, o evaluateOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f, ok := panel.ParseFormat(o.format)
	if !ok {
		return fmt.Errorf("unknown format %q", o.format)
	}

	body, err := readPolygon(o.polygon)
	if err != nil {
		return err
	}
	poly, err := router.ParsePolygon(body)
	if err != nil {
		return err
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	zl := logger.Build(logger.Config{Level: level, Console: true, Service: "heatbox", Component: "evaluate"}, errOut)
	appLog := logger.NewSlog(&zl)

	cats := config.FromEnv().Categories
	for _, n := range o.categories {
		if _, ok := cats.Lookup(n); !ok {
			return fmt.Errorf("unknown category %q", n)
		}
	}
	cats = cats.Subset(o.categories)

	cat := catalog.New(cats)
	loader := catalog.NewLoader(cat, filesource.New(o.layersDir), layercache.New(nil, layercache.Options{Logger: appLog}), appLog)
	if err := loader.LoadAll(ctx); err != nil {
		appLog.Warn("some layers could not be loaded", "err", err)
	}

	res, _ := evaluate.New(appLog).Evaluate(ctx, poly, cats, cat.Collections())
	for _, s := range res.Skipped {
		appLog.Debug("feature skipped", slog.String("category", s.Category), slog.Int("index", s.Index), slog.String("reason", s.Reason))
	}
	if err := panel.Render(out, panel.Build(uuid.NewString(), res), f); err != nil {
		return err
	}
	if f == panel.FormatHTML {
		_, _ = io.WriteString(out, "\n")
	}
	return nil
}

func readPolygon(p string) ([]byte, error) {
	if strings.TrimSpace(p) == "-" {
		return io.ReadAll(os.Stdin)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read polygon: %w", err)
	}
	return b, nil
}
