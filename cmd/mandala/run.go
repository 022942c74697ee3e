package main

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mandala/cmd/mandala/ui"
	"mandala/internal/document"
	"mandala/internal/grid"
	"mandala/internal/logging"
	"mandala/internal/mirror"
	"mandala/internal/prompt"
)

// demoTopic is the sample topic appended by --demo.
const demoTopic = "Should I open-source this framework?"

// run dispatches to the selected mode. Output is rendered into a buffer and
// written once, so a failing run prints nothing to stdout.
func run(out io.Writer, opts *options, args []string) error {
	var buf bytes.Buffer
	styles := ui.StylesFor(out)

	if err := dispatch(&buf, styles, opts, args); err != nil {
		logger.Debug("command failed", zap.Error(err))
		return err
	}

	if _, err := out.Write(buf.Bytes()); err != nil {
		return grid.Wrap(grid.KindIOFailure, err, "write output")
	}
	return nil
}

func dispatch(w *bytes.Buffer, styles ui.Styles, opts *options, args []string) error {
	if opts.compare {
		return runCompare(w, styles, args[0], args[1])
	}
	if opts.initCfg {
		return runInitConfig(w, opts.configPath)
	}

	g, err := loadGrid(opts.profile)
	if err != nil {
		return err
	}

	switch {
	case opts.export != "":
		return runExport(w, g, opts)
	case opts.promptSet:
		return runPrompt(w, g, opts, opts.prompt)
	case opts.mirror:
		return runMirror(w, styles, g)
	}
	return runDisplay(w, styles, g, opts)
}

// loadGrid reads the --profile document, then the configured profile, and
// falls back to the built-in default.
func loadGrid(flagProfile string) (*grid.Grid, error) {
	path := flagProfile
	if path == "" {
		path = cfg.Profile
	}
	if path == "" {
		g := grid.Default()
		logging.Get(logging.CategoryGrid).Debug("using built-in grid",
			zap.String("name", g.Name()),
			zap.String("signature", g.Signature()))
		return g, nil
	}
	return readDocument(path)
}

func readDocument(path string) (*grid.Grid, error) {
	log := logging.Get(logging.CategoryDocument)
	g, err := document.ReadFile(path)
	if err != nil {
		log.Debug("document rejected", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	log.Debug("document loaded",
		zap.String("path", path),
		zap.String("name", g.Name()),
		zap.String("version", g.Version()))
	return g, nil
}

func runDisplay(w io.Writer, styles ui.Styles, g *grid.Grid, opts *options) error {
	io.WriteString(w, "\n"+ui.RenderDisplay(styles, g))

	if opts.demo {
		composer, err := newComposer(opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s\n", styles.RenderDivider("─", 50))
		io.WriteString(w, "Demo: Weighted prompt for a sample task\n\n")
		io.WriteString(w, composer.Compose(g, demoTopic).String())
	}
	return nil
}

func runPrompt(w io.Writer, g *grid.Grid, opts *options, topic string) error {
	composer, err := newComposer(opts)
	if err != nil {
		return err
	}
	logging.Get(logging.CategoryPrompt).Debug("composing prompt",
		zap.String("grid", g.Name()),
		zap.String("order", string(composer.Order())),
		zap.Int("topic_len", len(strings.TrimSpace(topic))))
	io.WriteString(w, composer.Compose(g, topic).String())
	return nil
}

// newComposer applies --order and --no-header over the config.
func newComposer(opts *options) (*prompt.Composer, error) {
	order, err := cfg.PromptOrder()
	if err != nil {
		return nil, err
	}
	if opts.order != "" {
		if order, err = prompt.ParseOrder(opts.order); err != nil {
			return nil, err
		}
	}
	return prompt.NewComposer(
		prompt.WithOrder(order),
		prompt.WithHeader(cfg.Prompt.Header && !opts.noHeader),
	), nil
}

func runExport(w io.Writer, g *grid.Grid, opts *options) error {
	format, err := exportFormat(opts.export, opts.format)
	if err != nil {
		return err
	}

	if opts.name != "" {
		g = g.WithName(opts.name)
	}

	timer := logging.StartTimer(logging.CategoryDocument, "export")
	if err := document.WriteFile(opts.export, g, format); err != nil {
		return err
	}
	timer.Stop()

	fmt.Fprintf(w, "Exported grid to %s\n", opts.export)
	return nil
}

// exportFormat resolves --format, then a .json/.yaml/.yml extension, then config.
func exportFormat(path, flagFormat string) (document.Format, error) {
	if flagFormat != "" {
		return document.ParseFormat(flagFormat)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return document.FormatFromPath(path), nil
	}
	return cfg.ExportFormat()
}

func runCompare(w io.Writer, styles ui.Styles, pathA, pathB string) error {
	a, err := readDocument(pathA)
	if err != nil {
		return err
	}
	b, err := readDocument(pathB)
	if err != nil {
		return err
	}
	timer := logging.StartTimer(logging.CategoryMirror, "compare")
	res, err := mirror.Compare(a, b)
	if err != nil {
		return err
	}
	timer.Stop()

	writeComparison(w, styles, res, a, b)
	return nil
}

func runMirror(w io.Writer, styles ui.Styles, g *grid.Grid) error {
	timer := logging.StartTimer(logging.CategoryMirror, "self-mirror")
	res, err := mirror.SelfMirror(g)
	if err != nil {
		return err
	}
	timer.Stop()
	writeComparison(w, styles, res, g, grid.Default())

	reflection, err := mirror.Reflect(g)
	if err != nil {
		return err
	}
	io.WriteString(w, "\n"+ui.RenderReflection(styles, reflection))
	return nil
}

// writeComparison renders res, the comparison of a against b.
func writeComparison(w io.Writer, styles ui.Styles, res *mirror.Result, a, b *grid.Grid) {
	logging.Get(logging.CategoryMirror).Debug("grids compared",
		zap.String("a", res.NameA),
		zap.String("b", res.NameB),
		zap.Int("changed", res.Summary.ChangedCount),
		zap.String("verdict", string(res.Summary.Verdict)))
	io.WriteString(w, ui.RenderComparison(styles, res, a, b))
}

// runInitConfig writes the loaded configuration, defaults and environment
// overrides included, to path.
func runInitConfig(w io.Writer, path string) error {
	if err := cfg.Save(path); err != nil {
		return grid.Wrap(grid.KindIOFailure, err, "save config")
	}
	logger.Info("config written", zap.String("path", path))
	fmt.Fprintf(w, "Wrote config to %s\n", path)
	return nil
}
