// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/pca"
	"github.com/katalvlaran/pcimg/sample"
)

// defaultComponentShare is the fraction of features kept when neither
// -components nor -variance is given.
const defaultComponentShare = 0.6

// datasetFlags are shared by the commands that read a training set.
type datasetFlags struct {
	csv             string
	skipHeader      bool
	skipFirstColumn bool
	maxRows         int
	images          string
	width, height   int
	mode            string
}

func (d *datasetFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.csv, "csv", "", "CSV dataset, one sample per record")
	fs.BoolVar(&d.skipHeader, "skip-header", false, "drop the first CSV record")
	fs.BoolVar(&d.skipFirstColumn, "skip-first-column", false, "drop a leading label column")
	fs.IntVar(&d.maxRows, "max-rows", 0, "read at most this many CSV samples (0 = all)")
	fs.StringVar(&d.images, "images", "", "glob of PNG/JPEG files used as samples")
	fs.IntVar(&d.width, "width", 32, "image samples are resized to this width; with -csv, the recorded sample width")
	fs.IntVar(&d.height, "height", 32, "image samples are resized to this height; with -csv, the recorded sample height")
	fs.StringVar(&d.mode, "mode", "rgb", "image channels: gray, rgb or lab")
}

func (d *datasetFlags) load() (*matrix.Dense, error) {
	switch {
	case d.csv != "" && d.images != "":
		return nil, fmt.Errorf("%w: -csv and -images are exclusive", errUsage)
	case d.csv != "":
		f, err := os.Open(d.csv)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return sample.ReadCSV(f, sample.CSVOptions{
			SkipHeader:      d.skipHeader,
			SkipFirstColumn: d.skipFirstColumn,
			MaxRows:         d.maxRows,
		})
	case d.images != "":
		mode, err := sample.ParseMode(d.mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		paths, err := filepath.Glob(d.images)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no files match %q", d.images)
		}
		rows := make([]*matrix.Dense, 0, len(paths))
		for _, p := range paths {
			row, err := imageRow(p, d.width, d.height, mode)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return sample.Stack(rows...)
	default:
		return nil, fmt.Errorf("%w: one of -csv or -images is required", errUsage)
	}
}

// recordShape stores the sample geometry on m: always for -images, and for
// -csv only when both -width and -height were given explicitly.
func (d *datasetFlags) recordShape(fs *flag.FlagSet, m *pca.Model) error {
	if d.images == "" {
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if !set["width"] || !set["height"] {
			return nil
		}
	}
	if err := m.SetImageShape(d.width, d.height); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	return nil
}

// imageShape returns the w×h geometry used to encode and decode images with
// m: the recorded shape when the model carries one, else one inferred from
// the feature count.
func imageShape(m *pca.Model, mode sample.Mode) (w, h int, err error) {
	if w, h, ok := m.ImageShape(); ok {
		if w*h*mode.Channels() != m.Features() {
			return 0, 0, fmt.Errorf("%w: model holds %d×%d images in %d features, mode %s needs %d",
				errUsage, w, h, m.Features(), mode, w*h*mode.Channels())
		}
		return w, h, nil
	}

	return sample.Dims(m.Features(), mode)
}

// imageRow loads path, resizes it to w×h and flattens it to a planar row.
func imageRow(path string, w, h int, mode sample.Mode) (*matrix.Dense, error) {
	img, err := sample.Open(path)
	if err != nil {
		return nil, err
	}
	resized, err := sample.Resize(img, w, h)
	if err != nil {
		return nil, err
	}

	return sample.FromImage(resized, mode)
}

func parse(fs *flag.FlagSet, args []string, out io.Writer) error {
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	return nil
}

func requireName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: -name is required", errUsage)
	}

	return nil
}

func runFit(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("fit", flag.ContinueOnError)
	var (
		data       datasetFlags
		name       = fs.String("name", "", "model name")
		components = fs.Int("components", 0, "retained components (default 60% of the features)")
		variance   = fs.Float64("variance", 0, "retain the fewest components explaining this share of variance")
	)
	data.register(fs)
	if err := parse(fs, args, out); err != nil {
		return err
	}
	if err := requireName(*name); err != nil {
		return err
	}

	x, err := data.load()
	if err != nil {
		return err
	}
	features := x.Cols()
	log.Info().Int("samples", x.Rows()).Int("features", features).Msg("dataset loaded")

	m, err := pca.New(features, a.opts...)
	if err != nil {
		return err
	}
	if *variance > 0 {
		if _, err = m.FitVariance(x, *variance); err != nil {
			return err
		}
	} else {
		k := *components
		if k == 0 {
			k = max(1, int(float64(features)*defaultComponentShare))
		}
		if err = m.Fit(x, k); err != nil {
			return err
		}
	}
	if err = data.recordShape(fs, m); err != nil {
		return err
	}
	if err = a.repo.Save(ctx, *name, m); err != nil {
		return err
	}

	ratios, err := m.ExplainedVarianceRatio()
	if err != nil {
		return err
	}
	var explained float64
	for _, r := range ratios {
		explained += r
	}
	fmt.Fprintf(out, "%s: %d features, %d components, %.2f%% variance explained\n",
		*name, features, m.Components(), 100*explained)

	return nil
}

func runEncode(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	var (
		name     = fs.String("name", "", "model name")
		image    = fs.String("image", "", "image to encode")
		modeFlag = fs.String("mode", "rgb", "image channels the model was fitted on: gray, rgb or lab")
		dst      = fs.String("out", "encoded.pcmx", "output matrix file")
	)
	if err := parse(fs, args, out); err != nil {
		return err
	}
	if err := requireName(*name); err != nil {
		return err
	}
	if *image == "" {
		return fmt.Errorf("%w: -image is required", errUsage)
	}
	mode, err := sample.ParseMode(*modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	m, err := a.repo.Load(ctx, *name)
	if err != nil {
		return err
	}
	w, h, err := imageShape(m, mode)
	if err != nil {
		return err
	}
	row, err := imageRow(*image, w, h, mode)
	if err != nil {
		return err
	}
	codes, err := m.Encode(row)
	if err != nil {
		return err
	}
	blob, err := codes.MarshalBinary()
	if err != nil {
		return err
	}
	if err = os.WriteFile(*dst, blob, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d×%d image -> %d components in %s\n", *image, w, h, codes.Cols(), *dst)

	return nil
}

func runDecode(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	var (
		name     = fs.String("name", "", "model name")
		src      = fs.String("in", "encoded.pcmx", "encoded matrix file")
		modeFlag = fs.String("mode", "rgb", "image channels the model was fitted on: gray, rgb or lab")
		dst      = fs.String("out", "decoded.png", "output PNG; one file per row when the input has several")
		noMean   = fs.Bool("no-mean", false, "skip adding the mean back (residual view)")
		palette  = fs.Int("palette", 0, "also print this many dominant colors of each output")
	)
	if err := parse(fs, args, out); err != nil {
		return err
	}
	if err := requireName(*name); err != nil {
		return err
	}
	mode, err := sample.ParseMode(*modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	blob, err := os.ReadFile(*src)
	if err != nil {
		return err
	}
	var codes matrix.Dense
	if err = codes.UnmarshalBinary(blob); err != nil {
		return fmt.Errorf("%s: %w", *src, err)
	}
	m, err := a.repo.Load(ctx, *name)
	if err != nil {
		return err
	}
	var recon *matrix.Dense
	if *noMean {
		recon, err = m.DecodeWithoutMean(&codes)
	} else {
		recon, err = m.Decode(&codes)
	}
	if err != nil {
		return err
	}
	w, h, err := imageShape(m, mode)
	if err != nil {
		return err
	}

	for i := 0; i < recon.Rows(); i++ {
		row, err := recon.Row(i)
		if err != nil {
			return err
		}
		img, err := sample.ToImage(row, w, h, mode)
		if err != nil {
			return err
		}
		path := *dst
		if recon.Rows() > 1 {
			ext := filepath.Ext(path)
			path = fmt.Sprintf("%s-%03d%s", strings.TrimSuffix(path, ext), i, ext)
		}
		if err = sample.SavePNG(path, img); err != nil {
			return err
		}
		if *palette <= 0 {
			fmt.Fprintln(out, path)
			continue
		}
		swatches, err := sample.Palette(img, *palette)
		if err != nil {
			return err
		}
		fmt.Fprint(out, path)
		for _, s := range swatches {
			fmt.Fprintf(out, " %s:%.2f", s.Hex(), s.Weight)
		}
		fmt.Fprintln(out)
	}

	return nil
}

func runCluster(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	var (
		data datasetFlags
		name = fs.String("name", "", "model name")
		k    = fs.Int("k", 3, "number of clusters")
	)
	data.register(fs)
	if err := parse(fs, args, out); err != nil {
		return err
	}
	if err := requireName(*name); err != nil {
		return err
	}

	m, err := a.repo.Load(ctx, *name)
	if err != nil {
		return err
	}
	x, err := data.load()
	if err != nil {
		return err
	}
	codes, err := m.Encode(x)
	if err != nil {
		return err
	}
	c, err := pca.Cluster(codes, *k)
	if err != nil {
		return err
	}
	for i, size := range c.Sizes {
		fmt.Fprintf(out, "cluster %d: %d samples\n", i, size)
	}
	for i, l := range c.Labels {
		fmt.Fprintf(out, "%d\t%d\n", i, l)
	}

	return nil
}

func runInfo(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	name := fs.String("name", "", "model name")
	if err := parse(fs, args, out); err != nil {
		return err
	}
	if err := requireName(*name); err != nil {
		return err
	}

	m, err := a.repo.Load(ctx, *name)
	if err != nil {
		return err
	}
	ratios, err := m.ExplainedVarianceRatio()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d features, %d components\n", *name, m.Features(), m.Components())
	if w, h, ok := m.ImageShape(); ok {
		fmt.Fprintf(out, "  images %d×%d\n", w, h)
	}
	var cum float64
	for i, r := range ratios {
		cum += r
		fmt.Fprintf(out, "  %3d  %6.2f%%  %6.2f%%\n", i, 100*r, 100*cum)
	}

	return nil
}

func runList(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := parse(fs, args, out); err != nil {
		return err
	}
	names, err := a.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}

	return nil
}

func runDelete(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	name := fs.String("name", "", "model name")
	if err := parse(fs, args, out); err != nil {
		return err
	}
	if err := requireName(*name); err != nil {
		return err
	}

	return a.repo.Delete(ctx, *name)
}
