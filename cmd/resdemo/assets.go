package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/rescache/asset/font"
	"github.com/IvanBrykalov/rescache/asset/texture"
	"github.com/IvanBrykalov/rescache/internal/manifest"
	pmet "github.com/IvanBrykalov/rescache/metrics/prom"
	"github.com/IvanBrykalov/rescache/resource"
)

// assets bundles one cache per resource kind.
type assets struct {
	textures *texture.Manager
	fonts    *font.Manager
}

func newAssets(fsys fs.FS, reg prometheus.Registerer, log *zap.Logger) *assets {
	return &assets{
		textures: texture.NewManager(texture.NewLoader(fsys, log), resource.Options{
			Logger:  log.Named("textures"),
			Metrics: pmet.New(reg, "rescache", "textures", nil),
		}),
		fonts: font.NewManager(font.NewLoader(fsys, font.WithLogger(log)), resource.Options{
			Logger:  log.Named("fonts"),
			Metrics: pmet.New(reg, "rescache", "fonts", nil),
		}),
	}
}

// preload loads every manifest entry repeat times, advancing bar once per
// entry. Handles are released right away: the caches keep the resources.
// Failures are collected so one broken asset does not stop the rest.
func (a *assets) preload(m *manifest.Manifest, repeat int, progress io.Writer) error {
	if repeat < 1 {
		repeat = 1
	}
	bar := progressbar.NewOptions(m.Len()*repeat,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("loading assets"),
		progressbar.OptionShowCount(),
	)
	defer func() { _ = bar.Finish() }()

	var errs []error
	for i := 0; i < repeat; i++ {
		for _, p := range m.Textures {
			errs = append(errs, release[*texture.Texture](a.textures.Load(p)))
			_ = bar.Add(1)
		}
		for _, d := range m.Fonts {
			errs = append(errs, release[*font.Font](a.fonts.Load(d)))
			_ = bar.Add(1)
		}
	}
	return errors.Join(errs...)
}

func (a *assets) Close() error {
	return errors.Join(a.textures.Close(), a.fonts.Close())
}

func release[R any](h *resource.Handle[R], err error) error {
	if err != nil {
		return err
	}
	return h.Release()
}

// report prints counter and gauge values gathered from g.
func report(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		for _, mt := range mf.GetMetric() {
			var v float64
			switch {
			case mt.GetCounter() != nil:
				v = mt.GetCounter().GetValue()
			case mt.GetGauge() != nil:
				v = mt.GetGauge().GetValue()
			case mt.GetHistogram() != nil:
				v = float64(mt.GetHistogram().GetSampleCount())
			default:
				continue
			}
			labels := ""
			for _, lp := range mt.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			fmt.Fprintf(w, "%-45s%s %g\n", mf.GetName(), labels, v)
		}
	}
	return nil
}
