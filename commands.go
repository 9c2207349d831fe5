// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sessionkey/internal/analysis"
	"sessionkey/internal/audio"
	"sessionkey/internal/catalog"
	"sessionkey/internal/config"
	"sessionkey/internal/decode"
	"sessionkey/internal/pipeline"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

// fileReport is the outcome of analyzing one file.
type fileReport struct {
	File   string           `json:"file"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func runAnalyze(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	svc, err := newService(cfg, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	reports := analyzeFiles(ctx, svc, cfg.Args, stderr)
	if err := writeReports(stdout, cfg.Output, reports); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(reports))
	}
	return ctx.Err()
}

// analyzeFiles runs the files through the pool with a progress bar on
// progress. At most QueueDepth files are in flight so the pool never
// refuses a job.
func analyzeFiles(ctx context.Context, svc *service, paths []string, progress io.Writer) []fileReport {
	reports := make([]fileReport, len(paths))

	p := mpb.NewWithContext(ctx, mpb.WithOutput(progress), mpb.WithWidth(64))
	bar := p.AddBar(int64(len(paths)),
		mpb.PrependDecorators(
			decor.Name("Analyzing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	var g errgroup.Group
	g.SetLimit(svc.cfg.Server.QueueDepth)
	for i, path := range paths {
		g.Go(func() error {
			start := time.Now()
			reports[i] = analyzeFile(ctx, svc.analyzer, path)
			bar.EwmaIncrement(time.Since(start))
			return nil
		})
	}
	g.Wait()
	p.Wait()
	return reports
}

func analyzeFile(ctx context.Context, analyzer *pipeline.Analyzer, path string) fileReport {
	report := fileReport{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	clip := decode.Clip{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}

	res, err := analyzer.Analyze(ctx, clip)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Result = res
	return report
}

func writeReports(w io.Writer, format string, reports []fileReport) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		for _, r := range reports {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Fprintf(w, "%-32s %-10s %6s %5s %6s  %s\n", "FILE", "KEY", "CONF", "BPM", "CONF", "PROGRESSION")
	for _, r := range reports {
		name := r.File
		if len(name) > 32 {
			name = "..." + name[len(name)-29:]
		}
		if r.Error != "" {
			fmt.Fprintf(w, "%-32s error: %s\n", name, r.Error)
			continue
		}
		res := r.Result
		progression := ""
		if len(res.ChordProgressions) > 0 {
			progression = res.ChordProgressions[0]
		}
		fmt.Fprintf(w, "%-32s %-10s %5.1f%% %5d %6.2f  %s\n",
			name, shortKey(res.Key), res.KeyConfidence, res.BPM, res.BPMConfidence, progression)
		if res.Title != "" {
			fmt.Fprintf(w, "%-32s %s - %s\n", "", res.Artist, res.Title)
		}
	}
	return nil
}

// shortKey abbreviates "A Minor" to "A min" for the table.
func shortKey(key string) string {
	if key == pipeline.UndeterminedKey {
		return "-"
	}
	key = strings.Replace(key, " Major", " maj", 1)
	return strings.Replace(key, " Minor", " min", 1)
}

// runRecord captures a take, saves it as WAV and analyzes the file. An
// interrupt ends the take early; what was captured is still analyzed.
func runRecord(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	recorder, err := audio.NewRecorder(cfg.Recording)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Recording %s (Ctrl+C to stop early)...\n", cfg.Recording.Duration)
	take, err := recorder.Record(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if take.Frames() == 0 {
		return errors.New("no audio captured")
	}

	path := filepath.Join(cfg.Recording.OutputDir, audio.TakeFileName(time.Now()))
	if err := take.WriteWAV(path, cfg.Recording.BitDepth); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Recording saved to: %s (%s, peak %.1f%%)\n", path, take.Duration().Round(time.Millisecond), take.Peak()*100)

	svc, err := newService(cfg, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	report := analyzeFile(context.WithoutCancel(ctx), svc.analyzer, path)
	if err := writeReports(stdout, cfg.Output, []fileReport{report}); err != nil {
		return err
	}
	if report.Error != "" {
		return errors.New(report.Error)
	}
	return nil
}

func runDevices(w io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	return audio.ListDevices(w)
}

// runKeys prints every key with its relative key and first progression.
func runKeys(w io.Writer) error {
	fmt.Fprintf(w, "%-10s %-10s %s\n", "KEY", "RELATIVE", "PROGRESSION")
	for _, t := range analysis.Templates() {
		relTonic, relMode := analysis.RelativeKey(t.Tonic, t.Mode)
		name := t.Name()
		progression := ""
		if p := catalog.ChordProgressions(name); len(p) > 0 {
			progression = p[0]
		}
		if _, err := fmt.Fprintf(w, "%-10s %-10s %s\n", name, analysis.KeyName(relTonic, relMode), progression); err != nil {
			return err
		}
	}
	return nil
}
