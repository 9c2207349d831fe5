// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"sessionkey/cmd"
	"sessionkey/internal/catalog"
	"sessionkey/internal/config"
	"sessionkey/internal/decode"
	"sessionkey/internal/log"
	"sessionkey/internal/pipeline"
	"sessionkey/internal/recognition"
	"sessionkey/internal/server"
	"sessionkey/internal/store"
	"sessionkey/internal/transport"
	"sessionkey/internal/transport/udp"
	"sessionkey/pkg/build"
)

// service holds the wired analysis stack shared by the serve, analyze and
// record commands.
type service struct {
	cfg      *config.Config
	decoder  *decode.Decoder
	pool     *pipeline.Pool
	history  *store.Store
	ws       *transport.WebSocketTransport
	events   transport.Transport
	analyzer *pipeline.Analyzer
	catalog  *catalog.Catalog
	services map[string]bool
}

// newService wires the pipeline from cfg. The websocket transport is only
// created when withWebSocket is set, since nothing else can reach it.
func newService(cfg *config.Config, withWebSocket bool) (svc *service, err error) {
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	svc = &service{
		cfg: cfg,
		decoder: decode.New(decode.Options{
			SampleRate:  cfg.Analysis.SampleRate,
			MinDuration: cfg.Decode.MinDuration,
			MaxDuration: cfg.Decode.MaxDuration,
			FFmpegPath:  cfg.Decode.FFmpegPath,
			FFprobePath: cfg.Decode.FFprobePath,
		}),
		services: map[string]bool{},
	}
	defer func() {
		if err != nil {
			svc.Close()
			svc = nil
		}
	}()

	if cfg.History.Path != "" {
		if svc.history, err = store.Open(cfg.History.Path); err != nil {
			return svc, fmt.Errorf("history: %w", err)
		}
	} else {
		svc.history = store.NewMemory()
	}

	var transports transport.Multi
	if withWebSocket && cfg.Transport.WebSocketEnabled {
		svc.ws = transport.NewWebSocketTransport()
		transports = append(transports, svc.ws)
	}
	if cfg.Transport.UDPEnabled {
		publisher, err := udp.NewChromaPublisher(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return svc, fmt.Errorf("udp transport: %w", err)
		}
		transports = append(transports, publisher)
	}
	if cfg.Transport.LogEvents {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if len(transports) > 0 {
		svc.events = transports
	}

	var recognizer recognition.Recognizer = recognition.Noop{}
	if cfg.Recognition.Enabled {
		recognizer = recognition.NewACRCloud(recognition.ACRCloudOptions{
			Host:         cfg.Recognition.Host,
			AccessKey:    cfg.Recognition.AccessKey,
			AccessSecret: cfg.Recognition.AccessSecret,
			Timeout:      cfg.Recognition.Timeout,
		})
	}

	svc.pool = pipeline.NewPool(cfg.Server.Workers, cfg.Server.QueueDepth)
	svc.analyzer, err = pipeline.NewAnalyzer(opts, pipeline.Deps{
		Decoder:    svc.decoder,
		Pool:       svc.pool,
		Recognizer: recognizer,
		History:    svc.history,
		Transport:  svc.events,
	})
	if err != nil {
		return svc, err
	}
	svc.catalog = catalog.New(svc.history)

	svc.services["ffmpeg"] = svc.decoder.SupportsContainers()
	svc.services["recognition"] = cfg.Recognition.Enabled
	svc.services["history"] = cfg.History.Path != ""
	svc.services["websocket"] = svc.ws != nil
	svc.services["udp"] = cfg.Transport.UDPEnabled
	return svc, nil
}

// Close drains the pool and closes the transports.
func (s *service) Close() error {
	var errs []error
	if s.pool != nil {
		errs = append(errs, s.pool.Close())
	}
	if s.events != nil {
		errs = append(errs, s.events.Close())
	}
	return errors.Join(errs...)
}

// run dispatches the selected subcommand.
func run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	switch cfg.Command {
	case cmd.CommandServe:
		return runServe(ctx, cfg)
	case cmd.CommandAnalyze:
		return runAnalyze(ctx, cfg, stdout, stderr)
	case cmd.CommandRecord:
		return runRecord(ctx, cfg, stdout)
	case cmd.CommandDevices:
		return runDevices(stdout)
	case cmd.CommandKeys:
		return runKeys(stdout)
	case cmd.CommandVersion:
		_, err := fmt.Fprintln(stdout, build.GetBuildFlags())
		return err
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	svc, err := newService(cfg, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	deps := server.Deps{
		Analyzer: svc.analyzer,
		Catalog:  svc.catalog,
		Pool:     svc.pool,
		Services: svc.services,
		Version:  build.GetBuildFlags().Version,
	}
	if svc.ws != nil {
		deps.WebSocket = svc.ws
	}
	srv, err := server.New(server.Options{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, deps)
	if err != nil {
		return err
	}

	songs, artists, keys := catalog.Stats()
	log.WithFields(log.Fields{
		"addr":     cfg.Server.Addr,
		"workers":  svc.pool.Workers(),
		"songs":    songs,
		"artists":  artists,
		"keys":     keys,
		"services": svc.services,
	}).Info("Server: starting")

	return srv.Run(ctx)
}
