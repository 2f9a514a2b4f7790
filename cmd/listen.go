package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pranavmangal/otpfill/config"
	"github.com/pranavmangal/otpfill/gmail"
	"github.com/pranavmangal/otpfill/logger"
	"github.com/pranavmangal/otpfill/screen"
	"github.com/pranavmangal/otpfill/sms"
)

const shutdownTimeout = 5 * time.Second

func listenFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "Where messages come from: stdin, nats or gmail",
		},
		&cli.StringFlag{
			Name:  "nats-url",
			Usage: "NATS server URL",
		},
		&cli.StringFlag{
			Name:  "subject",
			Usage: "NATS subject carrying incoming SMS",
		},
		&cli.StringFlag{
			Name:  "poll",
			Usage: "Gmail polling interval, e.g. 30s",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.BoolFlag{
			Name:  "auto-submit",
			Usage: "Submit as soon as a message fills every slot",
		},
		&cli.StringSliceFlag{
			Name:  "sender",
			Usage: "Only accept messages from this sender (repeatable)",
		},
	}
}

func applyFlags(cmd *cli.Command, conf *config.Config) {
	if cmd.IsSet("source") {
		conf.Source = cmd.String("source")
	}
	if cmd.IsSet("nats-url") {
		conf.NATSURL = cmd.String("nats-url")
	}
	if cmd.IsSet("subject") {
		conf.NATSSubject = cmd.String("subject")
	}
	if cmd.IsSet("poll") {
		conf.PollInterval = cmd.String("poll")
	}
	if cmd.IsSet("metrics-addr") {
		conf.MetricsAddr = cmd.String("metrics-addr")
	}
	if cmd.IsSet("log-level") {
		conf.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("auto-submit") {
		conf.AutoSubmit = cmd.Bool("auto-submit")
	}
	if cmd.IsSet("sender") {
		conf.Senders = cmd.StringSlice("sender")
	}
}

func listen(ctx context.Context, cmd *cli.Command) error {
	conf, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cmd, &conf)

	appLogger := logger.New(os.Stderr, conf.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := buildSource(ctx, conf, appLogger)
	if err != nil {
		return err
	}
	defer closeSource()

	term := newTerminal(os.Stdout)
	scr := screen.New(appLogger, term, term, screen.Options{AutoSubmit: conf.AutoSubmit})
	term.onValid = func() { go scr.Close() }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scr.Run(gctx) })

	if err := scr.Attach(gctx, sms.FilterSenders(src, conf.Senders)); err != nil {
		scr.Close()
		_ = g.Wait()
		return err
	}

	appLogger.Info("Listening for OTPs", "source", conf.Source, "session_id", scr.ID())

	// Draws the empty form.
	_ = scr.Clear()

	r, fromStdin := src.(*sms.ReaderSource)
	if fromStdin {
		// Messages come from stdin, so the end of input is the submit.
		go func() {
			<-r.Done()
			if !conf.AutoSubmit {
				_ = scr.Submit()
			}
			scr.Close()
		}()
	} else {
		go readInput(os.Stdin, os.Stdout, scr, appLogger)
	}

	if conf.MetricsAddr != "" {
		srv := &http.Server{Addr: conf.MetricsAddr, Handler: promhttp.Handler()}

		g.Go(func() error {
			appLogger.Info("Serving metrics", "addr", conf.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-scr.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Piped runs exit non-zero unless the code was verified.
	if fromStdin {
		return term.exitErr()
	}

	return nil
}

func buildSource(ctx context.Context, conf config.Config, appLogger *slog.Logger) (sms.Source, func(), error) {
	switch conf.Source {
	case config.SourceStdin:
		return sms.NewReaderSource(os.Stdin, "stdin", appLogger), func() {}, nil

	case config.SourceNATS:
		nc, err := sms.ConnectNATS(conf.NATSURL, "otpfill", appLogger)
		if err != nil {
			return nil, nil, err
		}

		return sms.NewNATSSource(nc, conf.NATSSubject, appLogger), nc.Close, nil

	case config.SourceGmail:
		poll, err := conf.Poll()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid poll interval %q: %w", conf.PollInterval, err)
		}

		srv, err := gmail.NewService(ctx, conf.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}

		return gmail.NewSource(srv, poll, appLogger), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown source %q", conf.Source)
	}
}
