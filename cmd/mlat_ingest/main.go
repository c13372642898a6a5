package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"plane.watch/mlat-client/lib/decoder"
	"plane.watch/mlat-client/lib/logging"
	"plane.watch/mlat-client/lib/modeac"
	"plane.watch/mlat-client/lib/modes"
	"plane.watch/mlat-client/lib/setup"
	"plane.watch/mlat-client/lib/sink"
)

const (
	natsURL        = "nats-url"
	natsSubject    = "nats-subject"
	monitoringPort = "monitoring-port"
	withModeAC     = "modeac"

	readBufferSize = 16384
	reconnectWait  = 5 * time.Second
)

func main() {
	app := cli.NewApp()
	app.Name = "mlat-ingest"
	app.Usage = "Decodes Mode S from receiver feeds (beast, radarcape, avr, sbs) and publishes the messages"

	setup.IncludeSourceFlags(app)
	app.Flags = append(app.Flags,
		&cli.StringFlag{
			Name:    natsURL,
			Usage:   "NATS server to publish decoded messages to",
			Value:   "nats://localhost:4222",
			EnvVars: []string{"NATS"},
		},
		&cli.StringFlag{
			Name:  natsSubject,
			Usage: "NATS subject for decoded messages; events go to <subject>.events",
			Value: "mlat.messages",
		},
		&cli.IntFlag{
			Name:  monitoringPort,
			Usage: "Port to serve prometheus metrics on, 0 to disable",
			Value: 9602,
		},
		&cli.BoolFlag{
			Name:  withModeAC,
			Usage: "Classify raw Mode A/C messages against the squawks and altitudes seen so far",
		},
	)
	logging.IncludeVerbosityFlags(app)

	app.Before = func(c *cli.Context) error {
		logging.SetLoggingLevel(c)
		return nil
	}
	app.Action = run

	logging.ConfigureForCli()
	if err := app.Run(os.Args); nil != err {
		log.Fatal().Err(err).Msg("Finishing with an error")
	}
}

func run(c *cli.Context) error {
	sources, err := setup.HandleSourceFlags(c)
	if nil != err {
		return err
	}
	if 0 == len(sources) {
		return errors.New("nothing to do, provide at least one --fetch or --listen source")
	}

	out, err := sink.NewNatsSink(
		sink.WithServer(c.String(natsURL)),
		sink.WithSubject(c.String(natsSubject)),
		sink.WithSourceTag(c.String(setup.Tag)),
	)
	if nil != err {
		return err
	}
	defer out.Close()

	if port := c.Int(monitoringPort); port > 0 {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(fmt.Sprintf(":%d", port), nil); nil != err {
				log.Error().Err(err).Msg("Monitoring listener failed")
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var classifier *modeac.Classifier
	if c.Bool(withModeAC) {
		classifier = modeac.NewClassifier()
	}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src setup.Source) {
			defer wg.Done()
			serviceSource(ctx, src, out, classifier)
		}(src)
	}
	wg.Wait()
	return nil
}

// serviceSource keeps one receiver connection alive, reconnecting until
// the context is cancelled.
func serviceSource(ctx context.Context, src setup.Source, out *sink.NatsSink, classifier *modeac.Classifier) {
	srcLog := log.With().
		Str("section", "ingest").
		Str("mode", src.Mode.String()).
		Str("addr", src.Addr).
		Logger()

	for {
		if nil != ctx.Err() {
			return
		}
		conn, err := connect(ctx, src)
		if nil != err {
			srcLog.Error().Err(err).Msg("Could not connect, will retry")
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectWait):
			}
			continue
		}
		srcLog.Info().Msg("Connected")

		if err = pump(ctx, conn, src, out, classifier); nil != err {
			srcLog.Error().Err(err).Msg("Connection failed")
		}
		_ = conn.Close()
	}
}

func connect(ctx context.Context, src setup.Source) (net.Conn, error) {
	if src.Listen {
		lc := net.ListenConfig{}
		l, err := lc.Listen(ctx, "tcp", src.Addr)
		if nil != err {
			return nil, errors.Wrapf(err, "failed to listen on %s", src.Addr)
		}
		defer func() { _ = l.Close() }()
		conn, err := l.Accept()
		if nil != err {
			return nil, errors.Wrapf(err, "failed to accept on %s", src.Addr)
		}
		return conn, nil
	}

	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", src.Addr)
	if nil != err {
		return nil, errors.Wrapf(err, "failed to dial %s", src.Addr)
	}
	return conn, nil
}

// pump runs the read, Feed, publish loop for one connection. The reader
// never buffers internally; unconsumed bytes stay at the front of buf and
// are re-presented on the next Feed.
func pump(ctx context.Context, conn net.Conn, src setup.Source, out *sink.NatsSink, classifier *modeac.Classifier) error {
	reader := decoder.NewReader(
		decoder.WithMode(src.Mode),
		decoder.WithModeChangeAllowed(true),
		decoder.WithEvents(true),
		decoder.WithSeenCache(decoder.NewSeenCache()),
	)

	buf := make([]byte, 0, 4*readBufferSize)
	tmp := make([]byte, readBufferSize)

	for {
		if nil != ctx.Err() {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(time.Minute))
		n, err := conn.Read(tmp)
		if nil != err {
			return errors.Wrap(err, "read failed")
		}
		buf = append(buf, tmp[:n]...)
		setup.CountInputBytes(reader.Mode(), n)

		for {
			consumed, msgs, errPending, err := reader.Feed(buf, 0)
			if nil != err {
				setup.CountFramingError()
				return errors.Wrap(err, "lost sync with receiver")
			}
			buf = buf[:copy(buf, buf[consumed:])]
			setup.CountDecodedMessages(len(msgs))

			for _, msg := range msgs {
				observe(classifier, msg)
				if err = out.Publish(msg); nil != err {
					log.Error().Err(err).Msg("Failed to publish message")
				}
			}

			// a pending framing error surfaces on the next Feed; take it
			// now that the good messages are out
			if !errPending {
				break
			}
		}
	}
}

// observe feeds the Mode A/C classifier from the decoded stream and logs
// the likely meaning of raw Mode A/C messages at debug level. The message
// itself is left unchanged.
func observe(classifier *modeac.Classifier, msg *modes.Message) {
	if nil == classifier || msg.IsEvent() {
		return
	}
	if msg.HasSquawk {
		classifier.RecordSquawk(msg.Squawk)
	}
	if msg.HasAltitude {
		switch msg.DF {
		case 0, 4, 16, 20:
			classifier.RecordAltitude(msg.Altitude)
		}
	}
	if msg.DF == modes.DFModeAC {
		log.Debug().
			Uint32("code", msg.Addr).
			Str("class", classifier.Classify(msg.Addr).String()).
			Msg("Mode A/C message")
	}
}
