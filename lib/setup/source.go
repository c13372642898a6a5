package setup

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"plane.watch/mlat-client/lib/decoder"
)

const (
	Fetch      = "fetch"
	Listen     = "listen"
	Tag        = "tag"
	ConfigFile = "config"
)

var (
	prometheusInputBeastBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mlat_client_input_beast_bytes_total",
		Help: "The total number of beast format bytes fed to the decoder.",
	})
	prometheusInputAvrBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mlat_client_input_avr_bytes_total",
		Help: "The total number of AVR format bytes fed to the decoder.",
	})
	prometheusInputSbsBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mlat_client_input_sbs_bytes_total",
		Help: "The total number of SBS format bytes fed to the decoder.",
	})
	prometheusDecodedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mlat_client_decoded_messages_total",
		Help: "The total number of messages the decoder emitted.",
	})
	prometheusFramingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mlat_client_framing_errors_total",
		Help: "The total number of framing errors (lost sync) seen on inputs.",
	})
)

type (
	// Source is one receiver connection the ingest loop services.
	Source struct {
		Mode   decoder.Mode
		Addr   string
		Listen bool
		Tag    string
	}
)

// CountInputBytes feeds the per-format prometheus counters.
func CountInputBytes(mode decoder.Mode, n int) {
	switch mode {
	case decoder.ModeBeast, decoder.ModeRadarcape, decoder.ModeRadarcapeEmulated:
		prometheusInputBeastBytes.Add(float64(n))
	case decoder.ModeAVR, decoder.ModeAVRMLAT:
		prometheusInputAvrBytes.Add(float64(n))
	case decoder.ModeSBS:
		prometheusInputSbsBytes.Add(float64(n))
	}
}

func CountDecodedMessages(n int) {
	prometheusDecodedMessages.Add(float64(n))
}

func CountFramingError() {
	prometheusFramingErrors.Inc()
}

func IncludeSourceFlags(app *cli.App) {
	sourceFlags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:    Fetch,
			Usage:   "The receiver in URL Form. [beast|radarcape|avr|avrmlat|sbs]://host:port?tag=MYTAG",
			EnvVars: []string{"SOURCE"},
		},
		&cli.StringSliceFlag{
			Name:    Listen,
			Usage:   "Listen for a receiver connection. [beast|radarcape|avr|avrmlat|sbs]://host:port?tag=MYTAG",
			EnvVars: []string{"LISTEN"},
		},
		&cli.StringFlag{
			Name:    Tag,
			Usage:   "The tag included in sink payloads; also the default tag of sources without ?tag=, which is parsed but not sent to the sink",
			EnvVars: []string{"TAG"},
		},
		&cli.StringFlag{
			Name:    ConfigFile,
			Usage:   "A YAML config file; its sources are added to those on the command line, and a --tag given on the command line wins",
			EnvVars: []string{"CONFIG"},
		},
	}

	app.Flags = append(app.Flags, sourceFlags...)
}

// HandleSourceFlags turns the fetch/listen URLs (command line plus config
// file) into Source configs.
func HandleSourceFlags(c *cli.Context) ([]Source, error) {
	defaultTag := c.String(Tag)

	fetchUrls := c.StringSlice(Fetch)
	listenUrls := c.StringSlice(Listen)

	if cfg := c.String(ConfigFile); cfg != "" {
		v := viper.New()
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); nil != err {
			return nil, fmt.Errorf("could not read config %s: %w", cfg, err)
		}
		fetchUrls = append(fetchUrls, v.GetStringSlice("sources.fetch")...)
		listenUrls = append(listenUrls, v.GetStringSlice("sources.listen")...)
		if "" == defaultTag {
			defaultTag = v.GetString("tag")
		}
	}

	out := make([]Source, 0, len(fetchUrls)+len(listenUrls))

	for _, fetchUrl := range fetchUrls {
		log.Debug().Str("fetch-url", fetchUrl).Msg("With Fetch")
		s, err := handleSource(fetchUrl, defaultTag, false)
		if nil != err {
			log.Error().Err(err).Str("url", fetchUrl).Str("what", "fetch").Msg("Failed setup source")
			return nil, err
		}
		out = append(out, s)
	}
	for _, listenUrl := range listenUrls {
		log.Debug().Str("listen-url", listenUrl).Msg("With Listen")
		s, err := handleSource(listenUrl, defaultTag, true)
		if nil != err {
			log.Error().Err(err).Str("url", listenUrl).Str("what", "listen").Msg("Failed setup listen")
			return nil, err
		}
		out = append(out, s)
	}

	return out, nil
}

func getTag(parsedUrl *url.URL, defaultTag string) string {
	if nil == parsedUrl {
		return defaultTag
	}
	if parsedUrl.Query().Has("tag") {
		return parsedUrl.Query().Get("tag")
	}
	return defaultTag
}

func handleSource(urlSource, defaultTag string, listen bool) (Source, error) {
	parsedUrl, err := url.Parse(urlSource)
	if nil != err {
		return Source{}, err
	}

	var mode decoder.Mode
	switch strings.ToLower(parsedUrl.Scheme) {
	case "beast":
		mode = decoder.ModeBeast
	case "radarcape":
		mode = decoder.ModeRadarcape
	case "avr":
		mode = decoder.ModeAVR
	case "avrmlat":
		mode = decoder.ModeAVRMLAT
	case "sbs", "sbs1":
		mode = decoder.ModeSBS
	default:
		return Source{}, fmt.Errorf("unknown scheme: %s, expected one of [beast|radarcape|avr|avrmlat|sbs]", parsedUrl.Scheme)
	}

	return Source{
		Mode:   mode,
		Addr:   parsedUrl.Host,
		Listen: listen,
		Tag:    getTag(parsedUrl, defaultTag),
	}, nil
}
