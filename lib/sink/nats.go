package sink

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"plane.watch/mlat-client/lib/modes"
)

var json = jsoniter.ConfigFastest

type (
	// NatsSink publishes decoded messages and metadata events onto a NATS
	// subject as JSON.
	NatsSink struct {
		nc       *nats.Conn
		server   string
		subject  string
		tag      string
		instance string

		log zerolog.Logger
	}

	Option func(*NatsSink)

	// envelope is the wire form of one decoded message.
	envelope struct {
		Instance  string   `json:"instance"`
		Tag       string   `json:"tag,omitempty"`
		Type      string   `json:"type"`
		Timestamp uint64   `json:"timestamp"`
		DF        uint8    `json:"df"`
		Signal    uint8    `json:"signal,omitempty"`
		Rssi      *float64 `json:"rssi,omitempty"`
		Addr      string   `json:"addr,omitempty"`
		Altitude  *int32   `json:"altitude,omitempty"`
		Squawk    *uint32  `json:"squawk,omitempty"`
		NUCp      uint8    `json:"nuc,omitempty"`
		EvenCPR   bool     `json:"even_cpr,omitempty"`
		OddCPR    bool     `json:"odd_cpr,omitempty"`
		Payload   string   `json:"payload,omitempty"`

		Event any `json:"event,omitempty"`
	}
)

func WithServer(server string) Option {
	return func(s *NatsSink) {
		s.server = server
	}
}

func WithSubject(subject string) Option {
	return func(s *NatsSink) {
		s.subject = subject
	}
}

func WithSourceTag(tag string) Option {
	return func(s *NatsSink) {
		s.tag = tag
	}
}

func NewNatsSink(opts ...Option) (*NatsSink, error) {
	s := &NatsSink{
		server:   nats.DefaultURL,
		subject:  "mlat.messages",
		instance: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = log.With().Str("section", "sink").Str("subject", s.subject).Logger()

	nc, err := nats.Connect(
		s.server,
		nats.Name("mlat-client-"+s.instance),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if nil != err {
		return nil, errors.Wrapf(err, "failed to connect to NATS at %s", s.server)
	}
	s.nc = nc
	s.log.Info().Str("server", s.server).Msg("Connected")
	return s, nil
}

// envelopeFor translates a decoded message into its wire form.
func (s *NatsSink) envelopeFor(msg *modes.Message) envelope {
	env := envelope{
		Instance:  s.instance,
		Tag:       s.tag,
		Type:      "frame",
		Timestamp: msg.Timestamp,
		DF:        msg.DF,
		Signal:    msg.Signal,
		NUCp:      msg.NUCp,
		EvenCPR:   msg.EvenCPR,
		OddCPR:    msg.OddCPR,
	}
	if msg.Signal > 0 {
		// signal 0 means the format carries no level; its RSSI is -Inf,
		// which JSON cannot represent anyway
		rssi := msg.SignalRssi()
		env.Rssi = &rssi
	}
	if msg.HasAddr {
		env.Addr = hexAddr(msg.Addr)
	}
	if msg.HasAltitude {
		alt := msg.Altitude
		env.Altitude = &alt
	}
	if msg.HasSquawk {
		squawk := msg.Squawk
		env.Squawk = &squawk
	}
	if len(msg.Payload) > 0 {
		env.Payload = hex.EncodeToString(msg.Payload)
	}
	if msg.IsEvent() {
		env.Type = msg.Event.EventType()
		env.Event = msg.Event
	}
	return env
}

// Publish sends one decoded message. Events travel on <subject>.events.
func (s *NatsSink) Publish(msg *modes.Message) error {
	env := s.envelopeFor(msg)

	subject := s.subject
	if msg.IsEvent() {
		subject += ".events"
	}

	body, err := json.Marshal(&env)
	if nil != err {
		return errors.Wrap(err, "failed to marshal message")
	}
	return s.nc.Publish(subject, body)
}

func (s *NatsSink) Close() {
	if nil != s.nc {
		_ = s.nc.Drain()
	}
}

func (s *NatsSink) HealthCheckName() string {
	return "NATS Sink"
}

func (s *NatsSink) HealthCheck() bool {
	return nil != s.nc && s.nc.IsConnected()
}

func hexAddr(addr uint32) string {
	var b [3]byte
	b[0] = byte(addr >> 16)
	b[1] = byte(addr >> 8)
	b[2] = byte(addr)
	return hex.EncodeToString(b[:])
}
