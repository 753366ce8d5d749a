// Command framesignal sends and receives payloads over a one bit per frame
// visual channel.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/internal/metrics"
)

var version = "<not set>"

// SendCmd transmits one payload.
type SendCmd struct {
	Text           string `arg:"--text" help:"send UTF-8 text"`
	Hex            string `arg:"--hex" help:"send hex encoded bytes"`
	MessageID      uint32 `arg:"--message-id" help:"send a message with this id"`
	MessageContent string `arg:"--message-content" help:"content of the message sent with --message-id"`
}

// ReceiveCmd decodes one payload.
type ReceiveCmd struct {
	Message bool `arg:"--message" help:"decode the payload as a message"`
}

// SelftestCmd runs the built in round trip scenarios.
type SelftestCmd struct{}

// RelayCmd serves the WebSocket echo relay.
type RelayCmd struct {
	Listen string `arg:"--listen" help:"address to listen on"`
}

// PortsCmd lists serial ports.
type PortsCmd struct {
	Block  []string `arg:"--block" help:"skip USB devices with this VID:PID"`
	Ignore []string `arg:"--ignore" help:"skip this device path"`
}

// Args are the command line arguments.
type Args struct {
	Send        *SendCmd     `arg:"subcommand:send" help:"encode and transmit a payload"`
	Receive     *ReceiveCmd  `arg:"subcommand:receive" help:"receive and decode a payload"`
	Selftest    *SelftestCmd `arg:"subcommand:selftest" help:"run round trip scenarios"`
	Relay       *RelayCmd    `arg:"subcommand:relay" help:"serve the WebSocket echo relay"`
	Ports       *PortsCmd    `arg:"subcommand:ports" help:"list serial ports"`
	ConfigFile  string       `arg:"-c,--config" help:"path to a YAML or TOML configuration file"`
	Channel     string       `arg:"--channel" help:"video, uart, gpio, ws or sim"`
	Profile     string       `arg:"--profile" help:"crc16, crc8 or size-only"`
	SessionLog  string       `arg:"--session-log" help:"write a session log into this directory"`
	MetricsAddr string       `arg:"--metrics-addr" help:"serve Prometheus metrics on this address"`
	FEC         bool         `arg:"--fec" help:"Hamming(7,4) code the payload"`
	Debug       bool         `arg:"-d,--debug" help:"print protocol events"`
	Timestamps  bool         `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

// Version is printed by --version.
func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing command")
	}
	return args
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := runMain(ctx, procArgs(), os.Stdout)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain(ctx context.Context, args Args, out io.Writer) error {
	if !args.Timestamps {
		log.SetFlags(0)
	}
	if args.Debug {
		framesignal.SetDebugEnabled(true)
	}

	conf, err := loadConfig(args)
	if err != nil {
		return err
	}

	if conf.SessionLog != "" {
		path, err := framesignal.InitSessionLog(conf.SessionLog)
		if err != nil {
			return err
		}
		log.Printf("session log: %s", path)
		defer func() { _ = framesignal.CloseSessionLog() }()
	}

	var m *metrics.Metrics
	if conf.MetricsAddr != "" {
		m = metrics.New(nil)
		srv := startMetricsServer(conf.MetricsAddr, m)
		defer func() { _ = srv.Close() }()
	}

	switch {
	case args.Ports != nil:
		return runPorts(args.Ports, out)
	case args.Relay != nil:
		return runRelay(ctx, args.Relay, conf)
	}

	link, err := openLink(ctx, conf, args.Debug, m)
	if err != nil {
		return err
	}
	defer func() { _ = link.Close() }()

	switch {
	case args.Send != nil:
		return runSend(ctx, link, args.Send, out)
	case args.Receive != nil:
		return runReceive(ctx, link, args.Receive, out)
	case args.Selftest != nil:
		return runSelftest(ctx, link, out)
	default:
		return errors.New("missing command")
	}
}

func loadConfig(args Args) (*Config, error) {
	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return nil, err
	}
	if args.Channel != "" {
		conf.Channel = args.Channel
	}
	if args.Profile != "" {
		p, err := framesignal.ParseProfile(args.Profile)
		if err != nil {
			return nil, err
		}
		conf.Profile = p
	}
	if args.FEC {
		conf.FEC = true
	}
	if args.MetricsAddr != "" {
		conf.MetricsAddr = args.MetricsAddr
	}
	if args.SessionLog != "" {
		conf.SessionLog = args.SessionLog
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func openLink(ctx context.Context, conf *Config, debug bool, m *metrics.Metrics) (*framesignal.Link, error) {
	cfg := conf.LinkConfig()

	var hooks []func(framesignal.Event)
	if debug {
		hooks = append(hooks, framesignal.DebugEvents())
	}
	var opts []framesignal.LinkOption
	if m != nil {
		hooks = append(hooks, m.Observe)
		opts = append(opts, framesignal.WithObserver(m))
	}
	cfg.Package.OnEvent = framesignal.ChainEvents(hooks...)

	ch, err := openChannel(ctx, conf)
	if err != nil {
		return nil, err
	}
	link, err := framesignal.NewLink(ch, cfg, opts...)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	log.Printf("channel %s, profile %s, fec %v, %dx%d at %d fps",
		conf.Channel, cfg.Package.Profile, cfg.Package.FEC, cfg.Format.Width, cfg.Format.Height, cfg.Format.FPS)
	return link, nil
}

func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()
	log.Printf("metrics on http://%s/metrics", addr)
	return srv
}
