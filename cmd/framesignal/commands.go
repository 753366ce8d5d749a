package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/pkg/message"
	"github.com/patte/go-framesignal/transport/uart"
	"github.com/patte/go-framesignal/transport/ws"
)

const defaultRelayAddr = "127.0.0.1:8765"

func (c *SendCmd) payload() ([]byte, error) {
	set := 0
	if c.Text != "" {
		set++
	}
	if c.Hex != "" {
		set++
	}
	if c.MessageID != 0 || c.MessageContent != "" {
		set++
	}
	if set != 1 {
		return nil, errors.New("send needs exactly one of --text, --hex or --message-id/--message-content")
	}

	switch {
	case c.Text != "":
		return []byte(c.Text), nil
	case c.Hex != "":
		b, err := hex.DecodeString(strings.ReplaceAll(c.Hex, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("--hex: %w", err)
		}
		return b, nil
	default:
		return message.Message{ID: c.MessageID, Content: c.MessageContent}.Marshal(), nil
	}
}

func runSend(ctx context.Context, link *framesignal.Link, cmd *SendCmd, out io.Writer) error {
	payload, err := cmd.payload()
	if err != nil {
		return err
	}
	bits, err := link.Send(ctx, payload)
	if err != nil {
		return err
	}
	fps := link.Config().Format.FPS
	_, _ = fmt.Fprintf(out, "sent %d bytes as %d frames (%v at %d fps)\n",
		len(payload), len(bits), time.Duration(len(bits))*time.Second/time.Duration(fps), fps)
	return nil
}

func runReceive(ctx context.Context, link *framesignal.Link, cmd *ReceiveCmd, out io.Writer) error {
	pkg, err := link.Receive(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "received %d bytes at bit %d (checksum 0x%04X, %d corrected)\n",
		pkg.Size, pkg.Offset, pkg.Checksum, pkg.Corrected)
	_, _ = fmt.Fprintf(out, "hex:  %s\n", hex.EncodeToString(pkg.Payload))
	if utf8.Valid(pkg.Payload) {
		_, _ = fmt.Fprintf(out, "text: %s\n", pkg.Payload)
	}
	if cmd.Message {
		msg, err := message.Unmarshal(pkg.Payload)
		if err != nil {
			return fmt.Errorf("payload is not a message: %w", err)
		}
		_, _ = fmt.Fprintf(out, "message: %s\n", msg)
	}
	return nil
}

type scenario struct {
	name    string
	payload []byte
	check   func([]byte) error
}

func selftestScenarios() []scenario {
	msg := message.Message{ID: 1, Content: "Hello World!"}
	return []scenario{
		{name: "raw bytes", payload: []byte{0b11001110, 0b00110001}},
		{name: "url", payload: []byte("https://github.com/patte")},
		{
			name:    "message",
			payload: msg.Marshal(),
			check: func(b []byte) error {
				got, err := message.Unmarshal(b)
				if err != nil {
					return err
				}
				if got != msg {
					return fmt.Errorf("got %s, want %s", got, msg)
				}
				return nil
			},
		},
	}
}

func runSelftest(ctx context.Context, link *framesignal.Link, out io.Writer) error {
	failed := 0
	for _, sc := range selftestScenarios() {
		result, err := link.RoundTrip(ctx, sc.payload)
		if err == nil && string(result.Package.Payload) != string(sc.payload) {
			err = fmt.Errorf("payload mismatch: got %x", result.Package.Payload)
		}
		if err == nil && sc.check != nil {
			err = sc.check(result.Package.Payload)
		}
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(out, "FAIL %-10s %v\n", sc.name, err)
			continue
		}
		_, _ = fmt.Fprintf(out, "ok   %-10s %d bytes, %d frames sent, %d received, offset %d, attempts %d, efficiency %.3f\n",
			sc.name, result.Package.Size, len(result.Sent), len(result.Received),
			result.Package.Offset, result.Attempts, result.Efficiency())
	}
	if failed > 0 {
		return fmt.Errorf("selftest: %d of %d scenarios failed", failed, len(selftestScenarios()))
	}
	return nil
}

func runRelay(ctx context.Context, cmd *RelayCmd, conf *Config) error {
	addr := cmd.Listen
	if addr == "" {
		addr = defaultRelayAddr
	}
	relay := ws.NewRelay()
	mux := http.NewServeMux()
	mux.Handle("/frames", relay)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("relay listening on ws://%s/frames (channel url %s)", addr, conf.WS.URL)

	select {
	case err := <-errc:
		return fmt.Errorf("relay: %w", err)
	case <-ctx.Done():
	}
	_ = relay.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runPorts(cmd *PortsCmd, out io.Writer) error {
	ports, err := uart.DiscoverPorts(uart.PortFilter{Blocklist: cmd.Block, IgnorePaths: cmd.Ignore})
	if err != nil {
		log.Printf("detailed port list unavailable: %v", err)
		names, err := uart.ListPorts()
		if err != nil {
			return err
		}
		for _, name := range names {
			ports = append(ports, uart.PortInfo{Name: name})
		}
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "no serial ports found")
		return nil
	}
	writePorts(out, ports)
	return nil
}

func writePorts(out io.Writer, ports []uart.PortInfo) {
	for _, p := range ports {
		line := p.Name
		if p.VIDPID != "" {
			line += "  " + p.VIDPID
		}
		if p.Product != "" {
			line += "  " + p.Product
		}
		if p.Serial != "" {
			line += "  serial " + p.Serial
		}
		if p.Likely {
			line += "  (likely)"
		}
		_, _ = fmt.Fprintln(out, line)
	}
}
