package main

import (
	"context"
	"fmt"

	"github.com/patte/go-framesignal"
	simtest "github.com/patte/go-framesignal/internal/testing"
	"github.com/patte/go-framesignal/transport/gpio"
	"github.com/patte/go-framesignal/transport/uart"
	"github.com/patte/go-framesignal/transport/video"
	"github.com/patte/go-framesignal/transport/ws"
)

// openChannel opens the channel selected in conf.
func openChannel(ctx context.Context, conf *Config) (framesignal.Channel, error) {
	var (
		ch  framesignal.Channel
		err error
	)
	switch conf.Channel {
	case channelVideo:
		ch, err = video.New(conf.Video)
	case channelUART:
		ch, err = uart.New(conf.UART)
	case channelGPIO:
		ch, err = gpio.Open(conf.GPIO)
	case channelWS:
		ch, err = ws.Dial(ctx, conf.WS)
	case channelSim:
		ch = simtest.NewLossyChannel(conf.Sim.lossConfig())
	default:
		err = fmt.Errorf("unknown channel %q", conf.Channel)
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}
