package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/transport/video"
)

func TestParseConfig_Defaults(t *testing.T) {
	t.Parallel()

	conf, err := ParseConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, channelSim, conf.Channel)
	assert.Equal(t, framesignal.ProfileCRC16, conf.Profile)
	assert.Equal(t, 30, conf.Format.FPS)
	assert.Equal(t, framesignal.DefaultRoundTripAttempts, conf.Retry.MaxAttempts)
}

func TestParseConfig_YAML(t *testing.T) {
	t.Parallel()

	conf, err := ParseConfig([]byte(`
channel: uart
profile: crc8
fec: true
leading_pad: 5
format:
  fps: 60
retry:
  max_attempts: 5
uart:
  port: /dev/ttyUSB0
  read_timeout: 20ms
`), ".yaml")
	require.NoError(t, err)

	assert.Equal(t, channelUART, conf.Channel)
	assert.Equal(t, framesignal.ProfileCRC8, conf.Profile)
	assert.True(t, conf.FEC)
	assert.Equal(t, 5, conf.LeadingPad)
	assert.Equal(t, 3, conf.TrailingPad)
	assert.Equal(t, 60, conf.Format.FPS)
	assert.Equal(t, 200, conf.Format.Width)
	assert.Equal(t, 5, conf.Retry.MaxAttempts)
	assert.Equal(t, framesignal.RoundTripInitialBackoff, conf.Retry.InitialBackoff)
	assert.Equal(t, "/dev/ttyUSB0", conf.UART.PortName)
	assert.Equal(t, 20*time.Millisecond, conf.UART.ReadTimeout)
	assert.Equal(t, 115200, conf.UART.BaudRate)
}

func TestParseConfig_TOML(t *testing.T) {
	t.Parallel()

	conf, err := ParseConfig([]byte(`
channel = "video"
profile = "size-only"

[video]
dir = "/tmp/frames"
mode = "frames"
min_disk_space_mb = 0

[retry]
max_backoff = "1s"
`), ".toml")
	require.NoError(t, err)

	assert.Equal(t, channelVideo, conf.Channel)
	assert.Equal(t, framesignal.ProfileSizeOnly, conf.Profile)
	assert.Equal(t, "/tmp/frames", conf.Video.Dir)
	assert.Equal(t, video.ModeFrames, conf.Video.Mode)
	assert.Zero(t, conf.Video.MinDiskSpaceMB)
	assert.Equal(t, "libx264", conf.Video.Codec)
	assert.Equal(t, time.Second, conf.Retry.MaxBackoff)
}

func TestParseConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  string
		data string
	}{
		{name: "unknown yaml key", ext: ".yaml", data: "chanel: sim\n"},
		{name: "unknown toml key", ext: ".toml", data: "chanel = \"sim\"\n"},
		{name: "unknown channel", ext: ".yaml", data: "channel: smoke\n"},
		{name: "bad profile", ext: ".yml", data: "profile: crc32\n"},
		{name: "bad format", ext: ".yaml", data: "format:\n  fps: 0\n"},
		{name: "negative pad", ext: ".toml", data: "trailing_pad = -1\n"},
		{name: "bad channel section", ext: ".yaml", data: "channel: video\nvideo:\n  mode: film\n"},
		{name: "bad sim", ext: ".yaml", data: "sim:\n  flip_probability: 2\n"},
		{name: "bad extension", ext: ".json", data: "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig([]byte(tt.data), tt.ext)
			require.Error(t, err)
		})
	}
}

func TestParseConfig_EmptyYAML(t *testing.T) {
	t.Parallel()

	conf, err := ParseConfig(nil, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, channelSim, conf.Channel)
}

func TestParseConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "framesignal.yml")
	require.NoError(t, os.WriteFile(path, []byte("channel: ws\nws:\n  url: ws://relay:8765/frames\n"), 0o600))

	conf, err := ParseConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, channelWS, conf.Channel)
	assert.Equal(t, "ws://relay:8765/frames", conf.WS.URL)

	_, err = ParseConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfig_LinkConfig(t *testing.T) {
	t.Parallel()

	conf := defaultConfig()
	conf.FEC = true
	conf.PadBit = true
	conf.Retry.MaxAttempts = 7

	lc := conf.LinkConfig()
	require.NoError(t, lc.Validate())
	assert.True(t, lc.Package.FEC)
	assert.True(t, lc.PadBit)
	assert.Equal(t, 3, lc.LeadingPad)
	require.NotNil(t, lc.Retry)
	assert.Equal(t, 7, lc.Retry.MaxAttempts)

	// the link gets a copy
	lc.Retry.MaxAttempts = 1
	assert.Equal(t, 7, conf.Retry.MaxAttempts)
}
