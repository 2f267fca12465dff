package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/sketchduel/canvas"
	"github.com/Seednode/sketchduel/transport"
)

type Config struct {
	address        string
	bind           string
	canvasHeight   int
	canvasWidth    int
	connectTimeout time.Duration
	headless       bool
	host           bool
	logFile        string
	mute           bool
	port           int
	profile        bool
	reconnect      bool
	roundSeconds   int
	verbose        bool
	version        bool
	webBind        string
	webPort        int
	words          string
	writeTimeout   time.Duration

	// Set once logging is configured.
	logger zerolog.Logger
	// One round-clock step; a second outside of tests.
	tick time.Duration
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.webPort < 0 || c.webPort > 65535 {
		return fmt.Errorf("invalid web port (must be 0 to disable, or between 1-65535 inclusive): %d", c.webPort)
	}
	if c.webPort != 0 && c.host && c.webPort == c.port && c.webBind == c.bind {
		return errors.New("--web-port must differ from --port")
	}
	if c.roundSeconds < 1 {
		return fmt.Errorf("invalid round length (must be at least 1 second): %d", c.roundSeconds)
	}
	if c.canvasWidth < 1 || c.canvasWidth > canvas.MaxSide || c.canvasHeight < 1 || c.canvasHeight > canvas.MaxSide {
		return fmt.Errorf("invalid canvas size (each side must be between 1-%d inclusive): %dx%d", canvas.MaxSide, c.canvasWidth, c.canvasHeight)
	}
	if c.connectTimeout <= 0 || c.writeTimeout <= 0 {
		return errors.New("--connect-timeout and --write-timeout must be positive")
	}
	if !c.host && strings.TrimSpace(c.address) == "" {
		return errors.New("an address to join is required")
	}
	return nil
}

// listenAddress is where a host accepts its peer.
func (c *Config) listenAddress() string {
	return net.JoinHostPort(c.bind, strconv.Itoa(c.port))
}

// joinAddress is where a joiner dials; a bare host gets --port.
func (c *Config) joinAddress() string {
	if _, _, err := net.SplitHostPort(c.address); err == nil {
		return c.address
	}
	return net.JoinHostPort(strings.Trim(c.address, "[]"), strconv.Itoa(c.port))
}

func (c *Config) transport() *transport.Config {
	tc := transport.DefaultConfig()
	tc.Address = c.listenAddress()
	tc.ConnectTimeout = c.connectTimeout
	tc.WriteTimeout = c.writeTimeout
	return tc
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHDUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sketchduel",
		Short:         "A two-player drawing and guessing game played over a direct TCP connection.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
	}

	host := &cobra.Command{
		Use:   "host",
		Short: "Wait for a peer to join, then draw first.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.host = true
			if err := cfg.validate(); err != nil {
				return err
			}
			return Play(cmd.Context(), cfg)
		},
	}

	join := &cobra.Command{
		Use:   "join <address>",
		Short: "Connect to a hosting peer and guess first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.host = false
			cfg.address = args[0]
			if err := cfg.validate(); err != nil {
				return err
			}
			return Play(cmd.Context(), cfg)
		},
	}

	cmd.AddCommand(host, join)

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to accept a peer on when hosting (env: SKETCHDUEL_BIND)")
	fs.IntVar(&cfg.canvasHeight, "canvas-height", 600, "canvas height in pixels (env: SKETCHDUEL_CANVAS_HEIGHT)")
	fs.IntVar(&cfg.canvasWidth, "canvas-width", 800, "canvas width in pixels (env: SKETCHDUEL_CANVAS_WIDTH)")
	fs.DurationVar(&cfg.connectTimeout, "connect-timeout", 5*time.Second, "time allowed to reach the host when joining (env: SKETCHDUEL_CONNECT_TIMEOUT)")
	fs.BoolVar(&cfg.headless, "headless", false, "read actions from stdin and print events to stdout instead of drawing the terminal (env: SKETCHDUEL_HEADLESS)")
	fs.StringVar(&cfg.logFile, "log-file", "", "append logs to this file (env: SKETCHDUEL_LOG_FILE)")
	fs.BoolVarP(&cfg.mute, "mute", "m", false, "do not play a chime when a round ends (env: SKETCHDUEL_MUTE)")
	fs.IntVarP(&cfg.port, "port", "p", transport.DefaultPort, "port to host on, or to join when the address has none (env: SKETCHDUEL_PORT)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers on the web viewer (env: SKETCHDUEL_PROFILE)")
	fs.BoolVar(&cfg.reconnect, "reconnect", false, "keep redialing the host after the connection drops (env: SKETCHDUEL_RECONNECT)")
	fs.IntVarP(&cfg.roundSeconds, "round-seconds", "r", 180, "length of a round in seconds (env: SKETCHDUEL_ROUND_SECONDS)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SKETCHDUEL_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SKETCHDUEL_VERSION)")
	fs.StringVar(&cfg.webBind, "web-bind", "127.0.0.1", "address to bind the web viewer to (env: SKETCHDUEL_WEB_BIND)")
	fs.IntVar(&cfg.webPort, "web-port", 0, "port for the read-only web viewer, 0 to disable (env: SKETCHDUEL_WEB_PORT)")
	fs.StringVarP(&cfg.words, "words", "w", "", "file of secret words, one per line (env: SKETCHDUEL_WORDS)")
	fs.DurationVar(&cfg.writeTimeout, "write-timeout", 5*time.Second, "time allowed for a single write to the peer (env: SKETCHDUEL_WRITE_TIMEOUT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("sketchduel v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
