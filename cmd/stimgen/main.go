package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/stimgen/stimgen/pkg/logger"
	"github.com/stimgen/stimgen/pkg/stimgen"
	"github.com/urfave/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	app := newApp(version)
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}

func newApp(version string) *cli.App {
	app := cli.NewApp()
	app.Name = "Stimgen"
	app.Version = fmt.Sprintf("%s, %s, %s, %s", version, commit, date, builtBy)

	app.Usage = "rate-controlled synthetic traffic generator for network sensor testing"

	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "src, s",
			Usage: "source IP address (enables frame transport, needs CAP_NET_RAW)",
		},
		cli.StringFlag{
			Name:  "dst, d",
			Usage: "destination IP address",
		},
		cli.IntFlag{
			Name:  "port, p",
			Usage: "destination port (required for stream transport)",
		},
		cli.StringFlag{
			Name:  "iface, i",
			Value: "eth1",
			Usage: "network interface for frame transport",
		},
		cli.StringFlag{
			Name:  "src-mac",
			Usage: "source MAC address (with --dst-mac, selects link-layer framing)",
		},
		cli.StringFlag{
			Name:  "dst-mac",
			Usage: "destination MAC address (with --src-mac, selects link-layer framing)",
		},
		cli.StringFlag{
			Name:  "type, t",
			Value: "http",
			Usage: "traffic type: http, dns, tcp, icmp, udp, mixed",
		},
		cli.IntFlag{
			Name:  "rate, r",
			Usage: "packets per second (default: 100; dns 50, icmp 10)",
		},
		cli.IntFlag{
			Name:  "duration, D",
			Value: 10,
			Usage: "duration in seconds",
		},
		cli.IntFlag{
			Name:  "size",
			Usage: "payload size in bytes (default: 1400 frame, 1024 stream)",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "YAML profile file; explicitly set flags override it",
		},
		cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "expose Prometheus metrics on this address (e.g. :9090)",
		},
		cli.BoolFlag{
			Name:  "json",
			Usage: "log in JSON format",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "enable debug logging",
		},
		cli.BoolFlag{
			Name:  "quiet, q",
			Usage: "only log warnings and errors",
		},
	}
	app.Action = run
	return app
}

func run(ctx *cli.Context) error {
	var logCfg logger.Config
	if err := envconfig.Process("stimgen", &logCfg); err != nil {
		return fmt.Errorf("failed to read logger environment: %w", err)
	}
	if ctx.Bool("json") {
		logCfg.JSON = true
	}
	if ctx.Bool("verbose") {
		logCfg.Verbose = 1
	}
	if ctx.Bool("quiet") {
		logCfg.Quiet = true
	}

	profile, err := buildProfile(ctx)
	if err != nil {
		return err
	}

	cfg := stimgen.Config{
		LoggerConfig: logCfg,
		Profile:      profile,
		MetricsAddr:  ctx.String("metrics-addr"),
	}
	gen, err := stimgen.New(cfg)
	if err != nil {
		return err
	}
	defer gen.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return gen.Run(runCtx)
}

// buildProfile starts from the YAML profile when one is given and
// overlays explicitly set flags; without a file the flags stand alone.
func buildProfile(ctx *cli.Context) (stimgen.Profile, error) {
	var profile stimgen.Profile
	var err error

	fromFile := ctx.String("config") != ""
	if fromFile {
		profile, err = stimgen.LoadProfile(ctx.String("config"))
		if err != nil {
			return profile, err
		}
	}

	set := func(flag string) bool { return !fromFile || ctx.IsSet(flag) }
	if set("src") {
		profile.SrcIP = ctx.String("src")
	}
	if set("dst") {
		profile.DstIP = ctx.String("dst")
	}
	if set("port") {
		profile.DstPort = ctx.Int("port")
	}
	if set("iface") {
		profile.Device = ctx.String("iface")
	}
	if set("src-mac") {
		profile.SrcMAC = ctx.String("src-mac")
	}
	if set("dst-mac") {
		profile.DstMAC = ctx.String("dst-mac")
	}
	if set("type") {
		profile.Protocol = stimgen.Protocol(ctx.String("type"))
	}
	if set("rate") {
		profile.Rate = ctx.Int("rate")
	}
	if set("duration") {
		profile.Duration = ctx.Int("duration")
	}
	if set("size") {
		profile.PayloadSize = ctx.Int("size")
	}
	return profile, nil
}
