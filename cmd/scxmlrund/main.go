// Command scxmlrund hosts a single SCXML-like document over HTTP and
// WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/comalice/scxmlrun/internal/config"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/logging"
	"github.com/comalice/scxmlrun/internal/invoke"
	scxmlrun "github.com/comalice/scxmlrun"
	"github.com/comalice/scxmlrun/transport"
)

func main() {
	addr := flag.String("addr", "", "listen address, overrides config")
	configPath := flag.String("config", "", "path to a YAML config file")
	logLevel := flag.String("log-level", "", "log level, overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root := demoGraph()

	resolve := func(spec *graph.InvokeSpec) (*graph.Node, error) {
		return nil, fmt.Errorf("scxmlrund: no document resolver configured for %q", spec.Src)
	}
	ms := scxmlrun.NewMultiSession(invoke.ContentResolver(resolve))
	ms.Strict = cfg.Strict

	srv := transport.NewServer(ms, root, cfg.RespondInline)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// demoGraph builds a tiny default document (off -> on -> off) so the server
// has something to serve out of the box; real deployments supply their own
// document resolver.
func demoGraph() *graph.Node {
	b := graph.NewBuilder("demo")
	b.AddState("demo", "off", graph.Atomic)
	b.AddState("demo", "on", graph.Atomic)
	b.SetInitial("demo", "off")
	b.AddTransition("off", []string{"toggle"}, "", []string{"on"})
	b.AddTransition("on", []string{"toggle"}, "", []string{"off"})
	root, err := b.Freeze()
	if err != nil {
		panic(err)
	}
	return root
}
