// Screen Logic Core - display power orchestration
//
// This is the main entry point for the screenlogic binary. It drives a
// fleet of networked TVs and signage displays over adb and webos,
// either as a one-shot command (-action) or as a long-running service
// exposing the HTTP API, WebSocket stream, and MQTT integration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/nerrad567/screen-logic-core/migrations"

	"github.com/nerrad567/screen-logic-core/internal/api"
	"github.com/nerrad567/screen-logic-core/internal/bridges/adb"
	"github.com/nerrad567/screen-logic-core/internal/bridges/webos"
	"github.com/nerrad567/screen-logic-core/internal/control"
	"github.com/nerrad567/screen-logic-core/internal/display"
	"github.com/nerrad567/screen-logic-core/internal/infrastructure/config"
	"github.com/nerrad567/screen-logic-core/internal/infrastructure/database"
	"github.com/nerrad567/screen-logic-core/internal/infrastructure/logging"
	"github.com/nerrad567/screen-logic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/screen-logic-core/internal/pairing"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath string
	action     string
	group      string
	names      namesFlag
}

// namesFlag collects repeated -name flags.
type namesFlag []string

func (n *namesFlag) String() string { return fmt.Sprint([]string(*n)) }

func (n *namesFlag) Set(v string) error {
	*n = append(*n, v)
	return nil
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("screenlogic", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.StringVar(&opts.action, "action", "", "run one action (check|on|off) and exit; empty runs the service")
	fs.StringVar(&opts.group, "group", "", "restrict the action to one display group")
	fs.Var(&opts.names, "name", "restrict the action to a named display (repeatable)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.configPath == "" {
		opts.configPath = os.Getenv("SCREENLOGIC_CONFIG")
	}
	if opts.configPath == "" {
		opts.configPath = defaultConfigPath
	}
	return opts, nil
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Use default logger until config is loaded
	log := logging.Default()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting Screen Logic Core",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", opts.configPath,
		"displays", len(cfg.Displays),
	)

	// Open database and run migrations. The database holds webos
	// pairing tokens, so both one-shot and service modes need it.
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	dispatcher, err := buildDispatcher(cfg, db, log)
	if err != nil {
		return err
	}

	if opts.action != "" {
		return runOnce(ctx, cfg, dispatcher, opts, stdout)
	}
	return runService(ctx, cfg, dispatcher, log)
}

// buildDispatcher wires the protocol bridges, resolver, and dispatcher.
func buildDispatcher(cfg *config.Config, db *database.DB, log *logging.Logger) (*control.Dispatcher, error) {
	adbBridge, err := adb.NewBridge(adb.Config{
		Binary:         cfg.ADB.Binary,
		Port:           cfg.ADB.Port,
		ConnectTimeout: time.Duration(cfg.ADB.ConnectTimeout) * time.Second,
		CommandTimeout: time.Duration(cfg.ADB.CommandTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("creating adb bridge: %w", err)
	}
	adbBridge.SetLogger(log.With("component", "adb"))

	tokens := pairing.NewStore(db)
	webosBridge, err := webos.NewBridge(webos.Config{
		Port:             cfg.WebOS.Port,
		HandshakeTimeout: time.Duration(cfg.WebOS.HandshakeTimeout) * time.Second,
		CommandTimeout:   time.Duration(cfg.WebOS.CommandTimeout) * time.Second,
		BroadcastAddress: cfg.WOL.BroadcastAddress,
		WOLPort:          cfg.WOL.Port,
	}, tokens)
	if err != nil {
		return nil, fmt.Errorf("creating webos bridge: %w", err)
	}
	webosBridge.SetLogger(log.With("component", "webos"))

	resolver := control.NewResolver(map[display.Protocol]control.Driver{
		display.ProtocolADB:   adbBridge,
		display.ProtocolWebOS: webosBridge,
	})

	dispatcher := control.NewDispatcher(resolver)
	dispatcher.SetLogger(log.With("component", "dispatch"))
	return dispatcher, nil
}

// runOnce runs a single action against the selected displays, printing
// each result as it completes. A non-nil error (and so a non-zero exit
// code) is returned when any display fails.
func runOnce(ctx context.Context, cfg *config.Config, dispatcher *control.Dispatcher, opts options, stdout io.Writer) error {
	action, err := display.ParseAction(opts.action)
	if err != nil {
		return err
	}

	targets, err := selectTargets(cfg.Displays, opts.group, opts.names)
	if err != nil {
		return err
	}

	results := dispatcher.Dispatch(ctx, targets, action, control.Options{
		MaxConcurrency: cfg.Dispatch.MaxConcurrency,
		OnComplete: func(res display.Result) {
			fmt.Fprintln(stdout, formatResult(res))
		},
	})

	if failed := countFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d displays failed", failed, len(results))
	}
	return nil
}

// runService starts the long-running service: MQTT integration when
// enabled, the HTTP API, and graceful shutdown on signal.
func runService(ctx context.Context, cfg *config.Config, dispatcher *control.Dispatcher, log *logging.Logger) error {
	shared := &serviceDispatcher{inner: dispatcher}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		client.SetLogger(log.With("component", "mqtt"))
		client.SetOnConnect(func() { log.Info("MQTT connected") })
		client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		shared.mqtt = client
		shared.qos = byte(cfg.MQTT.QoS)

		if err := subscribePowerCommands(client, cfg, shared, log); err != nil {
			return fmt.Errorf("subscribing to power commands: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:         cfg.API,
			WS:             cfg.WebSocket,
			Logger:         log.With("component", "api"),
			Displays:       cfg.Displays,
			Dispatcher:     shared,
			MaxConcurrency: cfg.Dispatch.MaxConcurrency,
			Version:        version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// serviceDispatcher serialises dispatches from the API and MQTT paths
// and publishes every result retained to its display topic, so late
// subscribers see the last known state of each display.
type serviceDispatcher struct {
	inner *control.Dispatcher
	mqtt  *mqtt.Client
	qos   byte
	mu    sync.Mutex
}

func (s *serviceDispatcher) Dispatch(ctx context.Context, displays []display.Display, action display.Action, opts control.Options) []display.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	userCB := opts.OnComplete
	opts.OnComplete = func(res display.Result) {
		s.publishResult(res)
		if userCB != nil {
			userCB(res)
		}
	}
	return s.inner.Dispatch(ctx, displays, action, opts)
}

func (s *serviceDispatcher) publishResult(res display.Result) {
	if s.mqtt == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	// Best effort: a broker hiccup must not fail the dispatch.
	_ = s.mqtt.PublishRetained(mqtt.Topics{}.DisplayResult(res.Name), payload)
}

// powerCommand is the payload accepted on the power command topic.
type powerCommand struct {
	Action string   `json:"action"`
	Group  string   `json:"group,omitempty"`
	Names  []string `json:"names,omitempty"`
}

// subscribePowerCommands wires the MQTT command topic to the dispatcher.
// Commands run in their own goroutine; the paho handler must not block
// for the length of a dispatch.
func subscribePowerCommands(client *mqtt.Client, cfg *config.Config, dispatcher *serviceDispatcher, log *logging.Logger) error {
	topic := mqtt.Topics{}.PowerCommand()
	return client.Subscribe(topic, byte(cfg.MQTT.QoS), func(_ string, payload []byte) error {
		var cmd powerCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("parsing power command: %w", err)
		}

		action, err := display.ParseAction(cmd.Action)
		if err != nil {
			return err
		}

		targets, err := selectTargets(cfg.Displays, cmd.Group, cmd.Names)
		if err != nil {
			return err
		}

		log.Info("power command received", "action", string(action), "displays", len(targets))
		go dispatcher.Dispatch(context.Background(), targets, action, control.Options{
			MaxConcurrency: cfg.Dispatch.MaxConcurrency,
		})
		return nil
	})
}

// selectTargets narrows the configured fleet by group and names. Every
// requested name must exist.
func selectTargets(displays []display.Display, group string, names []string) ([]display.Display, error) {
	pool := display.InGroup(displays, group)
	if group != "" && len(pool) == 0 {
		return nil, fmt.Errorf("no displays in group %q", group)
	}

	if len(names) == 0 {
		if len(pool) == 0 {
			return nil, fmt.Errorf("no displays configured")
		}
		return pool, nil
	}

	byName := make(map[string]display.Display, len(pool))
	for _, d := range pool {
		byName[d.Name] = d
	}

	targets := make([]display.Display, 0, len(names))
	for _, name := range names {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown display %q", name)
		}
		targets = append(targets, d)
	}
	return targets, nil
}

// formatResult renders one result line for the one-shot CLI output.
func formatResult(res display.Result) string {
	outcome := string(res.Outcome)
	if outcome == "" {
		outcome = "-"
	}
	return fmt.Sprintf("%-20s %-15s %-12s %-8s %s", res.Name, res.Address, res.State, outcome, res.Message)
}

// countFailed returns how many results carry a failed outcome.
func countFailed(results []display.Result) int {
	failed := 0
	for _, res := range results {
		if res.Outcome == display.OutcomeFailed {
			failed++
		}
	}
	return failed
}
