package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/mbocsi/gomo/backends"
	"github.com/mbocsi/gomo/config"
	"github.com/mbocsi/gomo/device"
	"github.com/mbocsi/gomo/server"
	"github.com/mbocsi/gomo/web"
)

func main() {
	logger := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(logger))

	configPath := flag.String("config", "gomo.yaml", "Path to the YAML config")
	ifaceFlag := flag.String("interface", "", "LAN IP to advertise when running without a config")
	enableMCP := flag.Bool("mcp", false, "Serve MCP tools on stdio")
	flag.Parse()

	cfg, err := loadOrDemo(*configPath, *ifaceFlag)
	if err != nil {
		slog.Error("Failed to load config", "path", *configPath, "error", err.Error())
		os.Exit(1)
	}

	opts := server.GomoServerOptions{
		Interface: net.ParseIP(cfg.Interface),
		StartPort: cfg.StartPort,
	}
	if *enableMCP {
		opts.MCPServer = server.NewMCPServer()
	}

	srv, err := server.NewGomoServer(opts)
	if err != nil {
		slog.Error("Failed to create server", "error", err.Error())
		os.Exit(1)
	}

	if len(cfg.Devices) == 0 && len(cfg.Groups) == 0 {
		err = registerDemoDevices(srv)
	} else {
		err = registerDevices(srv, cfg)
	}
	if err != nil {
		slog.Error("Failed to register devices", "error", err.Error())
		os.Exit(1)
	}

	monitor := web.NewMonitor(cfg.Web.Addr, srv.Registry())
	go func() {
		if err := monitor.Start(); err != nil {
			slog.Error("Web monitor stopped", "error", err.Error())
		}
	}()

	var announcer *web.Announcer
	if cfg.Web.MDNS {
		announcer, err = web.NewAnnouncer(net.ParseIP(cfg.Interface), cfg.Web.Addr)
		if err != nil {
			slog.Warn("Failed to announce monitor over mDNS", "error", err.Error())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		slog.Error("Server stopped", "error", err.Error())
	}

	if announcer != nil {
		announcer.Shutdown()
	}
	monitor.Shutdown()
}

// loadOrDemo loads the config file, or synthesizes a minimal config from the
// -interface flag when the file does not exist so the bridge can run with
// the demo devices.
func loadOrDemo(path, iface string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || iface == "" {
		return nil, err
	}

	slog.Warn("No config file found, starting with demo devices", "path", path, "interface", iface)
	cfg = &config.Config{Interface: iface}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// registerDemoDevices puts a couple of in-memory switches on the network so
// discovery and control can be exercised without any real hardware.
func registerDemoDevices(srv *server.GomoServer) error {
	for _, name := range []string{"Demo Lamp", "Demo Fan"} {
		var on atomic.Bool
		if _, err := srv.AddFunctionalDevice(name,
			func(ctx context.Context) (device.State, error) {
				on.Store(true)
				return device.On, nil
			},
			func(ctx context.Context) (device.State, error) {
				on.Store(false)
				return device.Off, nil
			},
			func(ctx context.Context) (device.State, error) {
				if on.Load() {
					return device.On, nil
				}
				return device.Off, nil
			}); err != nil {
			return err
		}
	}
	return nil
}

// registerDevices builds every configured MQTT switch behind its configured
// wrapper, then the groups over the resulting synchronized handles.
func registerDevices(srv *server.GomoServer, cfg *config.Config) error {
	var broker *backends.PahoBroker
	if len(cfg.Devices) > 0 {
		var err error
		broker, err = backends.ConnectBroker(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password)
		if err != nil {
			return err
		}
	}

	handles := make(map[string]*device.Synced)
	for _, d := range cfg.Devices {
		sw, err := backends.NewSwitch(broker, backends.SwitchConfig{
			CommandTopic: d.MQTT.CommandTopic,
			StateTopic:   d.MQTT.StateTopic,
			PayloadOn:    d.MQTT.PayloadOn,
			PayloadOff:   d.MQTT.PayloadOff,
		})
		if err != nil {
			return err
		}

		var handle *device.Synced
		switch d.Wrapper {
		case config.WrapperPolling:
			handle, err = srv.AddPollingDevice(d.Name, sw)
		case config.WrapperInstant:
			handle, err = srv.AddInstantOnDevice(d.Name, sw)
		default:
			handle, err = srv.AddDevice(d.Name, sw)
		}
		if err != nil {
			return err
		}
		handles[d.Name] = handle
	}

	for _, g := range cfg.Groups {
		members := make([]device.Device, 0, len(g.Members))
		for _, name := range g.Members {
			members = append(members, handles[name])
		}
		if _, err := srv.AddDeviceGroup(g.Name, members); err != nil {
			return err
		}
	}
	return nil
}
