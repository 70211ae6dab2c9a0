// Package client discovers a running gomo bridge on the local network.
package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/mbocsi/gomo/web"
)

// DiscoveredBridge describes a gomo monitor endpoint found over mDNS.
type DiscoveredBridge struct {
	Name       string
	Address    string
	Port       int
	TXTRecords []string
}

// Discover finds the first gomo bridge advertising on the LAN. The
// assistant-facing SSDP discovery is separate; this locates the monitor API.
func Discover(timeout time.Duration) (*DiscoveredBridge, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	entriesCh := make(chan *mdns.ServiceEntry, 4)

	go func() {
		defer close(entriesCh)
		mdns.Lookup(web.ServiceType, entriesCh)
	}()

	select {
	case entry := <-entriesCh:
		if entry == nil {
			return nil, fmt.Errorf("no gomo bridge found")
		}

		var address string
		if entry.AddrV4 != nil {
			address = entry.AddrV4.String()
		} else if entry.AddrV6 != nil {
			address = fmt.Sprintf("[%s]", entry.AddrV6.String())
		} else {
			return nil, fmt.Errorf("no valid address found for bridge")
		}

		bridge := &DiscoveredBridge{
			Name:       entry.Name,
			Address:    address,
			Port:       entry.Port,
			TXTRecords: entry.InfoFields,
		}

		slog.Info("Discovered gomo bridge",
			"name", bridge.Name,
			"address", bridge.Address,
			"port", bridge.Port,
		)
		return bridge, nil

	case <-time.After(timeout):
		return nil, fmt.Errorf("mDNS discovery timeout for %s", web.ServiceType)
	}
}
