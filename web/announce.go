package web

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service under which the monitor advertises itself.
// The assistant-facing discovery is SSDP; this one exists so LAN tooling can
// find the bridge without scanning.
const ServiceType = "_gomo._tcp"

// Announcer publishes the monitor endpoint over mDNS.
type Announcer struct {
	server *mdns.Server
}

func NewAnnouncer(ip net.IP, addr string) (*Announcer, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("parse monitor addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse monitor port: %w", err)
	}

	host, err := os.Hostname()
	if err != nil {
		host = "gomo"
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, []net.IP{ip}, []string{"gomo device monitor"})
	if err != nil {
		return nil, fmt.Errorf("build mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mdns server: %w", err)
	}
	return &Announcer{server: server}, nil
}

func (a *Announcer) Shutdown() error {
	return a.server.Shutdown()
}
