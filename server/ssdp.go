package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	ssdpMulticastAddr = "239.255.255.250:1900"
	ssdpReadBufSize   = 65535
)

// SSDPResponder answers the assistant's discovery probes. It joins the SSDP
// multicast group on 239.255.255.250:1900 from one long-lived goroutine and
// replies to every matching M-SEARCH with one response datagram per
// registered device. The registry snapshot makes this safe to run while
// devices are still being registered.
type SSDPResponder struct {
	registry *DeviceRegistry
	conn     *net.UDPConn
}

func NewSSDPResponder(registry *DeviceRegistry) *SSDPResponder {
	return &SSDPResponder{registry: registry}
}

// Start blocks reading the multicast socket until Shutdown closes it.
func (l *SSDPResponder) Start() error {
	addr, err := net.ResolveUDPAddr("udp4", ssdpMulticastAddr)
	if err != nil {
		return fmt.Errorf("resolve ssdp multicast addr: %w", err)
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("join ssdp multicast group: %w", err)
	}
	l.conn = conn
	slog.Info("Listening for SSDP discovery requests", "addr", ssdpMulticastAddr)

	buf := make([]byte, ssdpReadBufSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		if !isDiscoveryRequest(string(buf[:n])) {
			continue
		}

		for _, entry := range l.registry.List() {
			slog.Debug("Answering discovery", "device", entry.Info.Name, "from", src.IP.String())
			if _, err := conn.WriteToUDP(discoveryResponse(entry.Info), src); err != nil {
				slog.Warn("Failed to send discovery response", "device", entry.Info.Name, "error", err.Error())
			}
		}
	}
}

func (l *SSDPResponder) Shutdown() error {
	slog.Info("Shutting down SSDP responder")
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

// isDiscoveryRequest matches M-SEARCH datagrams asking for Belkin devices,
// root devices, or everything.
func isDiscoveryRequest(dgram string) bool {
	dgram = strings.ToLower(dgram)

	return strings.Contains(dgram, `man: "ssdp:discover"`) &&
		(strings.Contains(dgram, "st: urn:belkin:device:**") ||
			strings.Contains(dgram, "st: upnp:rootdevice") ||
			strings.Contains(dgram, "st: ssdp:all"))
}

func discoveryResponse(info DeviceInfo) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("CACHE-CONTROL: max-age=86400\r\n")
	fmt.Fprintf(&b, "DATE: %s\r\n", time.Now().UTC().Format(http.TimeFormat))
	b.WriteString("EXT:\r\n")
	fmt.Fprintf(&b, "LOCATION: http://%s:%d/setup.xml\r\n", info.IP.String(), info.Port)
	b.WriteString("OPT: \"http://schemas.upnp.org/upnp/1/0/\"; ns=01\r\n")
	b.WriteString("01-NLS: b9200ebb-736d-4b93-bf03-835149d13983\r\n")
	b.WriteString("SERVER: Unspecified, UPnP/1.0, Unspecified\r\n")
	b.WriteString("ST: urn:Belkin:device:**\r\n")
	fmt.Fprintf(&b, "USN: uuid:%s::urn:Belkin:device:**\r\n", info.UUID)
	b.WriteString("\r\n")
	return []byte(b.String())
}
