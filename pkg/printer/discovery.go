package printer

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
)

// RawPrintService is the mDNS service type advertised by raw-port (9100) printers.
const RawPrintService = "_pdl-datastream._tcp"

// DiscoveredPrinter is a printer found on the local network.
type DiscoveredPrinter struct {
	Instance  string   `json:"instance"`
	Host      string   `json:"host"`
	Addresses []string `json:"addresses"`
	Port      int      `json:"port"`
	Text      []string `json:"text,omitempty"`
}

// Address returns the first IPv4 address as a printer Address.
func (p DiscoveredPrinter) Address() Address {
	host := p.Host
	if len(p.Addresses) > 0 {
		host = p.Addresses[0]
	}
	return Address{Host: host, Port: p.Port}
}

// Discover browses the local network for raw-port printers until timeout elapses
// or ctx is cancelled.
func Discover(ctx context.Context, timeout time.Duration) ([]DiscoveredPrinter, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("printer: failed to create mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []DiscoveredPrinter, 1)

	go func(results <-chan *zeroconf.ServiceEntry) {
		var found []DiscoveredPrinter
		seen := make(map[string]bool)
		for entry := range results {
			if seen[entry.Instance] {
				continue
			}
			seen[entry.Instance] = true

			p := DiscoveredPrinter{
				Instance: entry.Instance,
				Host:     entry.HostName,
				Port:     entry.Port,
				Text:     entry.Text,
			}
			for _, ip := range entry.AddrIPv4 {
				p.Addresses = append(p.Addresses, ip.String())
			}
			found = append(found, p)
		}
		done <- found
	}(entries)

	if err := resolver.Browse(ctx, RawPrintService, "local.", entries); err != nil {
		return nil, fmt.Errorf("printer: failed to browse for printers: %w", err)
	}

	<-ctx.Done()
	return <-done, nil
}
