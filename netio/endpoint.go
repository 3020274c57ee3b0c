// Package netio is the socket layer: a thin, non-blocking wrapper over
// UDP and the endpoint/address types every other package addresses peers
// with.
package netio

import (
	"fmt"
	"strconv"
	"strings"
)

// IpAddress is an IPv4 address, stored as four octets.
type IpAddress struct {
	A, B, C, D byte
}

// PortNumber is a UDP/TCP port.
type PortNumber = uint16

func (a IpAddress) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a.A, a.B, a.C, a.D)
}

// ParseIpAddress parses "a.b.c.d".
func ParseIpAddress(s string) (IpAddress, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return IpAddress{}, fmt.Errorf("netio: invalid IPv4 address %q", s)
	}
	var octets [4]byte
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return IpAddress{}, fmt.Errorf("netio: invalid IPv4 octet %q in %q", p, s)
		}
		octets[i] = byte(n)
	}
	return IpAddress{octets[0], octets[1], octets[2], octets[3]}, nil
}

// IpEndpoint is an address/port pair.
type IpEndpoint struct {
	Address IpAddress
	Port    PortNumber
}

func (e IpEndpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Address, e.Port)
}

// ParseIpEndpoint parses "a.b.c.d" (port 0) or "a.b.c.d:p".
func ParseIpEndpoint(s string) (IpEndpoint, error) {
	host, portStr, found := strings.Cut(s, ":")
	addr, err := ParseIpAddress(host)
	if err != nil {
		return IpEndpoint{}, err
	}
	if !found {
		return IpEndpoint{Address: addr}, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 0xFFFF {
		return IpEndpoint{}, fmt.Errorf("netio: invalid port %q in %q", portStr, s)
	}
	return IpEndpoint{Address: addr, Port: PortNumber(port)}, nil
}
