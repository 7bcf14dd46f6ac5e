package messenger

import (
	"net/url"
	"strings"
)

// parsedAddress is a URI broken into the pieces getLink and the link
// key need: host, port (defaulted by scheme), and an address path with
// any single leading slash stripped.
type parsedAddress struct {
	host, port, path string
}

// parseAddress parses raw as a URI and defaults its port by scheme
// (amqps -> 5671, anything else -> 5672). Returns ErrInvalidAddress if
// raw does not parse or carries no host.
func parseAddress(raw string) (parsedAddress, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return parsedAddress{}, ErrInvalidAddress
	}
	if u.Hostname() == "" {
		return parsedAddress{}, ErrInvalidAddress
	}
	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	return parsedAddress{
		host: u.Hostname(),
		port: port,
		path: strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func defaultPort(scheme string) string {
	if scheme == "amqps" {
		return "5671"
	}
	return "5672"
}
