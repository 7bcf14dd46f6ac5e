package messenger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	cases := []struct {
		raw  string
		want parsedAddress
	}{
		{"amqp://host.example.com/foo", parsedAddress{host: "host.example.com", port: "5672", path: "foo"}},
		{"amqp://host:1234/foo/bar", parsedAddress{host: "host", port: "1234", path: "foo/bar"}},
		{"amqps://host", parsedAddress{host: "host", port: "5671", path: ""}},
	}
	for _, c := range cases {
		got, err := parseAddress(c.raw)
		require.NoError(t, err, c.raw)
		require.Equal(t, c.want, got, c.raw)
	}
}

func TestParseAddressRejectsMissingHost(t *testing.T) {
	_, err := parseAddress("not a valid uri with no host")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestParseAddressRejectsUnparsable(t *testing.T) {
	_, err := parseAddress("amqp://%zz")
	require.ErrorIs(t, err, ErrInvalidAddress)
}
