package sasl

import (
	"testing"

	"github.com/amqp-messenger/messenger/internal/encoding"
	"github.com/amqp-messenger/messenger/internal/frames"
	"github.com/stretchr/testify/require"
)

func TestClientNegotiatorAnswersMechanismsWithAnonymousInit(t *testing.T) {
	var c ClientNegotiator
	out, complete, err := c.Step(&frames.SASLMechanisms{Mechanisms: []encoding.Symbol{MechanismAnonymous}})
	require.NoError(t, err)
	require.False(t, complete)
	init, ok := out.(*frames.SASLInit)
	require.True(t, ok)
	require.Equal(t, MechanismAnonymous, init.Mechanism)
}

func TestClientNegotiatorCompletesOnOutcome(t *testing.T) {
	var c ClientNegotiator
	_, _, err := c.Step(&frames.SASLMechanisms{Mechanisms: []encoding.Symbol{MechanismAnonymous}})
	require.NoError(t, err)

	out, complete, err := c.Step(&frames.SASLOutcome{Code: 0})
	require.NoError(t, err)
	require.True(t, complete)
	require.Nil(t, out)
}

func TestClientNegotiatorIgnoresUnrelatedFrames(t *testing.T) {
	var c ClientNegotiator
	out, complete, err := c.Step(&frames.PerformOpen{ContainerID: "peer"})
	require.NoError(t, err)
	require.False(t, complete)
	require.Nil(t, out)
}

func TestServerNegotiatorStartOffersAnonymous(t *testing.T) {
	var s ServerNegotiator
	out := s.Start()
	mechs, ok := out.(*frames.SASLMechanisms)
	require.True(t, ok)
	require.Equal(t, []encoding.Symbol{MechanismAnonymous}, mechs.Mechanisms)
	require.True(t, s.offered)
}

func TestServerNegotiatorAcceptsAnyInitWithoutVerification(t *testing.T) {
	var s ServerNegotiator
	s.Start()

	out, complete, err := s.Step(&frames.SASLInit{Mechanism: MechanismAnonymous})
	require.NoError(t, err)
	require.True(t, complete)
	outcome, ok := out.(*frames.SASLOutcome)
	require.True(t, ok)
	require.Equal(t, uint8(0), outcome.Code)
}

func TestServerNegotiatorWaitsForInit(t *testing.T) {
	var s ServerNegotiator
	out, complete, err := s.Step(&frames.PerformOpen{ContainerID: "peer"})
	require.NoError(t, err)
	require.False(t, complete)
	require.Nil(t, out)
}
