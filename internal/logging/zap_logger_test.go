package logging

import (
	"testing"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/stretchr/testify/require"
)

func TestNewZapLoggerSatisfiesContract(t *testing.T) {
	var log contracts.Logger = NewZapLogger()
	require.NotNil(t, log)

	log.SetLevel(contracts.DebugLevel)
	log.Info("starting up", log.Field().String("component", "test"))
	log.Debug("verbose detail", log.Field().Int("n", 3))

	child := log.With(log.Field().String("scope", "child"))
	require.NotNil(t, child)
	child.Warn("child logger works")
}
