package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := New("info", format)
		require.NoError(t, err, format)
		assert.NotNil(t, log)
	}
}

func TestNew_InvalidInputs(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestNewTestLogger(t *testing.T) {
	log, observed := NewTestLogger()

	log.Info("cloning", zap.String("repository", "acme/api"))
	log.Debug("details")

	require.Equal(t, 2, observed.Len())
	entries := observed.FilterMessage("cloning").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "acme/api", entries[0].ContextMap()["repository"])
}
