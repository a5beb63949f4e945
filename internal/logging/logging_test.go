package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	defer logrus.SetFormatter(&logrus.TextFormatter{})
	assert.Error(t, Init("info", "xml"))
	assert.NoError(t, Init("warn", "json"))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}
