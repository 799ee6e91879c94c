package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestRefresherLifecycle(t *testing.T) {
	refresher := NewRefresherService(nil, testLogger())

	require.NoError(t, refresher.Start("@daily"))
	err := refresher.Start("@daily")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	refresher.Stop()
	// Stopping twice is harmless.
	refresher.Stop()
}

func TestRefresherRejectsBadSchedule(t *testing.T) {
	refresher := NewRefresherService(nil, testLogger())
	err := refresher.Start("not a cron expression")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule")
}
