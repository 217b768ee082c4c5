package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerRegistersJobs(t *testing.T) {
	scheduler, err := NewScheduler("Australia/Sydney", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, scheduler.Jobs())
}

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	_, err := NewScheduler("Mars/Olympus_Mons", nil, nil, nil)
	assert.Error(t, err)
}

func TestSchedulerStartStop(t *testing.T) {
	scheduler, err := NewScheduler("UTC", nil, nil, nil)
	require.NoError(t, err)

	scheduler.Start()
	scheduler.Stop()
}
