package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllStepsDone(t *testing.T) {
	assert.False(t, (&Task{}).AllStepsDone())
	assert.False(t, (&Task{Steps: []Step{{Done: true}, {Done: false}}}).AllStepsDone())
	assert.True(t, (&Task{Steps: []Step{{Done: true}, {Done: true}}}).AllStepsDone())
}

func TestUrgencyRank(t *testing.T) {
	assert.Less(t, UrgencyLow.Rank(), UrgencyNormal.Rank())
	assert.Less(t, UrgencyNormal.Rank(), UrgencyHigh.Rank())
	assert.Less(t, UrgencyHigh.Rank(), UrgencyUrgent.Rank())
	assert.False(t, Urgency("meh").Valid())
}

func TestPreferencesLocation(t *testing.T) {
	assert.Equal(t, time.UTC, Preferences{}.Location())
	assert.Equal(t, time.UTC, Preferences{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "Europe/Berlin", Preferences{Timezone: "Europe/Berlin"}.Location().String())
}
