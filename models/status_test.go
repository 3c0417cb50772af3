package models_test

import (
	"testing"

	"recovery-service/models"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus_FirstNotification(t *testing.T) {
	next := models.NextStatus(models.StatusAbandoned, models.EventNotified)
	assert.Equal(t, models.StatusNotifiedFirst, next)
}

func TestNextStatus_RepeatNotificationsLandOnFinal(t *testing.T) {
	// A second send never goes back to notified_first.
	next := models.NextStatus(models.StatusNotifiedFirst, models.EventNotified)
	assert.Equal(t, models.StatusNotifiedFinal, next)

	next = models.NextStatus(models.StatusNotifiedFinal, models.EventNotified)
	assert.Equal(t, models.StatusNotifiedFinal, next)

	next = models.NextStatus(models.StatusNone, models.EventNotified)
	assert.Equal(t, models.StatusNotifiedFinal, next)
}

func TestNextStatus_Recovered(t *testing.T) {
	for _, current := range []models.RecoveryStatus{
		models.StatusAbandoned,
		models.StatusNotifiedFirst,
		models.StatusNotifiedFinal,
	} {
		assert.Equal(t, models.StatusRecovered, models.NextStatus(current, models.EventRecovered),
			"from %s", current)
	}
}

func TestNextStatus_ExpireOnlyFromFinal(t *testing.T) {
	assert.Equal(t, models.StatusLost, models.NextStatus(models.StatusNotifiedFinal, models.EventExpired))

	// Expiry does not touch earlier states.
	assert.Equal(t, models.StatusAbandoned, models.NextStatus(models.StatusAbandoned, models.EventExpired))
	assert.Equal(t, models.StatusNotifiedFirst, models.NextStatus(models.StatusNotifiedFirst, models.EventExpired))
}

func TestNextStatus_TerminalStatesNeverMove(t *testing.T) {
	for _, terminal := range []models.RecoveryStatus{models.StatusRecovered, models.StatusLost} {
		for _, event := range []models.RecoveryEvent{models.EventNotified, models.EventRecovered, models.EventExpired} {
			assert.Equal(t, terminal, models.NextStatus(terminal, event))
		}
		assert.True(t, terminal.IsTerminal())
	}
}

func TestItemsTotal(t *testing.T) {
	items := []models.CartItem{
		{ProductID: "p1", Price: 10.0, Quantity: 2},
		{ProductID: "p2", Price: 5.5, Quantity: 1},
	}
	assert.InDelta(t, 25.5, models.ItemsTotal(items), 0.001)
	assert.Zero(t, models.ItemsTotal(nil))
}
