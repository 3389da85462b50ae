package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carebook/scheduling-api/internal/model"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    model.AppointmentStatus
		trigger Trigger
		want    model.AppointmentStatus
		ok      bool
	}{
		{"payment confirms a pending-payment booking", model.AppointmentStatusPendingPayment, TriggerConfirmPayment, model.AppointmentStatusConfirmed, true},
		{"confirm accepts a pending booking", model.AppointmentStatusPending, TriggerConfirm, model.AppointmentStatusConfirmed, true},
		{"call window opens a confirmed booking", model.AppointmentStatusConfirmed, TriggerCallOpen, model.AppointmentStatusReadyForCall, true},
		{"call starts from ready", model.AppointmentStatusReadyForCall, TriggerCallStart, model.AppointmentStatusInProgress, true},
		{"complete ends an in-progress visit", model.AppointmentStatusInProgress, TriggerComplete, model.AppointmentStatusCompleted, true},
		{"no-show from confirmed", model.AppointmentStatusConfirmed, TriggerNoShow, model.AppointmentStatusNoShow, true},
		{"cannot confirm payment on a pending booking", model.AppointmentStatusPending, TriggerConfirmPayment, "", false},
		{"cannot start a call before the window opens", model.AppointmentStatusConfirmed, TriggerCallStart, "", false},
		{"cannot complete a confirmed booking", model.AppointmentStatusConfirmed, TriggerComplete, "", false},
		{"cancelled is terminal", model.AppointmentStatusCancelled, TriggerConfirm, "", false},
		{"completed is terminal", model.AppointmentStatusCompleted, TriggerCancel, "", false},
		{"rescheduled is terminal", model.AppointmentStatusRescheduled, TriggerCancel, "", false},
		{"no-show is terminal", model.AppointmentStatusNoShow, TriggerCancel, "", false},
		{"in-progress cannot reschedule", model.AppointmentStatusInProgress, TriggerReschedule, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nextStatus(tt.from, tt.trigger)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAllowedFrom(t *testing.T) {
	cancelFrom := allowedFrom(TriggerCancel)
	assert.ElementsMatch(t, []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusPendingPayment,
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusReadyForCall,
		model.AppointmentStatusInProgress,
	}, cancelFrom)

	assert.ElementsMatch(t, []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusPendingPayment,
		model.AppointmentStatusConfirmed,
	}, allowedFrom(TriggerReschedule))

	// Every terminal status is absent from every trigger's from-set.
	terminal := []model.AppointmentStatus{
		model.AppointmentStatusCancelled,
		model.AppointmentStatusCompleted,
		model.AppointmentStatusNoShow,
		model.AppointmentStatusRescheduled,
	}
	triggers := []Trigger{
		TriggerConfirmPayment, TriggerConfirm, TriggerReschedule, TriggerCancel,
		TriggerCallOpen, TriggerCallStart, TriggerComplete, TriggerNoShow,
	}
	for _, trigger := range triggers {
		for _, status := range terminal {
			assert.NotContains(t, allowedFrom(trigger), status, "trigger %s must not fire from %s", trigger, status)
		}
	}
}
