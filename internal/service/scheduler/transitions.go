package scheduler

import (
	"github.com/carebook/scheduling-api/internal/model"
)

// Trigger names an event that may move an appointment between statuses.
type Trigger string

const (
	TriggerConfirmPayment Trigger = "payment_confirmed"
	TriggerConfirm        Trigger = "confirm"
	TriggerReschedule     Trigger = "reschedule"
	TriggerCancel         Trigger = "cancel"
	TriggerCallOpen       Trigger = "call_window_open"
	TriggerCallStart      Trigger = "call_start"
	TriggerComplete       Trigger = "complete"
	TriggerNoShow         Trigger = "no_show"
)

type transitionKey struct {
	from    model.AppointmentStatus
	trigger Trigger
}

// transitions is the single authority on status changes. Anything absent
// here is a StateTransitionError; no service may bypass it with ad hoc
// status checks.
var transitions = map[transitionKey]model.AppointmentStatus{
	{model.AppointmentStatusPendingPayment, TriggerConfirmPayment}: model.AppointmentStatusConfirmed,

	{model.AppointmentStatusPending, TriggerConfirm}: model.AppointmentStatusConfirmed,

	{model.AppointmentStatusPending, TriggerReschedule}:        model.AppointmentStatusRescheduled,
	{model.AppointmentStatusPendingPayment, TriggerReschedule}: model.AppointmentStatusRescheduled,
	{model.AppointmentStatusConfirmed, TriggerReschedule}:      model.AppointmentStatusRescheduled,

	{model.AppointmentStatusPending, TriggerCancel}:        model.AppointmentStatusCancelled,
	{model.AppointmentStatusPendingPayment, TriggerCancel}: model.AppointmentStatusCancelled,
	{model.AppointmentStatusConfirmed, TriggerCancel}:      model.AppointmentStatusCancelled,
	{model.AppointmentStatusReadyForCall, TriggerCancel}:   model.AppointmentStatusCancelled,
	{model.AppointmentStatusInProgress, TriggerCancel}:     model.AppointmentStatusCancelled,

	{model.AppointmentStatusConfirmed, TriggerCallOpen}: model.AppointmentStatusReadyForCall,

	{model.AppointmentStatusReadyForCall, TriggerCallStart}: model.AppointmentStatusInProgress,

	{model.AppointmentStatusInProgress, TriggerComplete}: model.AppointmentStatusCompleted,

	{model.AppointmentStatusConfirmed, TriggerNoShow}:    model.AppointmentStatusNoShow,
	{model.AppointmentStatusReadyForCall, TriggerNoShow}: model.AppointmentStatusNoShow,
}

// nextStatus resolves the target status for (from, trigger), or false when
// the transition is not in the table.
func nextStatus(from model.AppointmentStatus, trigger Trigger) (model.AppointmentStatus, bool) {
	to, ok := transitions[transitionKey{from, trigger}]
	return to, ok
}

// allowedFrom lists every status from which the trigger may fire; the
// conditional UPDATE is scoped to this set so a concurrent transition makes
// the write a no-op instead of a clobber.
func allowedFrom(trigger Trigger) []model.AppointmentStatus {
	var from []model.AppointmentStatus
	for key := range transitions {
		if key.trigger == trigger {
			from = append(from, key.from)
		}
	}
	return from
}
