package shipment

// Step is the wizard's position. Steps only ever advance, and only one at a
// time; the server remains the source of truth for the draft between steps.
type Step string

const (
	StepSelectingDates Step = "selecting_dates"
	StepAppointment    Step = "appointment"
	StepFinalizing     Step = "finalizing"
	StepCheckout       Step = "checkout"
	StepPaid           Step = "paid"
)

var stepOrder = map[Step]int{
	StepSelectingDates: 0,
	StepAppointment:    1,
	StepFinalizing:     2,
	StepCheckout:       3,
	StepPaid:           4,
}

// Leg names one side of a shipment.
type Leg string

const (
	LegPickup  Leg = "pickup"
	LegDropoff Leg = "dropoff"
)
