package domain

type (
	// DeliveryStatus represents the lifecycle status of a delivery.
	DeliveryStatus string
	// Actor identifies who requests a status transition.
	Actor string
)

// List of possible delivery statuses.
const (
	StatusPending            DeliveryStatus = "pending"
	StatusSearchingCourier   DeliveryStatus = "searching_courier"
	StatusCourierAssigned    DeliveryStatus = "courier_assigned"
	StatusEnRouteToPickup    DeliveryStatus = "en_route_to_pickup"
	StatusApproachingPickup  DeliveryStatus = "approaching_pickup"
	StatusAtPickup           DeliveryStatus = "at_pickup"
	StatusPickedUp           DeliveryStatus = "picked_up"
	StatusInTransit          DeliveryStatus = "in_transit"
	StatusApproachingDropoff DeliveryStatus = "approaching_dropoff"
	StatusAtDropoff          DeliveryStatus = "at_dropoff"
	StatusDelivered          DeliveryStatus = "delivered"
	StatusCancelled          DeliveryStatus = "cancelled"
	StatusFailed             DeliveryStatus = "failed"
	StatusReturned           DeliveryStatus = "returned"
)

// List of transition actors.
const (
	ActorSender  Actor = "sender"
	ActorCourier Actor = "courier"
	ActorSystem  Actor = "system"
)

var allowedStatuses = [...]DeliveryStatus{
	StatusPending, StatusSearchingCourier, StatusCourierAssigned,
	StatusEnRouteToPickup, StatusApproachingPickup, StatusAtPickup,
	StatusPickedUp, StatusInTransit, StatusApproachingDropoff,
	StatusAtDropoff, StatusDelivered, StatusCancelled, StatusFailed,
	StatusReturned,
}

// Valid checks if the DeliveryStatus is valid.
func (s DeliveryStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s DeliveryStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusFailed, StatusReturned:
		return true
	}
	return false
}

type transition struct {
	from  DeliveryStatus
	to    DeliveryStatus
	actor Actor
}

// legalTransitions is the delivery state machine. A (from, to, actor) triple
// absent from this table is rejected.
var legalTransitions = map[transition]struct{}{
	{StatusPending, StatusSearchingCourier, ActorSystem}:           {},
	{StatusPending, StatusCancelled, ActorSender}:                  {},
	{StatusSearchingCourier, StatusCourierAssigned, ActorSystem}:   {},
	{StatusSearchingCourier, StatusCancelled, ActorSender}:         {},
	{StatusCourierAssigned, StatusEnRouteToPickup, ActorCourier}:   {},
	{StatusCourierAssigned, StatusCancelled, ActorSender}:          {},
	{StatusEnRouteToPickup, StatusApproachingPickup, ActorSystem}:  {},
	{StatusEnRouteToPickup, StatusAtPickup, ActorCourier}:          {},
	{StatusEnRouteToPickup, StatusCancelled, ActorSender}:          {},
	{StatusApproachingPickup, StatusAtPickup, ActorCourier}:        {},
	{StatusAtPickup, StatusPickedUp, ActorCourier}:                 {},
	{StatusAtPickup, StatusFailed, ActorCourier}:                   {},
	{StatusPickedUp, StatusInTransit, ActorCourier}:                {},
	{StatusPickedUp, StatusFailed, ActorCourier}:                   {},
	{StatusPickedUp, StatusReturned, ActorCourier}:                 {},
	{StatusInTransit, StatusApproachingDropoff, ActorSystem}:       {},
	{StatusInTransit, StatusAtDropoff, ActorCourier}:               {},
	{StatusInTransit, StatusFailed, ActorCourier}:                  {},
	{StatusInTransit, StatusReturned, ActorCourier}:                {},
	{StatusApproachingDropoff, StatusAtDropoff, ActorCourier}:      {},
	{StatusApproachingDropoff, StatusFailed, ActorCourier}:         {},
	{StatusApproachingDropoff, StatusReturned, ActorCourier}:       {},
	{StatusAtDropoff, StatusDelivered, ActorCourier}:               {},
	{StatusAtDropoff, StatusFailed, ActorCourier}:                  {},
	{StatusAtDropoff, StatusReturned, ActorCourier}:                {},
}

// CanTransition reports whether actor may move a delivery from one status to another.
func CanTransition(from, to DeliveryStatus, actor Actor) bool {
	_, ok := legalTransitions[transition{from: from, to: to, actor: actor}]
	return ok
}

// ReasonRequired reports whether a transition into the target status must carry
// a free-text reason.
func ReasonRequired(to DeliveryStatus) bool {
	switch to {
	case StatusFailed, StatusReturned, StatusCancelled:
		return true
	}
	return false
}
