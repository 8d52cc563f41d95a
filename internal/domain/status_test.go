package domain

import "testing"

func TestDeliveryStatus_Terminal(t *testing.T) {
	terminal := []DeliveryStatus{StatusDelivered, StatusCancelled, StatusFailed, StatusReturned}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []DeliveryStatus{
		StatusPending, StatusSearchingCourier, StatusCourierAssigned,
		StatusEnRouteToPickup, StatusApproachingPickup, StatusAtPickup,
		StatusPickedUp, StatusInTransit, StatusApproachingDropoff, StatusAtDropoff,
	}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestCanTransition_HappyPath(t *testing.T) {
	path := []struct {
		from  DeliveryStatus
		to    DeliveryStatus
		actor Actor
	}{
		{StatusPending, StatusSearchingCourier, ActorSystem},
		{StatusSearchingCourier, StatusCourierAssigned, ActorSystem},
		{StatusCourierAssigned, StatusEnRouteToPickup, ActorCourier},
		{StatusEnRouteToPickup, StatusApproachingPickup, ActorSystem},
		{StatusApproachingPickup, StatusAtPickup, ActorCourier},
		{StatusAtPickup, StatusPickedUp, ActorCourier},
		{StatusPickedUp, StatusInTransit, ActorCourier},
		{StatusInTransit, StatusApproachingDropoff, ActorSystem},
		{StatusApproachingDropoff, StatusAtDropoff, ActorCourier},
		{StatusAtDropoff, StatusDelivered, ActorCourier},
	}
	for _, step := range path {
		if !CanTransition(step.from, step.to, step.actor) {
			t.Errorf("expected %s -> %s by %s to be legal", step.from, step.to, step.actor)
		}
	}
}

func TestCanTransition_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		from  DeliveryStatus
		to    DeliveryStatus
		actor Actor
	}{
		{"skip ahead", StatusPending, StatusDelivered, ActorCourier},
		{"wrong actor for assign", StatusSearchingCourier, StatusCourierAssigned, ActorCourier},
		{"wrong actor for cancel", StatusSearchingCourier, StatusCancelled, ActorCourier},
		{"cancel after pickup", StatusPickedUp, StatusCancelled, ActorSender},
		{"backwards", StatusInTransit, StatusPickedUp, ActorCourier},
		{"out of terminal", StatusDelivered, StatusInTransit, ActorCourier},
		{"approaching dropoff from picked_up", StatusPickedUp, StatusApproachingDropoff, ActorSystem},
		{"courier fails before pickup window", StatusEnRouteToPickup, StatusFailed, ActorCourier},
	}
	for _, tc := range cases {
		if CanTransition(tc.from, tc.to, tc.actor) {
			t.Errorf("%s: %s -> %s by %s should be rejected", tc.name, tc.from, tc.to, tc.actor)
		}
	}
}

func TestReasonRequired(t *testing.T) {
	for _, s := range []DeliveryStatus{StatusFailed, StatusReturned, StatusCancelled} {
		if !ReasonRequired(s) {
			t.Errorf("reason should be required for %s", s)
		}
	}
	if ReasonRequired(StatusDelivered) {
		t.Error("delivered must not require a reason")
	}
}

func TestPromoCode_Discount(t *testing.T) {
	cap := 15.0
	pct := PromoCode{DiscountType: DiscountPercentage, DiscountValue: 20, MaximumDiscount: &cap}
	if got := pct.Discount(50); got != 10 {
		t.Errorf("percentage discount = %v, want 10", got)
	}
	if got := pct.Discount(200); got != 15 {
		t.Errorf("capped discount = %v, want 15", got)
	}

	fixed := PromoCode{DiscountType: DiscountFixed, DiscountValue: 8}
	if got := fixed.Discount(5); got != 5 {
		t.Errorf("fixed discount clamped = %v, want 5", got)
	}
	if got := fixed.Discount(50); got != 8 {
		t.Errorf("fixed discount = %v, want 8", got)
	}
}

func TestPaymentStatus_CanAdvanceTo(t *testing.T) {
	ok := []struct{ from, to PaymentStatus }{
		{PaymentPending, PaymentAuthorized},
		{PaymentPending, PaymentFailed},
		{PaymentAuthorized, PaymentCaptured},
		{PaymentAuthorized, PaymentRefunded},
	}
	for _, c := range ok {
		if !c.from.CanAdvanceTo(c.to) {
			t.Errorf("%s -> %s should be allowed", c.from, c.to)
		}
	}
	bad := []struct{ from, to PaymentStatus }{
		{PaymentCaptured, PaymentRefunded},
		{PaymentRefunded, PaymentCaptured},
		{PaymentPending, PaymentCaptured},
		{PaymentFailed, PaymentAuthorized},
	}
	for _, c := range bad {
		if c.from.CanAdvanceTo(c.to) {
			t.Errorf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}
