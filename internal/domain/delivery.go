package domain

import "time"

// PriorityLevel represents the delivery priority.
type PriorityLevel string

// List of possible priority levels.
const (
	PriorityStandard PriorityLevel = "standard"
	PriorityExpress  PriorityLevel = "express"
	PriorityUrgent   PriorityLevel = "urgent"
)

var allowedPriorities = [...]PriorityLevel{
	PriorityStandard, PriorityExpress, PriorityUrgent,
}

// Valid checks if the PriorityLevel is valid.
func (p PriorityLevel) Valid() bool {
	for _, v := range allowedPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Address is an immutable address snapshot taken at delivery creation.
type Address struct {
	Label      string
	Street     string
	City       string
	PostalCode string
	Lat        float64
	Lng        float64
	AccessCode string
}

// RecipientContact is an immutable recipient snapshot.
type RecipientContact struct {
	Name  string
	Phone string
}

// PackageType describes a bookable package class.
type PackageType struct {
	ID        int64
	Name      string
	BasePrice float64
	MaxWeight float64
}

// Delivery is the aggregate root of the delivery lifecycle.
type Delivery struct {
	ID                 int64
	SenderID           int64
	CourierID          *int64
	PickupAddress      Address
	DropoffAddress     Address
	PackageTypeID      int64
	Status             DeliveryStatus
	StatusSince        time.Time
	ScheduledPickupAt  *time.Time
	ActualPickupAt     *time.Time
	ActualDeliveryAt   *time.Time
	EstimatedDeliveryAt *time.Time
	PackageDescription string
	PackageWeight      float64
	Fragile            bool
	RequiresSignature  bool
	RequiresID         bool
	RequiresPhotoProof bool
	Recipient          RecipientContact
	VerificationCode   string
	SpecialInstructions string
	DistanceMiles      float64
	EstimatedMinutes   int
	Priority           PriorityLevel
	CancellationReason string
	PackagePhotoURL    string
	DeliveryProofURL   string
	SignatureURL       string
	IDVerified         bool
	CreatedAt          time.Time
}

// StatusEvent is an append-only per-delivery status log entry.
type StatusEvent struct {
	ID         int64
	DeliveryID int64
	Status     DeliveryStatus
	Lat        *float64
	Lng        *float64
	Notes      string
	ActorID    *int64
	System     bool
	CreatedAt  time.Time
}

// Proof carries the assets a courier supplies with a delivered transition.
type Proof struct {
	PhotoURL     string
	SignatureURL string
	IDVerified   bool
}

// TransitionRequest is an actor-tagged command to move a delivery to a new status.
type TransitionRequest struct {
	DeliveryID int64
	To         DeliveryStatus
	Actor      Actor
	ActorID    int64
	Lat        *float64
	Lng        *float64
	Notes      string
	Reason     string
	Proof      Proof
}

// DeliveryIssue is a problem report opened by a sender or courier.
type DeliveryIssue struct {
	ID          int64
	DeliveryID  int64
	ReporterID  int64
	Category    string
	Description string
	CreatedAt   time.Time
}

// Rating is one per-rater-per-delivery review row. Timeliness, communication
// and handling apply only when a sender rates a courier.
type Rating struct {
	ID            int64
	DeliveryID    int64
	RaterID       int64
	RateeID       int64
	Overall       int
	Timeliness    *int
	Communication *int
	Handling      *int
	Comment       string
	CreatedAt     time.Time
}
