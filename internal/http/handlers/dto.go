package handlers

import (
	"time"

	"courier-dispatch/internal/domain"
)

type addressDTO struct {
	Label      string  `json:"label,omitempty"`
	Street     string  `json:"street"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	AccessCode string  `json:"access_code,omitempty"`
}

type recipientDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type proofDTO struct {
	PhotoURL     string `json:"photo_url,omitempty"`
	SignatureURL string `json:"signature_url,omitempty"`
	IDVerified   bool   `json:"id_verified,omitempty"`
}

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type estimateRequest struct {
	Pickup        pointDTO             `json:"pickup"`
	Dropoff       pointDTO             `json:"dropoff"`
	PackageTypeID int64                `json:"package_type_id"`
	Weight        float64              `json:"weight"`
	Priority      domain.PriorityLevel `json:"priority,omitempty"`
	PromoCode     string               `json:"promo_code,omitempty"`
}

type estimateResponse struct {
	Success          bool    `json:"success"`
	BaseFee          float64 `json:"base_fee"`
	DistanceFee      float64 `json:"distance_fee"`
	WeightFee        float64 `json:"weight_fee"`
	PriorityFee      float64 `json:"priority_fee"`
	Tax              float64 `json:"tax"`
	Discount         float64 `json:"discount"`
	Total            float64 `json:"total"`
	DistanceMiles    float64 `json:"distance_miles"`
	EstimatedMinutes int     `json:"estimated_minutes"`
}

type createDeliveryRequest struct {
	Pickup              addressDTO           `json:"pickup"`
	Dropoff             addressDTO           `json:"dropoff"`
	PackageTypeID       int64                `json:"package_type_id"`
	Weight              float64              `json:"weight"`
	Description         string               `json:"description,omitempty"`
	Fragile             bool                 `json:"fragile,omitempty"`
	RequiresSignature   bool                 `json:"requires_signature,omitempty"`
	RequiresID          bool                 `json:"requires_id,omitempty"`
	RequiresPhotoProof  bool                 `json:"requires_photo_proof,omitempty"`
	Recipient           recipientDTO         `json:"recipient"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	Priority            domain.PriorityLevel `json:"priority,omitempty"`
	ScheduledPickupAt   *time.Time           `json:"scheduled_pickup_at,omitempty"`
	PaymentMethodID     *int64               `json:"payment_method_id,omitempty"`
	PromoCode           string               `json:"promo_code,omitempty"`
	PackagePhotoURL     string               `json:"package_photo_url,omitempty"`
}

type deliveryDTO struct {
	ID                  int64                `json:"id"`
	SenderID            int64                `json:"sender_id"`
	CourierID           *int64               `json:"courier_id,omitempty"`
	Status              domain.DeliveryStatus `json:"status"`
	StatusSince         time.Time            `json:"status_since"`
	Pickup              addressDTO           `json:"pickup"`
	Dropoff             addressDTO           `json:"dropoff"`
	PackageTypeID       int64                `json:"package_type_id"`
	PackageDescription  string               `json:"package_description,omitempty"`
	PackageWeight       float64              `json:"package_weight"`
	Fragile             bool                 `json:"fragile"`
	RequiresSignature   bool                 `json:"requires_signature"`
	RequiresID          bool                 `json:"requires_id"`
	RequiresPhotoProof  bool                 `json:"requires_photo_proof"`
	Recipient           recipientDTO         `json:"recipient"`
	VerificationCode    string               `json:"verification_code,omitempty"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	DistanceMiles       float64              `json:"distance_miles"`
	EstimatedMinutes    int                  `json:"estimated_minutes"`
	Priority            domain.PriorityLevel `json:"priority"`
	ScheduledPickupAt   *time.Time           `json:"scheduled_pickup_at,omitempty"`
	ActualPickupAt      *time.Time           `json:"actual_pickup_at,omitempty"`
	ActualDeliveryAt    *time.Time           `json:"actual_delivery_at,omitempty"`
	EstimatedDeliveryAt *time.Time           `json:"estimated_delivery_at,omitempty"`
	CancellationReason  string               `json:"cancellation_reason,omitempty"`
	PackagePhotoURL     string               `json:"package_photo_url,omitempty"`
	DeliveryProofURL    string               `json:"delivery_proof_url,omitempty"`
	SignatureURL        string               `json:"signature_url,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

type breakdownDTO struct {
	BaseFee     float64 `json:"base_fee"`
	DistanceFee float64 `json:"distance_fee"`
	WeightFee   float64 `json:"weight_fee"`
	PriorityFee float64 `json:"priority_fee"`
	Tax         float64 `json:"tax"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

type paymentDTO struct {
	ID            int64                `json:"id"`
	DeliveryID    int64                `json:"delivery_id"`
	Status        domain.PaymentStatus `json:"status"`
	Amount        float64              `json:"amount"`
	Tip           float64              `json:"tip"`
	Breakdown     breakdownDTO         `json:"breakdown"`
	TransactionID string               `json:"transaction_id,omitempty"`
	RefundAmount  float64              `json:"refund_amount,omitempty"`
	RefundReason  string               `json:"refund_reason,omitempty"`
}

type statusEventDTO struct {
	Status    domain.DeliveryStatus `json:"status"`
	Lat       *float64              `json:"lat,omitempty"`
	Lng       *float64              `json:"lng,omitempty"`
	Notes     string                `json:"notes,omitempty"`
	System    bool                  `json:"system"`
	CreatedAt time.Time             `json:"created_at"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type tipRequest struct {
	Amount float64 `json:"amount"`
}

type rateRequest struct {
	Overall       int    `json:"overall"`
	Timeliness    *int   `json:"timeliness,omitempty"`
	Communication *int   `json:"communication,omitempty"`
	Handling      *int   `json:"handling,omitempty"`
	Comment       string `json:"comment,omitempty"`
}

type reportIssueRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

type transitionRequest struct {
	Status   domain.DeliveryStatus `json:"status"`
	Location *pointDTO             `json:"location,omitempty"`
	Notes    string                `json:"notes,omitempty"`
	Proof    *proofDTO             `json:"delivery_proof,omitempty"`
}

type availabilityRequest struct {
	IsAvailable bool      `json:"is_available"`
	Location    *pointDTO `json:"location,omitempty"`
}

type locationSampleRequest struct {
	Lat          float64    `json:"lat"`
	Lng          float64    `json:"lng"`
	AccuracyM    *float64   `json:"accuracy_m,omitempty"`
	Heading      *float64   `json:"heading,omitempty"`
	SpeedMps     *float64   `json:"speed_mps,omitempty"`
	BatteryLevel *int       `json:"battery_level,omitempty"`
	RecordedAt   *time.Time `json:"recorded_at,omitempty"`
}

type sendMessageRequest struct {
	Content       string `json:"content"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	TrackingToken string `json:"tracking_token,omitempty"`
}

type messageDTO struct {
	ID            int64      `json:"id"`
	DeliveryID    int64      `json:"delivery_id"`
	SenderID      *int64     `json:"sender_id,omitempty"`
	SenderLabel   string     `json:"sender_label"`
	RecipientID   int64      `json:"recipient_id"`
	Content       string     `json:"content"`
	AttachmentURL string     `json:"attachment_url,omitempty"`
	Read          bool       `json:"read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type notificationDTO struct {
	ID         int64                   `json:"id"`
	Type       domain.NotificationType `json:"type"`
	Title      string                  `json:"title"`
	Content    string                  `json:"content"`
	Read       bool                    `json:"read"`
	ReadAt     *time.Time              `json:"read_at,omitempty"`
	DeliveryID *int64                  `json:"delivery_id,omitempty"`
	ActionURL  string                  `json:"action_url,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

type validatePromoRequest struct {
	Code        string  `json:"code"`
	OrderAmount float64 `json:"order_amount"`
}

type ledgerEntryDTO struct {
	DeliveryID int64     `json:"delivery_id"`
	Amount     float64   `json:"amount"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}

type dailyEarningsDTO struct {
	Day    string  `json:"day"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}
