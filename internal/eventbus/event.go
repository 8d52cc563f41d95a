package eventbus

import "strconv"

// Event types pushed to subscribers.
const (
	EvDeliveryStatus   = "delivery_status_change"
	EvDeliveryRequest  = "delivery_request"
	EvRequestAccepted  = "delivery_request_accepted"
	EvSearchExpired    = "search_expired"
	EvTrackingLocation = "track_delivery_location"
	EvNewMessage       = "new_message"
	EvMessageRead      = "message_read"
	EvNotification     = "notification"
	EvTyping           = "typing_indicator"
)

// Event is one published message. Data must be JSON-serializable.
type Event struct {
	Topic string
	Type  string
	Data  any
}

// UserTopic names the private topic of one user.
func UserTopic(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// DeliveryTopic names the shared topic of one delivery.
func DeliveryTopic(deliveryID int64) string {
	return "delivery:" + strconv.FormatInt(deliveryID, 10)
}
