package handlers

import (
	"courier-dispatch/internal/domain"
)

func addressToDTO(a domain.Address) addressDTO {
	return addressDTO{
		Label:      a.Label,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Lat:        a.Lat,
		Lng:        a.Lng,
		AccessCode: a.AccessCode,
	}
}

func addressFromDTO(a addressDTO) domain.Address {
	return domain.Address{
		Label:      a.Label,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Lat:        a.Lat,
		Lng:        a.Lng,
		AccessCode: a.AccessCode,
	}
}

func deliveryToDTO(d domain.Delivery) deliveryDTO {
	return deliveryDTO{
		ID:                  d.ID,
		SenderID:            d.SenderID,
		CourierID:           d.CourierID,
		Status:              d.Status,
		StatusSince:         d.StatusSince,
		Pickup:              addressToDTO(d.PickupAddress),
		Dropoff:             addressToDTO(d.DropoffAddress),
		PackageTypeID:       d.PackageTypeID,
		PackageDescription:  d.PackageDescription,
		PackageWeight:       d.PackageWeight,
		Fragile:             d.Fragile,
		RequiresSignature:   d.RequiresSignature,
		RequiresID:          d.RequiresID,
		RequiresPhotoProof:  d.RequiresPhotoProof,
		Recipient:           recipientDTO{Name: d.Recipient.Name, Phone: d.Recipient.Phone},
		VerificationCode:    d.VerificationCode,
		SpecialInstructions: d.SpecialInstructions,
		DistanceMiles:       d.DistanceMiles,
		EstimatedMinutes:    d.EstimatedMinutes,
		Priority:            d.Priority,
		ScheduledPickupAt:   d.ScheduledPickupAt,
		ActualPickupAt:      d.ActualPickupAt,
		ActualDeliveryAt:    d.ActualDeliveryAt,
		EstimatedDeliveryAt: d.EstimatedDeliveryAt,
		CancellationReason:  d.CancellationReason,
		PackagePhotoURL:     d.PackagePhotoURL,
		DeliveryProofURL:    d.DeliveryProofURL,
		SignatureURL:        d.SignatureURL,
		CreatedAt:           d.CreatedAt,
	}
}

// deliveryToTrackingDTO is the redacted view served to tracking-token holders:
// no access codes, no pickup verification code.
func deliveryToTrackingDTO(d domain.Delivery) deliveryDTO {
	out := deliveryToDTO(d)
	out.Pickup.AccessCode = ""
	out.Dropoff.AccessCode = ""
	out.VerificationCode = ""
	return out
}

func paymentToDTO(p domain.Payment) paymentDTO {
	return paymentDTO{
		ID:            p.ID,
		DeliveryID:    p.DeliveryID,
		Status:        p.Status,
		Amount:        p.Amount,
		Tip:           p.Tip,
		Breakdown:     breakdownToDTO(p.Breakdown),
		TransactionID: p.TransactionID,
		RefundAmount:  p.RefundAmount,
		RefundReason:  p.RefundReason,
	}
}

func breakdownToDTO(b domain.Breakdown) breakdownDTO {
	return breakdownDTO{
		BaseFee:     b.BaseFee,
		DistanceFee: b.DistanceFee,
		WeightFee:   b.WeightFee,
		PriorityFee: b.PriorityFee,
		Tax:         b.Tax,
		Discount:    b.Discount,
		Total:       b.Total(),
	}
}

func statusEventsToDTO(evs []domain.StatusEvent) []statusEventDTO {
	out := make([]statusEventDTO, 0, len(evs))
	for _, ev := range evs {
		out = append(out, statusEventDTO{
			Status:    ev.Status,
			Lat:       ev.Lat,
			Lng:       ev.Lng,
			Notes:     ev.Notes,
			System:    ev.System,
			CreatedAt: ev.CreatedAt,
		})
	}
	return out
}

func messageToDTO(m domain.Message) messageDTO {
	return messageDTO{
		ID:            m.ID,
		DeliveryID:    m.DeliveryID,
		SenderID:      m.SenderID,
		SenderLabel:   m.SenderLabel,
		RecipientID:   m.RecipientID,
		Content:       m.Content,
		AttachmentURL: m.AttachmentURL,
		Read:          m.Read,
		ReadAt:        m.ReadAt,
		CreatedAt:     m.CreatedAt,
	}
}

func messagesToDTO(ms []domain.Message) []messageDTO {
	out := make([]messageDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, messageToDTO(m))
	}
	return out
}

func notificationsToDTO(ns []domain.Notification) []notificationDTO {
	out := make([]notificationDTO, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationDTO{
			ID:         n.ID,
			Type:       n.Type,
			Title:      n.Title,
			Content:    n.Content,
			Read:       n.Read,
			ReadAt:     n.ReadAt,
			DeliveryID: n.DeliveryID,
			ActionURL:  n.ActionURL,
			CreatedAt:  n.CreatedAt,
		})
	}
	return out
}
