package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

const paymentSelect = `
    SELECT id, delivery_id, status, amount, tip, base_fee, distance_fee, weight_fee,
           priority_fee, tax, discount, payment_method_id, promo_code_id,
           transaction_id, refund_amount, refund_reason, created_at, updated_at
    FROM payments`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.DeliveryID, &p.Status, &p.Amount, &p.Tip,
		&p.Breakdown.BaseFee, &p.Breakdown.DistanceFee, &p.Breakdown.WeightFee,
		&p.Breakdown.PriorityFee, &p.Breakdown.Tax, &p.Breakdown.Discount,
		&p.PaymentMethodID, &p.PromoCodeID, &p.TransactionID,
		&p.RefundAmount, &p.RefundReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PaymentRepo reads payment rows outside transactions.
type PaymentRepo struct{ db *pgxpool.Pool }

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(db *pgxpool.Pool) *PaymentRepo { return &PaymentRepo{db: db} }

// GetByDelivery - returns the payment bound to a delivery.
func (r *PaymentRepo) GetByDelivery(ctx context.Context, deliveryID int64) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, paymentSelect+` WHERE delivery_id=$1`, deliveryID)
	p, err := scanPayment(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment for delivery %d: %w", deliveryID, err)
	}
	return p, nil
}
