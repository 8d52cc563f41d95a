package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/ports/lifecycletx"
)

const deliveryColumns = `
	id, sender_id, courier_id, pickup_address, dropoff_address, package_type_id,
	status, status_since, scheduled_pickup_at, actual_pickup_at, actual_delivery_at,
	estimated_delivery_at, package_description, package_weight, is_fragile,
	requires_signature, requires_id, requires_photo_proof, recipient_name,
	recipient_phone, verification_code, special_instructions, distance_miles,
	estimated_minutes, priority, cancellation_reason, package_photo_url,
	delivery_proof_url, signature_url, id_verified, created_at`

// DeliveryRepo persists deliveries and their status history.
type DeliveryRepo struct {
	db *pgxpool.Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *DeliveryRepo) WithTx(ctx context.Context, fn func(tx lifecycletx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &TxRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*domain.Delivery, error) {
	var (
		d              domain.Delivery
		pickupJSON     []byte
		dropoffJSON    []byte
	)
	err := row.Scan(
		&d.ID, &d.SenderID, &d.CourierID, &pickupJSON, &dropoffJSON, &d.PackageTypeID,
		&d.Status, &d.StatusSince, &d.ScheduledPickupAt, &d.ActualPickupAt, &d.ActualDeliveryAt,
		&d.EstimatedDeliveryAt, &d.PackageDescription, &d.PackageWeight, &d.Fragile,
		&d.RequiresSignature, &d.RequiresID, &d.RequiresPhotoProof, &d.Recipient.Name,
		&d.Recipient.Phone, &d.VerificationCode, &d.SpecialInstructions, &d.DistanceMiles,
		&d.EstimatedMinutes, &d.Priority, &d.CancellationReason, &d.PackagePhotoURL,
		&d.DeliveryProofURL, &d.SignatureURL, &d.IDVerified, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pickupJSON, &d.PickupAddress); err != nil {
		return nil, fmt.Errorf("decode pickup address: %w", err)
	}
	if err := json.Unmarshal(dropoffJSON, &d.DropoffAddress); err != nil {
		return nil, fmt.Errorf("decode dropoff address: %w", err)
	}
	return &d, nil
}

// Get - returns a delivery by its ID.
func (r *DeliveryRepo) Get(ctx context.Context, id int64) (*domain.Delivery, error) {
	row := r.db.QueryRow(ctx, `SELECT`+deliveryColumns+` FROM deliveries WHERE id=$1`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery %d: %w", id, err)
	}
	return d, nil
}

// ListFilter narrows the delivery list query.
type ListFilter struct {
	SenderID  *int64
	CourierID *int64
	Status    *domain.DeliveryStatus
	From      *time.Time
	To        *time.Time
	Limit     *int
	Offset    *int
}

// List returns deliveries newest first, scoped by the filter.
func (r *DeliveryRepo) List(ctx context.Context, f ListFilter) ([]domain.Delivery, error) {
	q := `SELECT` + deliveryColumns + ` FROM deliveries WHERE 1=1`
	args := make([]any, 0, 6)
	add := func(clause string, v any) {
		args = append(args, v)
		q += fmt.Sprintf(clause, len(args))
	}
	if f.SenderID != nil {
		add(" AND sender_id=$%d", *f.SenderID)
	}
	if f.CourierID != nil {
		add(" AND courier_id=$%d", *f.CourierID)
	}
	if f.Status != nil {
		add(" AND status=$%d", *f.Status)
	}
	if f.From != nil {
		add(" AND created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add(" AND created_at < $%d", *f.To)
	}
	q += " ORDER BY created_at DESC"
	if f.Limit != nil {
		add(" LIMIT $%d", *f.Limit)
	}
	if f.Offset != nil {
		add(" OFFSET $%d", *f.Offset)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// StatusEvents returns the append-only status history oldest first.
func (r *DeliveryRepo) StatusEvents(ctx context.Context, deliveryID int64) ([]domain.StatusEvent, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, delivery_id, status, lat, lng, notes, actor_id, is_system, created_at
        FROM delivery_status_events
        WHERE delivery_id = $1
        ORDER BY created_at, id
    `, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.StatusEvent
	for rows.Next() {
		var ev domain.StatusEvent
		if err := rows.Scan(&ev.ID, &ev.DeliveryID, &ev.Status, &ev.Lat, &ev.Lng,
			&ev.Notes, &ev.ActorID, &ev.System, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Participants returns the sender and the assigned courier (if any) without
// loading the full row. ErrNoRows surfaces as apperr.ErrNotFound.
func (r *DeliveryRepo) Participants(ctx context.Context, deliveryID int64) (int64, *int64, error) {
	var (
		senderID  int64
		courierID *int64
	)
	err := r.db.QueryRow(ctx,
		`SELECT sender_id, courier_id FROM deliveries WHERE id=$1`, deliveryID,
	).Scan(&senderID, &courierID)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil, fmt.Errorf("delivery %d: %w", deliveryID, apperr.ErrNotFound)
		}
		return 0, nil, fmt.Errorf("get participants for delivery %d: %w", deliveryID, err)
	}
	return senderID, courierID, nil
}

// Searching returns deliveries currently looking for a courier, oldest first.
func (r *DeliveryRepo) Searching(ctx context.Context) ([]domain.Delivery, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+deliveryColumns+` FROM deliveries WHERE status=$1 ORDER BY status_since`,
		domain.StatusSearchingCourier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ExpiredSearches returns deliveries stuck in searching_courier longer than the cutoff.
func (r *DeliveryRepo) ExpiredSearches(ctx context.Context, before time.Time) ([]domain.Delivery, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+deliveryColumns+` FROM deliveries WHERE status=$1 AND status_since < $2`,
		domain.StatusSearchingCourier, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// TxRepo is the lifecycletx.Repository implementation bound to one transaction.
type TxRepo struct {
	tx pgx.Tx
}

var _ lifecycletx.Repository = (*TxRepo)(nil)

// GetDeliveryForUpdate locks and returns the delivery row; transitions for one
// delivery serialize on this lock.
func (r *TxRepo) GetDeliveryForUpdate(ctx context.Context, id int64) (*domain.Delivery, error) {
	row := r.tx.QueryRow(ctx, `SELECT`+deliveryColumns+` FROM deliveries WHERE id=$1 FOR UPDATE`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock delivery %d: %w", id, err)
	}
	return d, nil
}

// InsertDelivery - inserts a new delivery and fills in its ID.
func (r *TxRepo) InsertDelivery(ctx context.Context, d *domain.Delivery) error {
	pickupJSON, err := json.Marshal(d.PickupAddress)
	if err != nil {
		return fmt.Errorf("encode pickup address: %w", err)
	}
	dropoffJSON, err := json.Marshal(d.DropoffAddress)
	if err != nil {
		return fmt.Errorf("encode dropoff address: %w", err)
	}
	err = r.tx.QueryRow(ctx, `
        INSERT INTO deliveries (
            sender_id, pickup_address, dropoff_address, package_type_id, status,
            status_since, scheduled_pickup_at, package_description, package_weight,
            is_fragile, requires_signature, requires_id, requires_photo_proof,
            recipient_name, recipient_phone, verification_code, special_instructions,
            distance_miles, estimated_minutes, priority, package_photo_url
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
        RETURNING id, created_at
    `, d.SenderID, pickupJSON, dropoffJSON, d.PackageTypeID, d.Status,
		d.StatusSince, d.ScheduledPickupAt, d.PackageDescription, d.PackageWeight,
		d.Fragile, d.RequiresSignature, d.RequiresID, d.RequiresPhotoProof,
		d.Recipient.Name, d.Recipient.Phone, d.VerificationCode, d.SpecialInstructions,
		d.DistanceMiles, d.EstimatedMinutes, d.Priority, d.PackagePhotoURL,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// UpdateDeliveryStatus - moves the delivery to a new status.
func (r *TxRepo) UpdateDeliveryStatus(ctx context.Context, id int64, status domain.DeliveryStatus, since time.Time) error {
	ct, err := r.tx.Exec(ctx,
		`UPDATE deliveries SET status=$2, status_since=$3 WHERE id=$1`,
		id, status, since)
	if err != nil {
		return fmt.Errorf("update delivery status %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %d not found", id)
	}
	return nil
}

// InsertStatusEvent - appends a status event row.
func (r *TxRepo) InsertStatusEvent(ctx context.Context, ev *domain.StatusEvent) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO delivery_status_events (delivery_id, status, lat, lng, notes, actor_id, is_system, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id
    `, ev.DeliveryID, ev.Status, ev.Lat, ev.Lng, ev.Notes, ev.ActorID, ev.System, ev.CreatedAt).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return nil
}

// SetActualPickupTime sets the pickup timestamp exactly once.
func (r *TxRepo) SetActualPickupTime(ctx context.Context, id int64, at time.Time) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE deliveries SET actual_pickup_at=$2 WHERE id=$1 AND actual_pickup_at IS NULL`,
		id, at)
	if err != nil {
		return fmt.Errorf("set pickup time %d: %w", id, err)
	}
	return nil
}

// SetActualDeliveryTime sets the delivery timestamp exactly once.
func (r *TxRepo) SetActualDeliveryTime(ctx context.Context, id int64, at time.Time) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE deliveries SET actual_delivery_at=$2 WHERE id=$1 AND actual_delivery_at IS NULL`,
		id, at)
	if err != nil {
		return fmt.Errorf("set delivery time %d: %w", id, err)
	}
	return nil
}

// SetEstimatedDeliveryTime updates the ETA.
func (r *TxRepo) SetEstimatedDeliveryTime(ctx context.Context, id int64, at time.Time) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE deliveries SET estimated_delivery_at=$2 WHERE id=$1`, id, at)
	if err != nil {
		return fmt.Errorf("set eta %d: %w", id, err)
	}
	return nil
}

// SetCancellationReason records why a delivery was cancelled.
func (r *TxRepo) SetCancellationReason(ctx context.Context, id int64, reason string) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE deliveries SET cancellation_reason=$2, courier_id=NULL WHERE id=$1`, id, reason)
	if err != nil {
		return fmt.Errorf("set cancellation reason %d: %w", id, err)
	}
	return nil
}

// SetDeliveryProof stores the proof assets supplied with a delivered transition.
func (r *TxRepo) SetDeliveryProof(ctx context.Context, id int64, proof domain.Proof) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET delivery_proof_url = CASE WHEN $2 <> '' THEN $2 ELSE delivery_proof_url END,
            signature_url      = CASE WHEN $3 <> '' THEN $3 ELSE signature_url END,
            id_verified        = id_verified OR $4
        WHERE id = $1
    `, id, proof.PhotoURL, proof.SignatureURL, proof.IDVerified)
	if err != nil {
		return fmt.Errorf("set delivery proof %d: %w", id, err)
	}
	return nil
}

// ClaimDelivery is the conditional write deciding the claim race: it succeeds
// only while the delivery is still searching and unassigned.
func (r *TxRepo) ClaimDelivery(ctx context.Context, deliveryID, courierID int64) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET courier_id = $2, status = $3, status_since = now()
        WHERE id = $1 AND status = $4 AND courier_id IS NULL
    `, deliveryID, courierID, domain.StatusCourierAssigned, domain.StatusSearchingCourier)
	if err != nil {
		return false, fmt.Errorf("claim delivery %d: %w", deliveryID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// SetCourierActiveDelivery binds the courier to the delivery only if idle.
func (r *TxRepo) SetCourierActiveDelivery(ctx context.Context, courierID, deliveryID int64) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE courier_profiles
        SET active_delivery_id = $2, updated_at = now()
        WHERE user_id = $1 AND active_delivery_id IS NULL
    `, courierID, deliveryID)
	if err != nil {
		return false, fmt.Errorf("set active delivery for courier %d: %w", courierID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// ClearCourierActiveDelivery releases the courier when the delivery terminates.
func (r *TxRepo) ClearCourierActiveDelivery(ctx context.Context, courierID, deliveryID int64) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE courier_profiles
        SET active_delivery_id = NULL, updated_at = now()
        WHERE user_id = $1 AND active_delivery_id = $2
    `, courierID, deliveryID)
	if err != nil {
		return fmt.Errorf("clear active delivery for courier %d: %w", courierID, err)
	}
	return nil
}

// GetCourierForUpdate locks and returns the courier profile.
func (r *TxRepo) GetCourierForUpdate(ctx context.Context, courierID int64) (*domain.CourierProfile, error) {
	row := r.tx.QueryRow(ctx, courierProfileSelect+` WHERE user_id=$1 FOR UPDATE`, courierID)
	c, err := scanCourierProfile(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock courier %d: %w", courierID, err)
	}
	return c, nil
}

// IncrementCourierCounters bumps the delivery counters.
func (r *TxRepo) IncrementCourierCounters(ctx context.Context, courierID int64, completed, cancelled int) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE courier_profiles
        SET total_deliveries     = total_deliveries + 1,
            completed_deliveries = completed_deliveries + $2,
            cancelled_deliveries = cancelled_deliveries + $3,
            updated_at           = now()
        WHERE user_id = $1
    `, courierID, completed, cancelled)
	if err != nil {
		return fmt.Errorf("increment counters for courier %d: %w", courierID, err)
	}
	return nil
}

// CreditCourierBalance adds to the courier balance and appends a ledger entry.
func (r *TxRepo) CreditCourierBalance(ctx context.Context, entry domain.LedgerEntry) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE courier_profiles
        SET account_balance = account_balance + $2, updated_at = now()
        WHERE user_id = $1
    `, entry.CourierID, entry.Amount)
	if err != nil {
		return fmt.Errorf("credit courier %d: %w", entry.CourierID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %d not found", entry.CourierID)
	}
	_, err = r.tx.Exec(ctx, `
        INSERT INTO courier_ledger (courier_id, delivery_id, amount, kind, created_at)
        VALUES ($1,$2,$3,$4,$5)
    `, entry.CourierID, entry.DeliveryID, entry.Amount, entry.Kind, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// InsertPayment - inserts the single payment row for a delivery.
func (r *TxRepo) InsertPayment(ctx context.Context, p *domain.Payment) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO payments (
            delivery_id, status, amount, tip, base_fee, distance_fee, weight_fee,
            priority_fee, tax, discount, payment_method_id, promo_code_id, transaction_id
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at
    `, p.DeliveryID, p.Status, p.Amount, p.Tip, p.Breakdown.BaseFee, p.Breakdown.DistanceFee,
		p.Breakdown.WeightFee, p.Breakdown.PriorityFee, p.Breakdown.Tax, p.Breakdown.Discount,
		p.PaymentMethodID, p.PromoCodeID, p.TransactionID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("payment for delivery %d already exists: %w", p.DeliveryID, apperr.ErrConflict)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetPaymentForUpdate locks and returns the payment bound to the delivery.
func (r *TxRepo) GetPaymentForUpdate(ctx context.Context, deliveryID int64) (*domain.Payment, error) {
	row := r.tx.QueryRow(ctx, paymentSelect+` WHERE delivery_id=$1 FOR UPDATE`, deliveryID)
	p, err := scanPayment(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock payment for delivery %d: %w", deliveryID, err)
	}
	return p, nil
}

// UpdatePaymentStatus - advances the payment status.
func (r *TxRepo) UpdatePaymentStatus(ctx context.Context, paymentID int64, status domain.PaymentStatus, txnID string) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE payments
        SET status = $2,
            transaction_id = CASE WHEN $3 <> '' THEN $3 ELSE transaction_id END,
            updated_at = now()
        WHERE id = $1
    `, paymentID, status, txnID)
	if err != nil {
		return fmt.Errorf("update payment %d status: %w", paymentID, err)
	}
	return nil
}

// SetPaymentRefund records the refund amount and reason.
func (r *TxRepo) SetPaymentRefund(ctx context.Context, paymentID int64, amount float64, reason string) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE payments SET refund_amount=$2, refund_reason=$3, updated_at=now() WHERE id=$1
    `, paymentID, amount, reason)
	if err != nil {
		return fmt.Errorf("set refund for payment %d: %w", paymentID, err)
	}
	return nil
}

// AddPaymentTip adds the tip delta to the payment row.
func (r *TxRepo) AddPaymentTip(ctx context.Context, paymentID int64, delta float64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE payments SET tip = tip + $2, updated_at = now() WHERE id = $1`,
		paymentID, delta)
	if err != nil {
		return fmt.Errorf("add tip to payment %d: %w", paymentID, err)
	}
	return nil
}

// GetPromoForUpdate locks a promo row by code; usage increments serialize on it.
func (r *TxRepo) GetPromoForUpdate(ctx context.Context, code string) (*domain.PromoCode, error) {
	row := r.tx.QueryRow(ctx, promoSelect+` WHERE code=$1 FOR UPDATE`, code)
	p, err := scanPromo(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock promo %q: %w", code, err)
	}
	return p, nil
}

// InsertPromoUsage records a redemption.
func (r *TxRepo) InsertPromoUsage(ctx context.Context, u *domain.PromoUsage) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO promo_usages (user_id, promo_id, delivery_id)
        VALUES ($1,$2,$3)
        RETURNING id, created_at
    `, u.UserID, u.PromoID, u.DeliveryID).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("promo already used on delivery %d: %w", u.DeliveryID, apperr.ErrConflict)
		}
		return fmt.Errorf("insert promo usage: %w", err)
	}
	return nil
}

// IncrementPromoUsage bumps the usage counter.
func (r *TxRepo) IncrementPromoUsage(ctx context.Context, promoID int64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE promo_codes SET current_usage = current_usage + 1 WHERE id = $1`, promoID)
	if err != nil {
		return fmt.Errorf("increment promo %d usage: %w", promoID, err)
	}
	return nil
}

// PromoUsageExists reports whether the user redeemed the promo before.
func (r *TxRepo) PromoUsageExists(ctx context.Context, userID, promoID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM promo_usages WHERE user_id=$1 AND promo_id=$2)`,
		userID, promoID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check promo usage: %w", err)
	}
	return exists, nil
}

// CountDeliveredBySender counts completed deliveries for first-time-user promos.
func (r *TxRepo) CountDeliveredBySender(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM deliveries WHERE sender_id=$1 AND status=$2`,
		userID, domain.StatusDelivered).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count delivered for sender %d: %w", userID, err)
	}
	return n, nil
}

// InsertTrackingToken stores an issued token.
func (r *TxRepo) InsertTrackingToken(ctx context.Context, t *domain.TrackingToken) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO tracking_tokens (token, delivery_id, is_recipient, expires_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at
    `, t.Token, t.DeliveryID, t.IsRecipient, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tracking token: %w", err)
	}
	return nil
}

// InsertRating stores one rating row per rater per delivery.
func (r *TxRepo) InsertRating(ctx context.Context, rt *domain.Rating) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO ratings (delivery_id, rater_id, ratee_id, overall, timeliness, communication, handling, comment)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at
    `, rt.DeliveryID, rt.RaterID, rt.RateeID, rt.Overall, rt.Timeliness,
		rt.Communication, rt.Handling, rt.Comment).Scan(&rt.ID, &rt.CreatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("rating already exists for delivery %d: %w", rt.DeliveryID, apperr.ErrConflict)
		}
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

// RecalculateCourierRating refreshes the running average used by dispatch.
func (r *TxRepo) RecalculateCourierRating(ctx context.Context, courierID int64) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE courier_profiles
        SET rating = COALESCE((SELECT AVG(overall)::NUMERIC(3,2) FROM ratings WHERE ratee_id=$1), rating),
            updated_at = now()
        WHERE user_id = $1
    `, courierID)
	if err != nil {
		return fmt.Errorf("recalculate rating for courier %d: %w", courierID, err)
	}
	return nil
}
