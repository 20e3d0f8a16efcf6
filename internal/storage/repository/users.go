package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/ventures-access/internal/models"
)

const userColumns = `uid, wallet_address, is_admin, is_employee,
	subscription_update_active, membership_paid, bold_subscription_id, subscription_amount_usd,
	eth_payment_verified, eth_payment_amount, trial_start_date, client_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                 models.User
		boldID, clientID  sql.NullString
		subAmount, ethAmt sql.NullFloat64
		trialStart        sql.NullTime
	)
	if err := row.Scan(&u.UID, &u.WalletAddress, &u.IsAdmin, &u.IsEmployee,
		&u.SubscriptionUpdateActive, &u.MembershipPaid, &boldID, &subAmount,
		&u.EthPaymentVerified, &ethAmt, &trialStart, &clientID, &u.CreatedAt); err != nil {
		return nil, err
	}
	if boldID.Valid {
		u.BoldSubscriptionID = &boldID.String
	}
	if subAmount.Valid {
		u.SubscriptionAmountUSD = &subAmount.Float64
	}
	if ethAmt.Valid {
		u.EthPaymentAmount = &ethAmt.Float64
	}
	if trialStart.Valid {
		t := trialStart.Time.UTC()
		u.TrialStartDate = &t
	}
	if clientID.Valid {
		u.ClientID = &clientID.String
	}
	return &u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := uuid.Parse(userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByWallet возвращает пользователя по адресу кошелька в нижнем регистре.
func (s *Storage) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	const op = "storage.GetUserByWallet"

	query := `SELECT ` + userColumns + ` FROM users WHERE wallet_address = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, walletAddress))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetOrCreateByWallet возвращает пользователя по адресу кошелька, создавая его при первом входе.
func (s *Storage) GetOrCreateByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	const op = "storage.GetOrCreateByWallet"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, wallet_address)
			  VALUES ($1, $2)
			  ON CONFLICT (wallet_address) DO UPDATE SET wallet_address = EXCLUDED.wallet_address
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, uuid.New().String(), walletAddress))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateUser блокирует строку пользователя, передаёт его в mutate и сохраняет результат.
// Если mutate возвращает ошибку, транзакция откатывается и ошибка возвращается как есть.
func (s *Storage) UpdateUser(ctx context.Context, userUID string, mutate func(u *models.User) error) (*models.User, error) {
	const op = "storage.UpdateUser"

	if _, err := uuid.Parse(userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1 FOR UPDATE`
	u, err := scanUser(tx.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := mutate(u); err != nil {
		return nil, err
	}

	update := `UPDATE users
			   SET is_admin = $2, is_employee = $3,
			       subscription_update_active = $4, membership_paid = $5,
			       bold_subscription_id = $6, subscription_amount_usd = $7,
			       eth_payment_verified = $8, eth_payment_amount = $9,
			       trial_start_date = $10, client_id = $11, updated_at = $12
			   WHERE uid = $1`
	if _, err := tx.ExecContext(ctx, update, u.UID,
		u.IsAdmin, u.IsEmployee,
		u.SubscriptionUpdateActive, u.MembershipPaid,
		u.BoldSubscriptionID, u.SubscriptionAmountUSD,
		u.EthPaymentVerified, u.EthPaymentAmount,
		u.TrialStartDate, u.ClientID, time.Now().UTC(),
	); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
