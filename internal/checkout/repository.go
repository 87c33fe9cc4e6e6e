package checkout

import (
	"context"

	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

// SessionRepository persists payment sessions.
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository
	Create(ctx context.Context, session *models.PaymentSession) error
	GetByReceiptRef(ctx context.Context, receiptRef string) (*models.PaymentSession, error)
	MarkStatus(ctx context.Context, receiptRef string, status enums.PaymentStatus) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository builds a payment session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) WithTx(tx *gorm.DB) SessionRepository {
	if tx == nil {
		return r
	}
	return &sessionRepository{db: tx}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.PaymentSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment session")
	}
	return nil
}

func (r *sessionRepository) GetByReceiptRef(ctx context.Context, receiptRef string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.db.WithContext(ctx).First(&session, "receipt_ref = ?", receiptRef).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment session")
	}
	return &session, nil
}

func (r *sessionRepository) MarkStatus(ctx context.Context, receiptRef string, status enums.PaymentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("receipt_ref = ?", receiptRef).
		Update("status", status)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update payment session status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
	}
	return nil
}
