package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
)

type stubPublisher struct {
	published [][]byte
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, data []byte, _ map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, data)
	return "msg-1", nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return db
}

func TestNotifyPaymentConfirmed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	publisher := &stubPublisher{}
	svc, err := NewService(NewRepository(db), publisher, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	svc.NotifyPaymentConfirmed(context.Background(), db, PaymentConfirmed{
		ReceiptRef: "RCPT-1",
		UserID:     uuid.NewString(),
		Origin:     "cart",
		ItemCount:  2,
		TotalCents: 293_000,
	})

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, KindPaymentConfirmed, rows[0].Kind)
	assert.Equal(t, "RCPT-1", rows[0].Payload["receipt_ref"])

	require.Len(t, publisher.published, 1)
}

func TestNotifyPaymentConfirmedPublishFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	publisher := &stubPublisher{err: errors.New("broker down")}
	svc, err := NewService(NewRepository(db), publisher, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	svc.NotifyPaymentConfirmed(context.Background(), db, PaymentConfirmed{ReceiptRef: "RCPT-2"})

	// inbox row still written
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestNotifyPaymentConfirmedWithoutPublisher(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), nil, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	svc.NotifyPaymentConfirmed(context.Background(), db, PaymentConfirmed{ReceiptRef: "RCPT-3"})

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
