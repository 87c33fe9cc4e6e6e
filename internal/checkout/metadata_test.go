package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	addrID := uuid.New()
	original := Metadata{
		Origin:            enums.CheckoutOriginCart,
		UserID:            uuid.New(),
		ReceiptRef:        "TH-ABC123",
		CartItemIDs:       []uuid.UUID{uuid.New(), uuid.New()},
		SubtotalCents:     250_000,
		AddonsTotalCents:  20_000,
		DiscountCents:     27_000,
		ReservationCents:  50_000,
		TotalCents:        293_000,
		DeliveryAddressID: &addrID,
		Branch:            "quezon-city",
		VoucherCode:       "WELCOME10",
	}

	parsed, err := ParseMetadata(original.Encode())
	require.NoError(t, err)
	assert.Equal(t, original, *parsed)
}

func TestParseMetadataRejectsUnresolvable(t *testing.T) {
	t.Parallel()

	valid := Metadata{
		Origin:     enums.CheckoutOriginDirect,
		UserID:     uuid.New(),
		ReceiptRef: "TH-1",
		ItemIDs:    []uuid.UUID{uuid.New()},
		TotalCents: 1000,
	}

	cases := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{name: "empty", mutate: func(m map[string]string) {
			for k := range m {
				delete(m, k)
			}
		}},
		{name: "bad origin", mutate: func(m map[string]string) { m["origin"] = "warehouse" }},
		{name: "bad user id", mutate: func(m map[string]string) { m["user_id"] = "nope" }},
		{name: "missing receipt ref", mutate: func(m map[string]string) { delete(m, "receipt_ref") }},
		{name: "missing id list", mutate: func(m map[string]string) { delete(m, "item_ids") }},
		{name: "garbled ids", mutate: func(m map[string]string) { m["item_ids"] = "a,b" }},
		{name: "garbled amount", mutate: func(m map[string]string) { m["total_amount"] = "lots" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := valid.Encode()
			tc.mutate(raw)
			_, err := ParseMetadata(raw)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestParseMetadataCartRequiresCartIDs(t *testing.T) {
	t.Parallel()

	raw := Metadata{
		Origin:     enums.CheckoutOriginCart,
		UserID:     uuid.New(),
		ReceiptRef: "TH-2",
	}.Encode()

	_, err := ParseMetadata(raw)
	require.Error(t, err)
}
