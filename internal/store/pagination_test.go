package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	encoded := EncodeCursor(SaleCursor{SaleTime: at, ID: 58})

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.SaleTime.Equal(at))
	assert.Equal(t, int64(58), decoded.ID)
}

func TestDecodeEmptyCursorStartsAtTop(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)

	assert.Equal(t, int64(1<<63-1), cursor.ID)
	assert.True(t, cursor.SaleTime.After(time.Now()), "empty cursor must sort after every committed sale")
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not-base64!!!")
	assert.Error(t, err)
}
