package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBookingDate(t *testing.T) {
	// 22:30 UTC is already the next day in Dubai (UTC+4)
	utc := time.Date(2024, 3, 14, 22, 30, 0, 0, time.UTC)
	require.Equal(t, "2024-03-15", BookingDate(utc))

	noon := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-03-14", BookingDate(noon))
}
