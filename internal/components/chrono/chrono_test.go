package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardTimeIsUTC(t *testing.T) {
	now := NewStandardTime().Now()
	require.Equal(t, time.UTC, now.Location())
	require.WithinDuration(t, time.Now(), now, time.Second)
}

func TestFixedTime(t *testing.T) {
	at := time.Date(2024, time.March, 3, 10, 0, 0, 0, time.UTC)
	var api TimeAPI = FixedTime{At: at}
	require.Equal(t, at, api.Now())
	require.Equal(t, at, api.Now())
}
