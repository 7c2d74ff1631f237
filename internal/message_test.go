package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanonicalUTCFromRFC3339(t *testing.T) {
	req := require.New(t)
	// 17:08:08 at UTC-5 is 22:08:08 UTC.
	got := CanonicalUTC("2020-04-19T17:08:08-05:00")
	req.Equal("Sun, 19 Apr 2020 22:08:08 GMT", got)
}

func TestCanonicalUTCFromUnixSeconds(t *testing.T) {
	req := require.New(t)
	instant := time.Date(2020, 4, 19, 22, 8, 8, 0, time.UTC)
	got := CanonicalUTC("1587334088")
	req.Equal(FormatUTC(instant), got)
}

func TestCanonicalUTCIdempotent(t *testing.T) {
	req := require.New(t)
	canonical := "Sun, 19 Apr 2020 22:08:08 GMT"
	req.Equal(canonical, CanonicalUTC(canonical))
}

func TestCanonicalUTCPreservesClaimedInstant(t *testing.T) {
	req := require.New(t)
	// canonicalization must never substitute server receipt time.
	claimed := "1999-12-31T23:59:59Z"
	req.Equal("Fri, 31 Dec 1999 23:59:59 GMT", CanonicalUTC(claimed))
}

func TestCanonicalUTCPassesThroughOpaqueValues(t *testing.T) {
	req := require.New(t)
	req.Equal("not a timestamp", CanonicalUTC("not a timestamp"))
	req.Equal("", CanonicalUTC(""))
}
