package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPreloadYears(t *testing.T) {
	now := time.Date(2027, time.May, 4, 0, 0, 0, 0, time.UTC)
	require.Equal(t, []int{2026, 2027, 2028}, preloadYears(now, 2026))
	require.Equal(t, []int{2027, 2028}, preloadYears(now, 2027))
	require.Equal(t, []int{2028, 2027}, preloadYears(now, 2028))
}
