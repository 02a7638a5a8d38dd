package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/acis-toolkit/internal/climate"
)

func snap(ts time.Time) climate.Snapshot {
	return climate.Snapshot{Job: "okc", Timestamp: ts}
}

func TestMemoryStoreLatestAndRange(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.GetLatest("okc")
	assert.ErrorIs(t, err, ErrNotFound)

	for i := 0; i < 3; i++ {
		s.SaveSnapshot("okc", snap(base.Add(time.Duration(i)*time.Hour)))
	}

	latest, err := s.GetLatest("okc")
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Hour), latest.Timestamp)

	got, err := s.GetRange("okc", base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.GetRange("okc", base.Add(5*time.Hour), base.Add(6*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"okc"}, s.Keys())
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.SaveSnapshot("okc", snap(base.Add(time.Duration(i)*time.Minute)))
	}

	got, err := s.GetRange("okc", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(3*time.Minute), got[0].Timestamp)
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.SaveSnapshot("okc", snap(now.Add(-3*time.Hour)))
	s.SaveSnapshot("okc", snap(now.Add(-2*time.Hour)))
	s.SaveSnapshot("okc", snap(now.Add(-time.Minute)))

	got, err := s.GetRange("okc", now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, now.Add(-time.Minute), got[0].Timestamp)

	// A stale snapshot is still kept when it is the only one.
	s.SaveSnapshot("tul", snap(now.Add(-5*time.Hour)))
	_, err = s.GetLatest("tul")
	assert.NoError(t, err)
}
