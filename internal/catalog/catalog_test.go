package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gupload/internal/connect"
)

type fakeFetcher struct {
	types []connect.ActivityType
	errs  []error
	calls int
}

func (f *fakeFetcher) ActivityTypes(context.Context) ([]connect.ActivityType, error) {
	f.calls++

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]

		if err != nil {
			return nil, err
		}
	}

	return f.types, nil
}

func vocabulary() []connect.ActivityType {
	return []connect.ActivityType{
		{Key: "running", Label: "Running"},
		{Key: "track_cycling", Label: "Track Cycling"},
		{Key: "lap_swimming", Label: "Pool Swim"},
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	c := New(&fakeFetcher{types: vocabulary()}, nil)

	for _, in := range []string{"Running", "running", "RUNNING", "  running  "} {
		key, ok, err := c.Resolve(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, ok, in)
		assert.Equal(t, "running", key, in)
	}
}

func TestResolve_LabelAndKey(t *testing.T) {
	c := New(&fakeFetcher{types: vocabulary()}, nil)

	key, ok, err := c.Resolve(context.Background(), "pool swim")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "lap_swimming", key)

	key, ok, err = c.Resolve(context.Background(), "Track_Cycling")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "track_cycling", key)
}

func TestResolve_Unknown(t *testing.T) {
	c := New(&fakeFetcher{types: vocabulary()}, nil)

	key, ok, err := c.Resolve(context.Background(), "underwater basket weaving")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, key)
}

func TestLoad_FetchesOnce(t *testing.T) {
	f := &fakeFetcher{types: vocabulary()}
	c := New(f, nil)

	first, err := c.Load(context.Background())
	require.NoError(t, err)

	// The returned map is a copy.
	first["running"] = "tampered"

	second, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "running", second["running"])

	_, _, err = c.Resolve(context.Background(), "running")
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
}

func TestLoad_FailureIsNotCached(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{types: vocabulary(), errs: []error{boom}}
	c := New(f, nil)

	_, err := c.Load(context.Background())
	require.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, boom)

	m, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, m, 5)
	assert.Equal(t, 2, f.calls)
}

func TestTypes_SortedByKey(t *testing.T) {
	c := New(&fakeFetcher{types: vocabulary()}, nil)

	types, err := c.Types(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 3)
	assert.Equal(t, "lap_swimming", types[0].Key)
	assert.Equal(t, "track_cycling", types[2].Key)
}
