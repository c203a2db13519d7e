package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type freeDays struct{ Month string }

func (freeDays) Key() string { return "test.free_days" }

type unknownQuery struct{}

func (unknownQuery) Key() string { return "test.unknown" }

func TestRouterAnswersRegisteredQuery(t *testing.T) {
	r := NewRouter()
	Func(r, func(ctx context.Context, q freeDays) ([]string, error) {
		return []string{q.Month + "-01"}, nil
	})

	got, err := Ask[freeDays, []string](context.Background(), r, freeDays{Month: "2024-06"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-01"}, got)

	_, err = r.Ask(context.Background(), unknownQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Ask[freeDays, int](context.Background(), r, freeDays{})
	assert.ErrorIs(t, err, ErrResultType)
}
