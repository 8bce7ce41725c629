package chat

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/edusarthi/internal/llm"
)

func seq(chunks []string, err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

func TestAggregateSnapshots(t *testing.T) {
	var seen []Snapshot
	final := Aggregate(context.Background(), seq([]string{"Hel", "lo", " world"}, nil), func(s Snapshot) {
		seen = append(seen, s)
	})

	assert.Equal(t, Snapshot{Text: "Hello world", Done: true}, final)
	require.Len(t, seen, 4)
	assert.Equal(t, "Hel", seen[0].Text)
	assert.Equal(t, "Hello", seen[1].Text)
	assert.Equal(t, "Hello world", seen[2].Text)
	assert.False(t, seen[2].Done)
	assert.True(t, seen[3].Done)
}

func TestAggregateKeepsPartialOnError(t *testing.T) {
	boom := errors.New("boom")
	var last Snapshot
	final := Aggregate(context.Background(), seq([]string{"Par"}, boom), func(s Snapshot) { last = s })

	assert.Equal(t, "Par", final.Text)
	assert.False(t, final.Done)
	assert.ErrorIs(t, final.Err, boom)
	assert.Equal(t, final, last)
}

func TestAggregateEmptyAndNilObserver(t *testing.T) {
	final := Aggregate(context.Background(), seq(nil, nil), nil)
	assert.Equal(t, Snapshot{Done: true}, final)
}

func TestAggregateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	final := Aggregate(ctx, seq([]string{"a", "b", "c"}, nil), func(s Snapshot) {
		calls++
		cancel()
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, "a", final.Text)
	assert.ErrorIs(t, final.Err, context.Canceled)
}

func TestAggregateOverSessionStream(t *testing.T) {
	s, _ := newBoundSession(t, llm.MockStream{Chunks: []string{"2 + 2", " = 4"}})

	st, err := s.SendTurn(context.Background(), text("2+2?"))
	require.NoError(t, err)

	var texts []string
	final := Aggregate(context.Background(), st.Chunks(), func(s Snapshot) { texts = append(texts, s.Text) })
	assert.Equal(t, "2 + 2 = 4", final.Text)
	assert.True(t, final.Done)
	assert.Equal(t, []string{"2 + 2", "2 + 2 = 4", "2 + 2 = 4"}, texts)
}
