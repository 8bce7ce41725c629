package chat

import (
	"context"
	"iter"
	"strings"
)

// Snapshot is the reply text accumulated so far.
type Snapshot struct {
	Text string
	Done bool
	Err  error
}

// Aggregate folds fragments into a growing reply. observe, when non-nil,
// receives the full text after every fragment and once more at the end
// with Done or Err set. Partial text is kept on error. Once ctx is done
// the observer is no longer called and aggregation stops.
func Aggregate(ctx context.Context, chunks iter.Seq2[string, error], observe func(Snapshot)) Snapshot {
	var b strings.Builder
	emit := func(s Snapshot) {
		if observe != nil && ctx.Err() == nil {
			observe(s)
		}
	}

	for chunk, err := range chunks {
		if err != nil {
			snap := Snapshot{Text: b.String(), Err: err}
			emit(snap)
			return snap
		}
		if ctx.Err() != nil {
			return Snapshot{Text: b.String(), Err: ctx.Err()}
		}
		b.WriteString(chunk)
		emit(Snapshot{Text: b.String()})
	}

	final := Snapshot{Text: b.String(), Done: true}
	emit(final)
	return final
}
