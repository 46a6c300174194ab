package insight

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sika-app/backend/internal/store"
)

// DefaultLimit caps the insight list unless the caller asks for all.
const DefaultLimit = 6

// Options controls how many insights Generate returns.
type Options struct {
	Limit      int
	IncludeAll bool
}

// Aggregator fans the generator set out concurrently and ranks whatever
// settled. Generation is read-only; the output is deterministic for a
// fixed store state and a fixed now.
type Aggregator struct {
	store      store.Store
	log        *logrus.Logger
	generators []Generator
}

// NewAggregator builds an aggregator over the default generator set.
func NewAggregator(s store.Store, log *logrus.Logger) *Aggregator {
	return &Aggregator{store: s, log: log, generators: DefaultGenerators()}
}

// NewAggregatorWith builds an aggregator over an explicit generator set.
func NewAggregatorWith(s store.Store, log *logrus.Logger, generators []Generator) *Aggregator {
	return &Aggregator{store: s, log: log, generators: generators}
}

// Generate runs every generator for the user and returns the ranked
// insight list. A generator that errors or panics contributes nothing;
// it never fails the call ("settle-all"). Results are sorted by
// ascending priority with registration order as the stable tie-break,
// then truncated to Options.Limit (DefaultLimit when zero) unless
// IncludeAll is set.
func (a *Aggregator) Generate(ctx context.Context, userID string, now time.Time, opts Options) []*Insight {
	results := make([]*Insight, len(a.generators))

	var wg sync.WaitGroup
	for i, g := range a.generators {
		wg.Add(1)
		go func(i int, g Generator) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.log.Warnf("[Insights] generator %s panicked: %v", g.Name(), r)
				}
			}()

			ins, err := g.Generate(ctx, a.store, userID, now)
			if err != nil {
				a.log.Warnf("[Insights] generator %s failed: %v", g.Name(), err)
				return
			}
			results[i] = ins
		}(i, g)
	}
	wg.Wait()

	insights := make([]*Insight, 0, len(results))
	for _, ins := range results {
		if ins != nil {
			insights = append(insights, ins)
		}
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority < insights[j].Priority
	})

	if opts.IncludeAll {
		return insights
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(insights) > limit {
		insights = insights[:limit]
	}
	return insights
}
