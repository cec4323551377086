package ml

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// LearnerOptions configures a learner opened through OpenLearner.
type LearnerOptions struct {
	// Binary is the learner executable, when the learner runs out of process.
	Binary string
	// ModelPath is where the final model is written. Empty disables saving.
	ModelPath string
	// InitialModel is a model to resume from. Empty starts from scratch.
	InitialModel string
	// TestOnly disables learning; labels are ignored.
	TestOnly bool
	// Args are passed to the learner unchanged.
	Args   []string
	Logger *zap.Logger
}

// LearnerFactory opens a learner of one kind.
type LearnerFactory func(ctx context.Context, opts LearnerOptions) (Learner, error)

var (
	learnersMu sync.RWMutex
	learners   = make(map[string]LearnerFactory)
)

// RegisterLearner makes a learner kind available to OpenLearner. Registering the
// same kind twice panics.
func RegisterLearner(kind string, factory LearnerFactory) {
	learnersMu.Lock()
	defer learnersMu.Unlock()
	if factory == nil {
		panic("ml: RegisterLearner factory is nil")
	}
	if _, dup := learners[kind]; dup {
		panic("ml: RegisterLearner called twice for " + kind)
	}
	learners[kind] = factory
}

// OpenLearner opens a learner of a registered kind.
func OpenLearner(ctx context.Context, kind string, opts LearnerOptions) (Learner, error) {
	learnersMu.RLock()
	factory, ok := learners[kind]
	learnersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported learner type %q", kind)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return factory(ctx, opts)
}

// LearnerKinds returns the registered kinds in lexical order.
func LearnerKinds() []string {
	learnersMu.RLock()
	defer learnersMu.RUnlock()
	kinds := make([]string, 0, len(learners))
	for kind := range learners {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
