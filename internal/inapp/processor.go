package inapp

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/inapp/internal/inbox"
	"github.com/tOgg1/inapp/internal/logging"
	"github.com/tOgg1/inapp/internal/models"
)

// Decision is a delegate's answer for a candidate message.
type Decision int

const (
	// DecisionShow presents the message now.
	DecisionShow Decision = iota
	// DecisionSkip permanently skips the message.
	DecisionSkip
	// DecisionNext passes over the message for this pass only.
	DecisionNext
)

func (d Decision) String() string {
	switch d {
	case DecisionShow:
		return "show"
	case DecisionSkip:
		return "skip"
	case DecisionNext:
		return "next"
	default:
		return "unknown"
	}
}

// Delegate decides what to do with each candidate. OnNew is called
// synchronously and must not call back into the processor or manager.
type Delegate interface {
	OnNew(message *models.Message) Decision
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(message *models.Message) Decision

// OnNew implements Delegate.
func (f DelegateFunc) OnNew(message *models.Message) Decision { return f(message) }

// ShowAll is the default delegate: show every candidate.
var ShowAll Delegate = DelegateFunc(func(*models.Message) Decision { return DecisionShow })

// DisplayChecker gates whether now is an acceptable moment to show message.
type DisplayChecker interface {
	IsOkToShowNow(message *models.Message) bool
}

// DisplayCheckerFunc adapts a function to DisplayChecker.
type DisplayCheckerFunc func(message *models.Message) bool

// IsOkToShowNow implements DisplayChecker.
func (f DisplayCheckerFunc) IsOkToShowNow(message *models.Message) bool { return f(message) }

// ResultKind is the terminal state of a selection pass.
type ResultKind int

const (
	// ResultNone means no candidate is eligible.
	ResultNone ResultKind = iota
	// ResultWait means a candidate exists but the display gate refused it.
	ResultWait
	// ResultShow means Message should be presented.
	ResultShow
)

func (k ResultKind) String() string {
	switch k {
	case ResultNone:
		return "none"
	case ResultWait:
		return "wait"
	case ResultShow:
		return "show"
	default:
		return "unknown"
	}
}

// ProcessResult is the outcome of Processor.Process.
type ProcessResult struct {
	Kind ResultKind

	// Message is set for ResultShow and ResultWait.
	Message *models.Message

	// Store is the store with trigger/consumed flags applied.
	Store *inbox.Store

	// Skipped lists messages the delegate skipped during this pass.
	Skipped []*models.Message

	// DelegateCalls counts OnNew invocations.
	DelegateCalls int
}

// Processor walks the store to pick the next message to show.
type Processor struct {
	delegate  Delegate
	checker   DisplayChecker
	onSkipped func(*models.Message)
	now       func() time.Time
	logger    zerolog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorSkipHandler sets the callback invoked for each skipped message.
func WithProcessorSkipHandler(fn func(*models.Message)) ProcessorOption {
	return func(p *Processor) {
		if fn != nil {
			p.onSkipped = fn
		}
	}
}

// WithProcessorClock overrides the clock used for expiry checks.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor creates a Processor. A nil delegate shows every candidate
// and a nil checker always allows display.
func NewProcessor(delegate Delegate, checker DisplayChecker, opts ...ProcessorOption) *Processor {
	if delegate == nil {
		delegate = ShowAll
	}
	if checker == nil {
		checker = DisplayCheckerFunc(func(*models.Message) bool { return true })
	}
	p := &Processor{
		delegate:  delegate,
		checker:   checker,
		onSkipped: func(*models.Message) {},
		now:       time.Now,
		logger:    logging.Component("inapp-processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one selection pass over a copy of store.
//
// Each Skip marks a candidate processed and restarts the scan from the
// top; each Next moves the scan position strictly forward. At most n Nexts
// separate two Skips and at most n Skips happen, so (n+1)^2 steps bound
// the loop for a store of n messages.
func (p *Processor) Process(store *inbox.Store) ProcessResult {
	work := store.Clone()
	result := ProcessResult{Kind: ResultNone, Store: work}

	after := ""
	maxSteps := (work.Len() + 1) * (work.Len() + 1)
	for step := 0; step < maxSteps; step++ {
		candidate := p.firstCandidate(work, after)
		if candidate == nil {
			p.logger.Debug().Int("total_messages", work.Len()).Msg("no message to process")
			return result
		}

		if !p.checker.IsOkToShowNow(candidate) {
			p.logger.Debug().Str("message_id", candidate.ID).Msg("not ok to show now")
			result.Kind = ResultWait
			result.Message = candidate
			return result
		}

		result.DelegateCalls++
		decision := p.delegate.OnNew(candidate.Clone())
		p.logger.Debug().
			Str("message_id", candidate.ID).
			Str("decision", decision.String()).
			Msg("delegate decision")

		switch decision {
		case DecisionShow:
			if _, err := work.MarkProcessed(candidate.ID, !candidate.SaveToInbox); err != nil {
				p.logger.Error().Err(err).Str("message_id", candidate.ID).Msg("failed to mark message shown")
				return result
			}
			shown, _ := work.Get(candidate.ID)
			result.Kind = ResultShow
			result.Message = shown
			return result
		case DecisionNext:
			after = candidate.ID
		default:
			if _, err := work.MarkProcessed(candidate.ID, false); err != nil {
				p.logger.Error().Err(err).Str("message_id", candidate.ID).Msg("failed to mark message skipped")
				return result
			}
			skipped, _ := work.Get(candidate.ID)
			result.Skipped = append(result.Skipped, skipped)
			p.onSkipped(skipped)
			after = ""
		}
	}

	p.logger.Warn().Int("steps", maxSteps).Msg("selection pass hit step bound")
	return result
}

// firstCandidate returns the highest priority candidate, considering only
// messages positioned after the message with id after when it is set. An
// after id that is no longer in the store yields no candidate.
func (p *Processor) firstCandidate(store *inbox.Store, after string) *models.Message {
	values := store.Values()
	if after != "" {
		idx := store.Index(after)
		if idx < 0 {
			return nil
		}
		values = values[idx+1:]
	}

	now := p.now()
	candidates := values[:0]
	for _, m := range values {
		if IsCandidate(m, now) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority < candidates[j].Priority
	})
	return candidates[0]
}

// IsCandidate reports whether m is eligible for selection at now.
func IsCandidate(m *models.Message, now time.Time) bool {
	return !m.Expired(now) &&
		!m.DidProcessTrigger &&
		m.Trigger == models.TriggerImmediate &&
		!m.Read
}
