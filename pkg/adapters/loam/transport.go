package loam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/loam"
)

// ErrReplayExhausted is returned when a turn is requested past the last document.
var ErrReplayExhausted = errors.New("replay has no more turns")

// positionKey is the stack frame key the transport uses to track progress.
const positionKey = "replayTurn"

type turn struct {
	docID string
	meta  TurnMetadata
	trace domain.TraceList
}

// Transport implements ports.Transport by replaying turn documents stored in a
// Loam repository. Progress lives in the state stack, so restarting a session
// replays from the first turn.
type Transport struct {
	Repo   *loam.TypedRepository[TurnMetadata]
	logger *slog.Logger

	once    sync.Once
	loadErr error
	initial *domain.State
	turns   []turn
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a replay transport over repo.
func New(repo *loam.TypedRepository[TurnMetadata], opts ...Option) *Transport {
	t := &Transport{
		Repo:   repo,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open initializes a read-only repository at dir and wraps it in a Transport.
func Open(dir string, opts ...Option) (*Transport, error) {
	repo, err := loam.Init(dir,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[TurnMetadata](repo), opts...), nil
}

func (t *Transport) load(ctx context.Context) error {
	t.once.Do(func() {
		t.loadErr = t.loadTurns(ctx)
	})
	return t.loadErr
}

func (t *Transport) loadTurns(ctx context.Context) error {
	docs, err := t.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loam list failed: %w", err)
	}

	t.initial = domain.NewState(nil)
	seen := make(map[int]string)
	for _, doc := range docs {
		if prev, ok := seen[doc.Data.Turn]; ok {
			return fmt.Errorf("collision detected: turn %d is defined in both '%s' and '%s'", doc.Data.Turn, prev, doc.ID)
		}
		seen[doc.Data.Turn] = doc.ID

		if doc.Data.Turn == 0 {
			t.initial.MergeVariables(normalize(doc.Data.Variables))
			continue
		}
		if doc.Data.Turn < 0 {
			return fmt.Errorf("%s: turn must not be negative", doc.ID)
		}

		trace, err := buildTrace(doc.Data, doc.Content)
		if err != nil {
			return fmt.Errorf("%s: %w", doc.ID, err)
		}
		t.turns = append(t.turns, turn{docID: doc.ID, meta: doc.Data, trace: trace})
	}

	sort.Slice(t.turns, func(i, j int) bool {
		return t.turns[i].meta.Turn < t.turns[j].meta.Turn
	})
	t.logger.Debug("replay loaded", "turns", len(t.turns))
	return nil
}

func buildTrace(meta TurnMetadata, body string) (domain.TraceList, error) {
	out := domain.TraceList{}
	if text := strings.TrimSpace(body); text != "" {
		out = append(out, domain.SpeakTrace{Message: text, Subtype: domain.SpeakMessage})
	}
	for i, raw := range meta.Trace {
		tr, err := domain.ParseTrace(normalize(raw))
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		out = append(out, tr)
	}
	if meta.End {
		out = append(out, domain.EndTrace{})
	}
	return out, nil
}

// normalize turns frontmatter values into plain JSON shapes (json.Number
// becomes float64, nested maps become map[string]any).
func normalize(m map[string]any) map[string]any {
	if len(m) == 0 {
		return m
	}
	data, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return m
	}
	return out
}

// FetchInitialState returns the state described by the turn 0 document.
func (t *Transport) FetchInitialState(ctx context.Context) (*domain.State, error) {
	if err := t.load(ctx); err != nil {
		return nil, err
	}
	return t.initial.Clone(), nil
}

// Exchange answers with the turn after the one recorded in the request stack.
func (t *Transport) Exchange(ctx context.Context, req domain.TurnRequest) (*domain.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.load(ctx); err != nil {
		return nil, err
	}

	state := req.State.Clone()
	if state == nil {
		state = domain.NewState(nil)
	}

	next := position(state) + 1
	if next > len(t.turns) {
		return nil, fmt.Errorf("%w: turn %d of %d", ErrReplayExhausted, next, len(t.turns))
	}
	tr := t.turns[next-1]

	state.MergeVariables(normalize(tr.meta.Variables))
	state.Stack = []map[string]any{{positionKey: next}}

	trace := make(domain.TraceList, len(tr.trace))
	copy(trace, tr.trace)
	t.logger.Debug("replaying turn", "turn", tr.meta.Turn, "doc", tr.docID)

	return &domain.Envelope{
		State:   state,
		Request: req.Request,
		Trace:   trace,
	}, nil
}

func position(s *domain.State) int {
	if len(s.Stack) == 0 {
		return 0
	}
	switch v := s.Stack[len(s.Stack)-1][positionKey].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
