package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/events"
	"github.com/aretw0/convo/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func greeting() domain.TraceList {
	return domain.TraceList{
		domain.SpeakTrace{Message: "<b>Hello</b>", Src: "https://tts/1.mp3", Subtype: domain.SpeakMessage},
		domain.ChoiceTrace{Choices: []domain.Choice{{Name: "yes"}, {Name: "no"}}},
	}
}

func goodbye() domain.TraceList {
	return domain.TraceList{
		domain.SpeakTrace{Message: "Bye", Subtype: domain.SpeakMessage},
		domain.EndTrace{},
	}
}

func TestSession_Uninitialized(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(nil, tr)

	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionNotInitialized)
	_, err = s.SendText(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrSessionNotInitialized)
	assert.Nil(t, s.Context())
	assert.Zero(t, tr.Calls())

	_, err = s.Variables().Get("x")
	assert.ErrorIs(t, err, domain.ErrSessionNotInitialized)
}

func TestSession_DispatchOrder(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(domain.NewState(nil), tr)

	var log []string
	_, err := s.OnBeforeBatch(func(ctx context.Context, env *domain.Envelope) error {
		log = append(log, "before")
		return nil
	})
	require.NoError(t, err)
	_, err = s.OnAfterBatch(func(ctx context.Context, env *domain.Envelope) error {
		log = append(log, "after")
		return nil
	})
	require.NoError(t, err)
	_, err = s.OnAny(func(ctx context.Context, tr domain.Trace, env *domain.Envelope) error {
		log = append(log, "any:"+string(tr.Kind()))
		return nil
	})
	require.NoError(t, err)
	_, err = s.OnSpeak(func(ctx context.Context, sp domain.SpeakTrace) error {
		log = append(log, "speak:"+sp.Message)
		return nil
	})
	require.NoError(t, err)
	_, err = s.OnChoice(func(ctx context.Context, c domain.ChoiceTrace) error {
		log = append(log, "choice")
		return nil
	})
	require.NoError(t, err)

	c, err := s.Start(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, []string{
		"before",
		"speak:<b>Hello</b>",
		"any:speak",
		"choice",
		"any:choice",
		"after",
	}, log)
}

func TestSession_ContextAccessors(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(domain.NewState(map[string]any{"name": "Ada"}), tr)

	c, err := s.Start(context.Background())
	require.NoError(t, err)

	assert.Len(t, c.Trace(), 2)
	resp := c.Response()
	require.Len(t, resp, 2)
	speak := resp[0].(domain.SpeakTrace)
	assert.Equal(t, "Hello", speak.Message)
	assert.Empty(t, speak.Src)

	raw := c.Trace()[0].(domain.SpeakTrace)
	assert.Equal(t, "<b>Hello</b>", raw.Message)

	assert.Equal(t, []domain.Choice{{Name: "yes"}, {Name: "no"}}, c.Choices())
	assert.False(t, c.IsEnding())
	assert.Nil(t, c.Request())
	assert.Equal(t, "Ada", c.Variables()["name"])

	data, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"choice"`)
}

func TestSession_ContextIsSnapshot(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(domain.NewState(map[string]any{"n": 1}), tr)

	c, err := s.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Variables().Set("n", 2))
	assert.Equal(t, 1, c.Variables()["n"])
	assert.Equal(t, 2, s.Context().Variables()["n"])

	st := c.State()
	st.Variables["n"] = 99
	assert.Equal(t, 1, c.Variables()["n"])
}

func TestSession_VariablesAreSentWithNextTurn(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting(), goodbye()})
	s := session.New(domain.NewState(nil), tr)

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Variables().Set("answer", "yes"))

	_, err = s.SendText(context.Background(), "yes")
	require.NoError(t, err)

	reqs := tr.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "yes", reqs[1].State.Variables["answer"])
	assert.Equal(t, domain.TextRequest("yes"), reqs[1].Request)
}

func TestSession_EndedRejectsTurnsWithoutTransportCall(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{goodbye()})
	s := session.New(domain.NewState(nil), tr)

	c, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, c.IsEnding())
	assert.True(t, s.IsEnding())

	dispatched := 0
	_, err = s.OnAny(func(ctx context.Context, tr domain.Trace, env *domain.Envelope) error {
		dispatched++
		return nil
	})
	require.NoError(t, err)

	_, err = s.SendText(context.Background(), "again")
	assert.ErrorIs(t, err, domain.ErrConversationEnded)
	_, err = s.SendIntent(context.Background(), "yes_intent", nil, "", 0)
	assert.ErrorIs(t, err, domain.ErrConversationEnded)
	assert.Equal(t, 1, tr.Calls())
	assert.Zero(t, dispatched)
}

func TestSession_RestartKeepsVariablesAndClearsStack(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{goodbye(), greeting()})
	state := domain.NewState(map[string]any{"score": 3})
	state.Stack = []map[string]any{{"programID": "p1"}}
	s := session.New(state, tr)

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	require.True(t, s.IsEnding())

	c, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, c.IsEnding())

	reqs := tr.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].State.Stack)
	assert.Empty(t, reqs[1].State.Stack)
	assert.Equal(t, 3, reqs[1].State.Variables["score"])
	assert.Nil(t, reqs[1].Request)
}

func TestSession_BlankTextIsLaunch(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(domain.NewState(nil), tr)

	_, err := s.SendText(context.Background(), "   \n")
	require.NoError(t, err)

	reqs := tr.Requests()
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].Request)
}

func TestSession_TextIsSanitized(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(domain.NewState(nil), tr, session.WithMaxInputSize(8))

	_, err := s.SendText(context.Background(), "much too long input")
	assert.ErrorIs(t, err, session.ErrInputTooLarge)
	assert.Zero(t, tr.Calls())

	_, err = s.SendText(context.Background(), "hi\x00!")
	require.NoError(t, err)
	assert.Equal(t, domain.TextRequest("hi!"), tr.Requests()[0].Request)
}

func TestSession_IntentRequest(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(domain.NewState(nil), tr)

	entities := []domain.Entity{{Name: "size", Value: "large"}}
	c, err := s.SendIntent(context.Background(), "order_pizza", entities, "a large one", 0.9)
	require.NoError(t, err)

	req := c.Request()
	require.NotNil(t, req)
	assert.Equal(t, domain.RequestIntent, req.Type)
	payload := req.Payload.(domain.IntentPayload)
	assert.Equal(t, "order_pizza", payload.Intent.Name)
	assert.Equal(t, entities, payload.Entities)
}

func TestSession_RequestCarriesConfig(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	cfg := domain.DataConfig{TTS: true, StripMarkup: true, StopTypes: []string{"custom"}}
	s := session.New(domain.NewState(nil), tr, session.WithDataConfig(cfg))

	c, err := s.Start(context.Background())
	require.NoError(t, err)

	got := tr.Requests()[0].Config
	assert.True(t, got.TTS)
	assert.True(t, got.StripSSML)
	assert.Equal(t, []string{"custom"}, got.StopTypes)

	speak := c.Response()[0].(domain.SpeakTrace)
	assert.Equal(t, "https://tts/1.mp3", speak.Src)
}

func TestSession_TransportErrorIsReturnedAsIs(t *testing.T) {
	boom := errors.New("connection reset")
	tr := memory.NewTransport([]domain.TraceList{greeting()}, memory.WithFailure(0, boom))
	s := session.New(domain.NewState(map[string]any{"k": "v"}), tr)

	c, err := s.Start(context.Background())
	assert.Nil(t, c)
	assert.Same(t, boom, err)
	assert.Empty(t, s.Context().Trace())
	assert.Equal(t, "v", s.Context().Variables()["k"])
}

func TestSession_HandlerErrorKeepsTurnInstalled(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(domain.NewState(nil), tr)

	boom := errors.New("render failed")
	afterRan := false
	_, err := s.OnSpeak(func(ctx context.Context, sp domain.SpeakTrace) error {
		return boom
	})
	require.NoError(t, err)
	_, err = s.OnAfterBatch(func(ctx context.Context, env *domain.Envelope) error {
		afterRan = true
		return nil
	})
	require.NoError(t, err)

	c, err := s.Start(context.Background())
	assert.Nil(t, c)
	assert.ErrorIs(t, err, boom)
	var herr *events.HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, domain.KindSpeak, herr.Kind)
	assert.False(t, afterRan)

	assert.Len(t, s.Context().Trace(), 2)
}

func TestSession_ReentrantAdvanceIsRejected(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting(), goodbye()})
	s := session.New(domain.NewState(nil), tr)

	var inner error
	_, err := s.OnBeforeBatch(func(ctx context.Context, env *domain.Envelope) error {
		_, inner = s.SendText(ctx, "nested")
		return nil
	})
	require.NoError(t, err)

	_, err = s.Start(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, inner, domain.ErrTurnInProgress)
	assert.Equal(t, 1, tr.Calls())
}

func TestSession_SubscribeByString(t *testing.T) {
	s := session.New(domain.NewState(nil), memory.NewTransport(nil))
	noop := func(ctx context.Context, tr domain.Trace, env *domain.Envelope) error { return nil }

	sub, err := s.Subscribe("speak", noop)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Events().Count(events.ForKind(domain.KindSpeak)))

	_, err = s.Subscribe("trace", noop)
	require.NoError(t, err)

	_, err = s.Subscribe("before_batch", noop)
	assert.ErrorIs(t, err, domain.ErrInvalidSelector)
	_, err = s.Subscribe("bogus", noop)
	assert.ErrorIs(t, err, domain.ErrInvalidSelector)
	_, err = s.On(domain.Kind("bogus"), noop)
	assert.ErrorIs(t, err, domain.ErrInvalidSelector)

	require.NoError(t, s.Off(sub))
	assert.Zero(t, s.Events().Count(events.ForKind(domain.KindSpeak)))
	require.NoError(t, s.Off(sub))
}

func TestSession_OnEnd(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{goodbye()})
	s := session.New(domain.NewState(nil), tr)

	ended := false
	_, err := s.OnEnd(func(ctx context.Context) error {
		ended = true
		return nil
	})
	require.NoError(t, err)

	_, err = s.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, ended)
}

func TestSession_ChoiceHandlerSeesTurnEnvelope(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting()})
	s := session.New(domain.NewState(map[string]any{"lang": "en"}), tr)

	type delivery struct {
		trace domain.Trace
		env   *domain.Envelope
	}
	var got []delivery
	_, err := s.On(domain.KindChoice, func(_ context.Context, trace domain.Trace, env *domain.Envelope) error {
		got = append(got, delivery{trace, env})
		return nil
	})
	require.NoError(t, err)

	c, err := s.Start(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, greeting()[1], got[0].trace)
	assert.Equal(t, c.Envelope().Trace, got[0].env.Trace)
	assert.Equal(t, c.Envelope().State, got[0].env.State)
	assert.Equal(t, c.Request(), got[0].env.Request)
}

func TestSession_OnVisual(t *testing.T) {
	img := domain.VisualTrace{Variant: domain.ImageVisual{Image: "https://img/1.png"}}
	tr := memory.NewTransport([]domain.TraceList{{img, domain.SpeakTrace{Message: "look"}}})
	s := session.New(domain.NewState(nil), tr)

	var got []domain.VisualTrace
	_, err := s.OnVisual(func(ctx context.Context, v domain.VisualTrace) error {
		got = append(got, v)
		return nil
	})
	require.NoError(t, err)

	_, err = s.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.VisualImage, got[0].Subtype())
}

func TestSession_TypedHelpers(t *testing.T) {
	turn := domain.TraceList{
		domain.FlowTrace{DiagramID: "main"},
		domain.BlockTrace{BlockID: "b1"},
		domain.DebugTrace{Message: "matched"},
		domain.AudioTrace{Src: "https://a/1.mp3"},
		domain.StreamTrace{Src: "https://a/live", Action: domain.StreamPlay},
	}
	s := session.New(domain.NewState(nil), memory.NewTransport([]domain.TraceList{turn}))

	var log []string
	_, err := s.OnFlow(func(ctx context.Context, f domain.FlowTrace) error {
		log = append(log, "flow:"+f.DiagramID)
		return nil
	})
	require.NoError(t, err)
	_, err = s.OnBlock(func(ctx context.Context, b domain.BlockTrace) error {
		log = append(log, "block:"+b.BlockID)
		return nil
	})
	require.NoError(t, err)
	_, err = s.OnDebug(func(ctx context.Context, d domain.DebugTrace) error {
		log = append(log, "debug:"+d.Message)
		return nil
	})
	require.NoError(t, err)
	_, err = s.OnAudio(func(ctx context.Context, a domain.AudioTrace) error {
		log = append(log, "audio:"+a.Src)
		return nil
	})
	require.NoError(t, err)
	_, err = s.OnStream(func(ctx context.Context, st domain.StreamTrace) error {
		log = append(log, "stream:"+string(st.Action))
		return nil
	})
	require.NoError(t, err)

	_, err = s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"flow:main",
		"block:b1",
		"debug:matched",
		"audio:https://a/1.mp3",
		"stream:PLAY",
	}, log)
}

func TestSession_OverrunHandlerBlocksNextTurn(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{greeting(), goodbye()})
	s := session.New(domain.NewState(nil), tr, session.WithHandlerTimeout(10*time.Millisecond))

	release := make(chan struct{})
	_, err := s.OnChoice(func(ctx context.Context, _ domain.ChoiceTrace) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	_, err = s.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrHandlerTimeout)
	assert.Equal(t, 1, s.Events().Pending())

	_, err = s.SendText(context.Background(), "yes")
	assert.ErrorIs(t, err, domain.ErrTurnInProgress)
	assert.Equal(t, 1, tr.Calls())

	close(release)
	require.Eventually(t, func() bool { return s.Events().Pending() == 0 }, time.Second, 5*time.Millisecond)

	_, err = s.SendText(context.Background(), "yes")
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Calls())
}

func TestSession_LifecycleHooks(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{goodbye()})
	var starts, ends []*domain.TurnEvent
	hooks := domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) { starts = append(starts, e) },
		OnTurnEnd:   func(ctx context.Context, e *domain.TurnEvent) { ends = append(ends, e) },
	}
	s := session.New(domain.NewState(nil), tr, session.WithLifecycleHooks(hooks))

	_, err := s.SendText(context.Background(), "hello")
	require.NoError(t, err)

	require.Len(t, starts, 1)
	require.Len(t, ends, 1)
	assert.Equal(t, domain.RequestText, ends[0].RequestType)
	assert.Equal(t, 2, ends[0].TraceCount)
	assert.True(t, ends[0].Ended)
	assert.NoError(t, ends[0].Err)
}

func TestSession_TurnSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	boom := errors.New("down")
	tr := memory.NewTransport([]domain.TraceList{greeting()}, memory.WithFailure(1, boom))
	s := session.New(domain.NewState(nil), tr, session.WithTracerProvider(tp))

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	_, err = s.SendText(context.Background(), "x")
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "convo.turn", spans[0].Name())
	assert.Empty(t, spans[0].Events())
	assert.NotEmpty(t, spans[1].Events())
}
