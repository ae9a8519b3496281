package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_RunsUntilEnd(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{
		{
			domain.SpeakTrace{Message: "<s>Pick one</s>"},
			domain.ChoiceTrace{Choices: []domain.Choice{{Name: "Red"}, {Name: "Blue"}}},
			domain.BlockTrace{BlockID: "b1"},
		},
		{
			domain.SpeakTrace{Message: "Blue it is"},
			domain.VisualTrace{Variant: domain.ImageVisual{Image: "https://img/blue.png"}},
			domain.EndTrace{},
		},
	})
	s := session.New(domain.NewState(nil), tr)

	var out bytes.Buffer
	err := Chat(context.Background(), s, ChatOptions{
		In:  strings.NewReader("2\nnever sent\n"),
		Out: &out,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Pick one\n")
	assert.NotContains(t, text, "<s>")
	assert.Contains(t, text, "[1] Red")
	assert.Contains(t, text, "[image] https://img/blue.png")
	assert.Contains(t, text, ">>> Conversation ended.")

	reqs := tr.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, domain.TextRequest("Blue"), reqs[1].Request)
}

func TestChat_QuitAndEOF(t *testing.T) {
	for _, input := range []string{"quit\n", ""} {
		tr := memory.NewTransport([]domain.TraceList{{domain.SpeakTrace{Message: "Hi"}}})
		s := session.New(domain.NewState(nil), tr)

		var out bytes.Buffer
		err := Chat(context.Background(), s, ChatOptions{In: strings.NewReader(input), Out: &out})
		require.NoError(t, err)
		assert.Equal(t, 1, tr.Calls())
		assert.Zero(t, s.Events().Count("trace"), "chat handlers are removed on exit")
	}
}

func TestChat_ErrorKeepsLoopAlive(t *testing.T) {
	tr := memory.NewTransport([]domain.TraceList{
		{domain.SpeakTrace{Message: "Hi"}},
		{},
		{domain.DebugTrace{Message: "trace info"}, domain.EndTrace{}},
	}, memory.WithFailure(1, assert.AnError))
	s := session.New(domain.NewState(nil), tr)

	var out bytes.Buffer
	err := Chat(context.Background(), s, ChatOptions{
		In:        strings.NewReader("first\nsecond\n"),
		Out:       &out,
		ShowDebug: true,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), ">>> Error: ")
	assert.Contains(t, out.String(), "[debug] trace info")
}

func TestResolveChoice(t *testing.T) {
	choices := []domain.Choice{{Name: "A"}, {Name: "B"}}
	assert.Equal(t, "B", resolveChoice("2", choices))
	assert.Equal(t, "3", resolveChoice("3", choices))
	assert.Equal(t, "0", resolveChoice("0", choices))
	assert.Equal(t, "hello", resolveChoice("hello", choices))
}
