package convo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/traceproc"
)

// ExampleNew_memory runs a scripted conversation with a typed handler set.
func ExampleNew_memory() {
	transport := memory.NewTransport([]domain.TraceList{
		{
			domain.SpeakTrace{Message: "Welcome! Pizza or pasta?", Subtype: domain.SpeakMessage},
			domain.ChoiceTrace{Choices: []domain.Choice{{Name: "Pizza"}, {Name: "Pasta"}}},
		},
		{
			domain.SpeakTrace{Message: "Pizza it is.", Subtype: domain.SpeakMessage},
			domain.EndTrace{},
		},
	})

	factory, err := convo.New("demo", convo.WithTransport(transport))
	if err != nil {
		log.Fatal(err)
	}

	handlers := traceproc.New(traceproc.Handlers{
		Speak: traceproc.SpeakFunc(func(ctx context.Context, message, src string, subtype domain.SpeakSubtype) error {
			fmt.Println(message)
			return nil
		}),
		Choice: func(ctx context.Context, choices []domain.Choice) error {
			for _, c := range choices {
				fmt.Printf("[%s]\n", c.Name)
			}
			return nil
		},
		End: func(ctx context.Context) error {
			fmt.Println("(end)")
			return nil
		},
	})

	s := factory.NewSession(nil)
	if _, err := s.OnAny(handlers.Handler()); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	turn, err := s.Start(ctx)
	if err != nil {
		log.Fatal(err)
	}
	turn, err = s.SendText(ctx, turn.Choices()[0].Name)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("ended:", turn.IsEnding())

	// Output:
	// Welcome! Pizza or pasta?
	// [Pizza]
	// [Pasta]
	// Pizza it is.
	// (end)
	// ended: true
}
