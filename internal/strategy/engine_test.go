package strategy

import (
	"errors"
	"testing"

	"github.com/quantlab/meanrev/internal/broker"
	"github.com/quantlab/meanrev/internal/core"
)

// mockStrategy implements Strategy for testing
type mockStrategy struct {
	name string
}

func (m *mockStrategy) Name() string                                  { return m.name }
func (m *mockStrategy) Description() string                           { return "mock" }
func (m *mockStrategy) LookbackDays() int                             { return 30 }
func (m *mockStrategy) Init(cfg Config) error                         { return nil }
func (m *mockStrategy) Evaluate(ctx EvalContext) (*broker.Order, error) { return nil, nil }
func (m *mockStrategy) NotifyFill(fill *broker.Fill)                  {}

func TestEngine_RegisterAndGet(t *testing.T) {
	e := NewEngine()
	e.Register(&mockStrategy{name: "alpha"})

	s, err := e.Get("alpha")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.Name() != "alpha" {
		t.Errorf("Name() = %s, want alpha", s.Name())
	}
}

func TestEngine_GetUnknown(t *testing.T) {
	e := NewEngine()

	_, err := e.Get("nope")
	if !errors.Is(err, core.ErrUnknownStrategy) {
		t.Errorf("Get(unknown) error = %v, want ErrUnknownStrategy", err)
	}
}

func TestEngine_Names(t *testing.T) {
	e := NewEngine()
	e.Register(&mockStrategy{name: "zeta"})
	e.Register(&mockStrategy{name: "alpha"})

	names := e.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Names() = %v, want [alpha zeta]", names)
	}
}

func TestEngine_GetAll(t *testing.T) {
	e := NewEngine()
	e.Register(&mockStrategy{name: "one"})
	e.Register(&mockStrategy{name: "two"})

	if got := len(e.GetAll()); got != 2 {
		t.Errorf("GetAll() len = %d, want 2", got)
	}
}

func TestEvalContext_Bar(t *testing.T) {
	bars := []core.Bar{
		{Close: 10},
		{Close: 20},
	}
	ctx := EvalContext{Bars: bars, Index: 1}
	if ctx.Bar().Close != 20 {
		t.Errorf("Bar().Close = %f, want 20", ctx.Bar().Close)
	}
}
