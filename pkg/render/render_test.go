package render

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/kindview/pkg/advice"
	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
)

func textDef(k note.Kind, nestable bool) Definition {
	return Definition{
		Kind:     k,
		Nestable: nestable,
		Options:  Schema{"width": Int()},
		Render: func(_ context.Context, _ *Engine, n note.Note, _ Scope) (Artifact, error) {
			s, _ := n.Value.(string)
			return Artifact{Tree: markup.El("p", nil, markup.Leaf(s)), Payload: mime.Text(s)}, nil
		},
	}
}

func TestRenderExplicitKind(t *testing.T) {
	e := NewEngine(WithRegistry(NewRegistry(textDef("text", true))))

	a, err := e.RenderTop(context.Background(), note.Note{Value: "hi", Kind: "text"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if a.Text() != "hi" || string(a.Payload.Data) != "hi" {
		t.Errorf("artifact = %q / %q", a.Text(), a.Payload.Data)
	}
}

func TestRenderUsesAdvice(t *testing.T) {
	var gotForm string
	adv := advice.Func(func(_ context.Context, form string, _ any) ([]advice.Advice, error) {
		gotForm = form
		return []advice.Advice{{Kind: "text"}, {Kind: "other"}}, nil
	})
	e := NewEngine(WithRegistry(NewRegistry(textDef("text", true))), WithAdvisor(adv))

	a, err := e.RenderTop(context.Background(), note.New("v", "(str \"v\")"))
	if err != nil {
		t.Fatal(err)
	}
	if gotForm != "(str \"v\")" {
		t.Errorf("advisor form = %q", gotForm)
	}
	if a.Text() != "v" {
		t.Errorf("text = %q, want top suggestion renderer output", a.Text())
	}
}

func TestRenderAdvisorFailurePropagates(t *testing.T) {
	boom := stderrors.New("advisor down")
	adv := advice.Func(func(context.Context, string, any) ([]advice.Advice, error) { return nil, boom })
	e := NewEngine(WithAdvisor(adv))

	_, err := e.RenderTop(context.Background(), note.New(1, "1"))
	if !stderrors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped advisor error", err)
	}
	if !errors.Is(err, errors.ErrCodeAdvice) {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeAdvice)
	}
}

func TestRenderEmptyAdvice(t *testing.T) {
	adv := advice.Func(func(context.Context, string, any) ([]advice.Advice, error) { return nil, nil })
	_, err := NewEngine(WithAdvisor(adv)).RenderTop(context.Background(), note.New(1, ""))
	if !stderrors.Is(err, advice.ErrNoAdvice) {
		t.Errorf("err = %v, want ErrNoAdvice", err)
	}
}

func TestRenderKindedMetadata(t *testing.T) {
	adv := advice.Func(func(context.Context, string, any) ([]advice.Advice, error) {
		t.Fatal("advisor consulted for kinded value")
		return nil, nil
	})
	e := NewEngine(WithRegistry(NewRegistry(textDef("text", true))), WithAdvisor(adv))

	a, err := e.RenderTop(context.Background(), note.New(note.Kinded{Kind: "text", Value: "meta"}, ""))
	if err != nil {
		t.Fatal(err)
	}
	if a.Text() != "meta" {
		t.Errorf("text = %q, want %q", a.Text(), "meta")
	}
}

func TestRenderInvalidOptions(t *testing.T) {
	def := textDef("text", true)
	def.Options = Schema{}
	e := NewEngine(WithRegistry(NewRegistry(def)))

	n := note.Note{Value: "x", Kind: "text", Options: map[string]any{"invalid-option": 1}}
	a, err := e.RenderTop(context.Background(), n)
	if err != nil {
		t.Fatalf("policy failure escaped: %v", err)
	}
	if !strings.HasPrefix(a.Text(), "invalid options") {
		t.Errorf("text = %q, want prefix %q", a.Text(), "invalid options")
	}
	if !strings.Contains(a.Text(), "invalid-option") {
		t.Errorf("text = %q, want offending key", a.Text())
	}
	if a.Payload.MIME != mime.TypeText {
		t.Errorf("payload MIME = %q", a.Payload.MIME)
	}
}

func TestRenderOptionTypeMismatch(t *testing.T) {
	e := NewEngine(WithRegistry(NewRegistry(textDef("text", true))))
	n := note.Note{Value: "x", Kind: "text", Options: map[string]any{"width": "wide"}}

	a, err := e.RenderTop(context.Background(), n)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(a.Text(), "invalid options: width") {
		t.Errorf("text = %q", a.Text())
	}
}

func TestRenderNonNestable(t *testing.T) {
	e := NewEngine(WithRegistry(NewRegistry(textDef("image", false))), WithEnvironment("Clay"))
	n := note.Note{Value: "pixels", Kind: "image"}

	top, err := e.Render(context.Background(), n, Scope{})
	if err != nil {
		t.Fatal(err)
	}
	if top.Text() != "pixels" {
		t.Errorf("top-level text = %q, want renderer output", top.Text())
	}

	nested, err := e.Render(context.Background(), n, Scope{}.Child())
	if err != nil {
		t.Fatal(err)
	}
	if want := "nested rendering of image not possible in Clay"; nested.Text() != want {
		t.Errorf("nested text = %q, want %q", nested.Text(), want)
	}
	if string(nested.Payload.Data) != "pixels" {
		t.Errorf("nested payload = %q, want the real artifact", nested.Payload.Data)
	}
	if got := nested.Tree.Attr("data-kind"); got != "image" {
		t.Errorf("data-kind = %v", got)
	}
}

func TestRenderRendererErrors(t *testing.T) {
	boom := stderrors.New("user code failed")
	reg := NewRegistry(
		Definition{Kind: "policy", Nestable: true, Render: func(context.Context, *Engine, note.Note, Scope) (Artifact, error) {
			return Artifact{}, errors.New(errors.ErrCodeInvalidValue, "not renderable")
		}},
		Definition{Kind: "hard", Nestable: true, Render: func(context.Context, *Engine, note.Note, Scope) (Artifact, error) {
			return Artifact{}, errors.Wrap(errors.ErrCodeCallable, boom, "call")
		}},
	)
	e := NewEngine(WithRegistry(reg))

	a, err := e.RenderTop(context.Background(), note.Note{Kind: "policy"})
	if err != nil {
		t.Fatalf("policy error escaped: %v", err)
	}
	if a.Text() != "not renderable" || a.Tree.Attr("class") != "kind-error" {
		t.Errorf("failure artifact = %q class=%v", a.Text(), a.Tree.Attr("class"))
	}

	if _, err := e.RenderTop(context.Background(), note.Note{Kind: "hard"}); !stderrors.Is(err, boom) {
		t.Errorf("err = %v, want callable failure", err)
	}
}

func TestRenderUnknownKind(t *testing.T) {
	e := NewEngine()
	a, err := e.RenderTop(context.Background(), note.Note{Kind: "sparkline", Value: []any{1, 2}, Options: map[string]any{"x": 1}})
	if err != nil {
		t.Fatal(err)
	}
	if want := "Unimplemented: sparkline [1 2]"; a.Text() != want {
		t.Errorf("text = %q, want %q", a.Text(), want)
	}
	if want := "Unimplemented: sparkline [1 2]"; string(a.Payload.Data) != want {
		t.Errorf("payload = %q, want %q", a.Payload.Data, want)
	}
}

func TestRenderDepthExceeded(t *testing.T) {
	e := NewEngine(WithRegistry(NewRegistry(textDef("text", true))), WithMaxDepth(2))
	a, err := e.Render(context.Background(), note.Note{Kind: "text", Value: "x"}, Scope{Nested: true, Depth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(a.Text(), "nesting exceeded 2 levels") {
		t.Errorf("text = %q", a.Text())
	}
}

func TestRenderCompletesArtifact(t *testing.T) {
	reg := NewRegistry(
		Definition{Kind: "tree", Nestable: true, Render: func(context.Context, *Engine, note.Note, Scope) (Artifact, error) {
			return Artifact{Tree: markup.El("b", nil, markup.Leaf("bold"))}, nil
		}},
		Definition{Kind: "payload", Nestable: true, Render: func(context.Context, *Engine, note.Note, Scope) (Artifact, error) {
			return Artifact{Payload: mime.Text("plain")}, nil
		}},
	)
	e := NewEngine(WithRegistry(reg))

	a, _ := e.RenderTop(context.Background(), note.Note{Kind: "tree"})
	if a.Payload.MIME != mime.TypeHTML || string(a.Payload.Data) != "<b>bold</b>" {
		t.Errorf("payload = %s %q", a.Payload.MIME, a.Payload.Data)
	}
	a, _ = e.RenderTop(context.Background(), note.Note{Kind: "payload"})
	if a.Text() != "plain" {
		t.Errorf("tree text = %q", a.Text())
	}
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewEngine().RenderTop(ctx, note.Note{Kind: "x"}); !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type recordingHooks struct {
	starts, completes int
	policy            []string
}

func (h *recordingHooks) OnRenderStart(context.Context, string, bool) { h.starts++ }
func (h *recordingHooks) OnRenderComplete(context.Context, string, bool, time.Duration, error) {
	h.completes++
}
func (h *recordingHooks) OnPolicyFailure(_ context.Context, _ string, code string) {
	h.policy = append(h.policy, code)
}

func TestRenderHooks(t *testing.T) {
	h := &recordingHooks{}
	def := textDef("text", true)
	e := NewEngine(WithRegistry(NewRegistry(def)), WithHooks(h))

	_, _ = e.RenderTop(context.Background(), note.Note{Kind: "text", Value: "a"})
	_, _ = e.RenderTop(context.Background(), note.Note{Kind: "text", Options: map[string]any{"bad": 1}})

	if h.starts != 2 || h.completes != 2 {
		t.Errorf("starts=%d completes=%d, want 2/2", h.starts, h.completes)
	}
	if len(h.policy) != 1 || h.policy[0] != string(errors.ErrCodeInvalidOptions) {
		t.Errorf("policy failures = %v", h.policy)
	}
}

func TestScope(t *testing.T) {
	s := Scope{}.Deferred().Child().Child()
	if !s.Nested || s.Depth != 2 || s.Deferrals != 1 {
		t.Errorf("scope = %+v", s)
	}
}
