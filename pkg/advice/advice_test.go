package advice

import (
	"context"
	"errors"
	"image"
	"iter"
	"testing"

	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/note"
)

func TestDefaultTopSuggestion(t *testing.T) {
	var seq iter.Seq[any] = func(func(any) bool) {}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name  string
		value any
		want  note.Kind
	}{
		{"nil", nil, kind.PPrint},
		{"int", 42, kind.PPrint},
		{"string", "s", kind.PPrint},
		{"kinded", kind.AsMarkdown("# x"), kind.Markdown},
		{"image", image.NewRGBA(image.Rect(0, 0, 1, 1)), kind.Image},
		{"png bytes", png, kind.Image},
		{"plain bytes", []byte("abc"), kind.PPrint},
		{"table", note.Table{}, kind.Table},
		{"dataset", []map[string]any{{"a": 1}}, kind.Dataset},
		{"set", note.NewSet(1), kind.Set},
		{"map", map[string]any{"a": 1}, kind.Map},
		{"typed map", map[int]string{1: "a"}, kind.Map},
		{"ordered map", note.MapOf("a", 1), kind.Map},
		{"fn mapping", map[string]any{kind.FnKey: "f", "x": 1}, kind.Fn},
		{"fn ordered", note.MapOf(kind.FnKey, "f"), kind.Fn},
		{"slice", []any{1, 2}, kind.Vector},
		{"typed slice", []int{1}, kind.Vector},
		{"seq", seq, kind.Seq},
		{"error", errors.New("x"), kind.PPrint},
		{"struct", struct{ A int }{1}, kind.PPrint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Default().Advise(context.Background(), "", tt.value)
			if err != nil {
				t.Fatalf("Advise() error: %v", err)
			}
			if got[0].Kind != tt.want {
				t.Errorf("top kind = %q (%s), want %q", got[0].Kind, got[0].Reason, tt.want)
			}
		})
	}
}

func TestFallbackAlwaysLast(t *testing.T) {
	got, err := Default().Advise(context.Background(), "", []any{})
	if err != nil {
		t.Fatal(err)
	}
	if last := got[len(got)-1]; last.Kind != kind.PPrint || last.Reason != "default" {
		t.Errorf("last advice = %+v, want default pprint", last)
	}
}

func TestNewPrependsRules(t *testing.T) {
	custom := func(form string, _ any) (Advice, bool) {
		if form == "chart" {
			return Advice{Kind: kind.VegaLite, Reason: "form"}, true
		}
		return Advice{}, false
	}
	got, err := New(custom).Advise(context.Background(), "chart", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Kind != kind.VegaLite {
		t.Errorf("top kind = %q, want %q", got[0].Kind, kind.VegaLite)
	}
}

func TestEmptyRules(t *testing.T) {
	_, err := Rules{}.Advise(context.Background(), "", 1)
	if !errors.Is(err, ErrNoAdvice) {
		t.Errorf("err = %v, want ErrNoAdvice", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Default().Advise(ctx, "", 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFunc(t *testing.T) {
	f := Func(func(context.Context, string, any) ([]Advice, error) {
		return []Advice{{Kind: kind.Hidden}}, nil
	})
	got, _ := f.Advise(context.Background(), "", nil)
	if got[0].Kind != kind.Hidden {
		t.Errorf("Func advice = %v", got)
	}
}
