package joincode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func neverTaken(context.Context, string) (bool, error) {
	return false, nil
}

func TestGenerate_Shape(t *testing.T) {
	gen := NewGenerator(6, neverTaken)
	for i := 0; i < 50; i++ {
		code, err := gen.Generate(context.Background())
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected length 6, got %d (%q)", len(code), code)
		}
		for _, r := range code {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("unexpected character %q in code %q", r, code)
			}
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("expected uppercase code, got %q", code)
		}
	}
}

func TestGenerate_DefaultLength(t *testing.T) {
	gen := NewGenerator(0, neverTaken)
	if gen.Length() != DefaultLength {
		t.Fatalf("expected default length %d, got %d", DefaultLength, gen.Length())
	}
	code, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != DefaultLength {
		t.Fatalf("expected length %d, got %d", DefaultLength, len(code))
	}
}

func TestGenerate_RetriesOnCollision(t *testing.T) {
	calls := 0
	gen := NewGenerator(6, func(context.Context, string) (bool, error) {
		calls++
		return calls <= 3, nil
	})
	code, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if code == "" {
		t.Fatalf("expected a code after retries")
	}
	if calls != 4 {
		t.Fatalf("expected 4 lookups, got %d", calls)
	}
}

func TestGenerate_SpaceExhausted(t *testing.T) {
	calls := 0
	gen := NewGenerator(6, func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	_, err := gen.Generate(context.Background())
	if !errors.Is(err, ErrSpaceExhausted) {
		t.Fatalf("expected ErrSpaceExhausted, got %v", err)
	}
	if calls != maxAttempts {
		t.Fatalf("expected %d lookups, got %d", maxAttempts, calls)
	}
}

func TestGenerate_LookupError(t *testing.T) {
	wantErr := fmt.Errorf("registry down")
	gen := NewGenerator(6, func(context.Context, string) (bool, error) {
		return false, wantErr
	})
	if _, err := gen.Generate(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestGenerate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := NewGenerator(6, neverTaken)
	if _, err := gen.Generate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
