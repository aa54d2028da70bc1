package tools

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name:        "echo",
		Description: "echoes its input",
		Parameters:  map[string]any{"type": "object"},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			return StringArg(args, "text"), nil
		},
	})

	got, err := r.Execute(context.Background(), "echo", `{"text":"hi"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "hi" {
		t.Errorf("expected hi, got %q", got)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "nope", "{}")
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistryInvalidArgs(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name: "noop",
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			return "", nil
		},
	})

	if _, err := r.Execute(context.Background(), "noop", "{broken"); err == nil {
		t.Error("expected error for malformed argument JSON")
	}
	// Empty argument strings are fine; models omit arguments for
	// zero-parameter tools.
	if _, err := r.Execute(context.Background(), "noop", ""); err != nil {
		t.Errorf("empty args should succeed, got %v", err)
	}
}

func TestListCatalogShape(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name:        "b_tool",
		Description: "second",
		Parameters:  map[string]any{"type": "object"},
		Handler:     func(_ context.Context, _ map[string]any) (string, error) { return "", nil },
	})
	r.Register(&Tool{
		Name:        "a_tool",
		Description: "first",
		Parameters:  map[string]any{"type": "object"},
		Handler:     func(_ context.Context, _ map[string]any) (string, error) { return "", nil },
	})

	catalog := r.List()
	if len(catalog) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(catalog))
	}
	// Registration order, not map order.
	fn := catalog[0]["function"].(map[string]any)
	if fn["name"] != "b_tool" {
		t.Errorf("expected registration order preserved, got %v", fn["name"])
	}
	if catalog[0]["type"] != "function" {
		t.Errorf("expected type function, got %v", catalog[0]["type"])
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"s": "str",
		"f": float64(7),
		"i": 3,
	}
	if got := StringArg(args, "s"); got != "str" {
		t.Errorf("StringArg: %q", got)
	}
	if got := StringArg(args, "missing"); got != "" {
		t.Errorf("StringArg missing: %q", got)
	}
	if got := IntArg(args, "f", 0); got != 7 {
		t.Errorf("IntArg float: %d", got)
	}
	if got := IntArg(args, "i", 0); got != 3 {
		t.Errorf("IntArg int: %d", got)
	}
	if got := IntArg(args, "missing", 42); got != 42 {
		t.Errorf("IntArg default: %d", got)
	}
}
