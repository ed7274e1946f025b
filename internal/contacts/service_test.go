package contacts

import (
	"context"
	"testing"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/store"
)

func TestSaveNormalizesAndUpserts(t *testing.T) {
	s := store.NewMemoryStore()
	svc := New(s)
	ctx := context.Background()

	c, err := svc.Save(ctx, "u1", "  Bob@X.com ", " Bob ")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if c.Email != "bob@x.com" {
		t.Errorf("email = %s, want bob@x.com", c.Email)
	}
	if c.Name != "Bob" {
		t.Errorf("name = %s, want Bob", c.Name)
	}

	if _, err := svc.Save(ctx, "u1", "bob@x.com", "Roberto"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(list))
	}
	if list[0].Name != "Roberto" {
		t.Errorf("name after rename = %s", list[0].Name)
	}
}

func TestSaveValidation(t *testing.T) {
	svc := New(store.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Save(ctx, "u1", "", "Bob"); !domain.IsValidation(err) {
		t.Errorf("expected validation error for empty email, got %v", err)
	}
	if _, err := svc.Save(ctx, "u1", "bob@x.com", "  "); !domain.IsValidation(err) {
		t.Errorf("expected validation error for blank name, got %v", err)
	}
}

func TestKnownAndResolveName(t *testing.T) {
	svc := New(store.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Save(ctx, "u1", "bob@x.com", "Bob"); err != nil {
		t.Fatalf("save: %v", err)
	}

	known, err := svc.Known(ctx, "u1", "BOB@x.com")
	if err != nil || !known {
		t.Errorf("Known = %v, %v; want true, nil", known, err)
	}
	known, err = svc.Known(ctx, "u2", "bob@x.com")
	if err != nil || known {
		t.Errorf("contacts must be scoped per user; Known = %v, %v", known, err)
	}

	name, err := svc.ResolveName(ctx, "u1", "bob@x.com")
	if err != nil || name != "Bob" {
		t.Errorf("ResolveName = %q, %v; want Bob, nil", name, err)
	}
	name, err = svc.ResolveName(ctx, "u1", "nobody@x.com")
	if err != nil || name != "" {
		t.Errorf("ResolveName for stranger = %q, %v; want empty", name, err)
	}
}

func TestDelete(t *testing.T) {
	svc := New(store.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Save(ctx, "u1", "bob@x.com", "Bob"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.Delete(ctx, "u1", "Bob@X.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", "bob@x.com"); !domain.IsNotFound(err) {
		t.Errorf("expected not-found error on second delete, got %v", err)
	}
}
