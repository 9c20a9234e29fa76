package modelcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirouk/responses-proxy/pkg/upstream"
)

type fakeLister struct {
	models []upstream.ChatModel
	err    error
	calls  int
}

func (f *fakeLister) ListModels(ctx context.Context) ([]upstream.ChatModel, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

func TestRefreshPopulatesCache(t *testing.T) {
	lister := &fakeLister{models: []upstream.ChatModel{{ID: "b"}, {ID: "a"}}}
	c := New(lister, time.Minute, nil)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if ids := c.IDs(0); ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("IDs() = %v, want sorted [a b]", ids)
	}
	if _, ok := c.Lookup("a"); !ok {
		t.Fatal("expected lookup of a to succeed")
	}
}

func TestFailedRefreshKeepsStaleSnapshot(t *testing.T) {
	lister := &fakeLister{models: []upstream.ChatModel{{ID: "a"}}}
	c := New(lister, time.Minute, nil)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	lister.err = errors.New("backend down")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected error from second refresh")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (stale snapshot preserved)", c.Len())
	}
}

func TestIDsRespectsCap(t *testing.T) {
	lister := &fakeLister{models: []upstream.ChatModel{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	c := New(lister, time.Minute, nil)
	c.Refresh(context.Background())

	if ids := c.IDs(2); len(ids) != 2 {
		t.Fatalf("IDs(2) len = %d, want 2", len(ids))
	}
}
