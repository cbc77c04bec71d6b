package secrets

import "testing"

func TestFakeSetGetDelete(t *testing.T) {
	f := NewFake()

	if _, err := f.Get("groq"); err != ErrNotFound {
		t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
	}

	if err := f.Set("groq", "gsk_abc123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := f.Get("groq")
	if err != nil || got != "gsk_abc123" {
		t.Fatalf("Get = (%q, %v), want (gsk_abc123, nil)", got, err)
	}

	if err := f.Delete("groq"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.Get("groq"); err != ErrNotFound {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestIsConfigured(t *testing.T) {
	f := NewFake()
	if IsConfigured(f, "groq") {
		t.Error("IsConfigured on empty store should be false")
	}
	f.Set("groq", "gsk_abc123")
	if !IsConfigured(f, "groq") {
		t.Error("IsConfigured after Set should be true")
	}
}

func TestRemoteAdapterTranslatesNotFound(t *testing.T) {
	f := NewFake()
	a := RemoteAdapter{Store: f}

	_, found, err := a.Get("groq")
	if err != nil || found {
		t.Fatalf("Get on empty store = (found=%v, err=%v), want (false, nil)", found, err)
	}

	f.Set("groq", "gsk_abc123")
	value, found, err := a.Get("groq")
	if err != nil || !found || value != "gsk_abc123" {
		t.Fatalf("Get = (%q, %v, %v), want (gsk_abc123, true, nil)", value, found, err)
	}
}
