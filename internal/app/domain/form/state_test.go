package form

import (
	"errors"
	"testing"
)

func TestState_NotifyOncePerMutation(t *testing.T) {
	var fired int
	st, err := New([]string{"type", "quantity"}, func() { fired++ })
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	if err := st.Set("type", []string{"physical"}); err != nil {
		t.Fatalf("set type: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected 1 notification after set, got %d", fired)
	}

	if err := st.Reset("type"); err != nil {
		t.Fatalf("reset type: %v", err)
	}
	if fired != 2 {
		t.Fatalf("expected 2 notifications after reset, got %d", fired)
	}

	// Reads never notify.
	if _, err := st.Get("quantity"); err != nil {
		t.Fatalf("get quantity: %v", err)
	}
	if fired != 2 {
		t.Fatalf("get must not notify, got %d", fired)
	}
}

func TestState_GetReflectsLatestWrite(t *testing.T) {
	st, err := New([]string{"version"}, nil)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	if err := st.Set("version", []string{"20.04"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Set("version", []string{"18.04"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := st.Get("version")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0] != "18.04" {
		t.Fatalf("expected latest write, got %v", got)
	}

	if err := st.Reset("version"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, _ = st.Get("version")
	if len(got) != 0 {
		t.Fatalf("expected empty after reset, got %v", got)
	}
}

func TestState_NotifySeesUpdatedState(t *testing.T) {
	var observed string
	var st *State
	var err error
	st, err = New([]string{"support"}, func() {
		observed, _ = st.First("support")
	})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	if err := st.Set("support", []string{"essential"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if observed != "essential" {
		t.Fatalf("callback saw stale state: %q", observed)
	}
}

func TestState_UnknownKey(t *testing.T) {
	st, err := New([]string{"type"}, nil)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	if _, err := st.Get("cart"); err == nil {
		t.Fatalf("expected unknown key error")
	} else {
		var unknown *UnknownKeyError
		if !errors.As(err, &unknown) || unknown.Key != "cart" {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := st.Set("cart", []string{"x"}); err == nil {
		t.Fatalf("expected unknown key error on set")
	}
	if err := st.Reset("cart"); err == nil {
		t.Fatalf("expected unknown key error on reset")
	}
}

func TestState_DuplicateKeysRejected(t *testing.T) {
	if _, err := New([]string{"type", "type"}, nil); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestState_SnapshotRestore(t *testing.T) {
	var fired int
	st, err := New([]string{"type", "quantity"}, func() { fired++ })
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	if err := st.Set("type", []string{"virtual"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	snap := st.Snapshot()

	other, err := New([]string{"type", "quantity"}, nil)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	other.Restore(snap)

	got, _ := other.First("type")
	if got != "virtual" {
		t.Fatalf("restore lost value: %q", got)
	}

	// Restore fires one notification on the original's count only when
	// applied to it, not on unrelated instances.
	if fired != 1 {
		t.Fatalf("expected original to have 1 notification, got %d", fired)
	}
}
