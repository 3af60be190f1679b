package extpoint

import (
	"errors"
	"reflect"
	"testing"
)

const (
	ownerA = "11111111-1111-4111-8111-111111111111"
	ownerB = "22222222-2222-4222-8222-222222222222"
)

func TestRegisterAndOrder(t *testing.T) {
	r := NewRegistry()

	mustRegister := func(owner, name string, priority Priority, handler Handler) {
		t.Helper()
		if err := r.Register(TrackMetadataProcessor, owner, name, priority, handler); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	mustRegister(ownerA, "", PriorityNormal, "first-normal")
	mustRegister(ownerB, "", PriorityHigh, "high")
	mustRegister(ownerA, "", PriorityNormal, "second-normal")
	mustRegister(ownerB, "", PriorityLow, "low")

	got := r.Handlers(TrackMetadataProcessor)
	want := []Handler{"high", "first-normal", "second-normal", "low"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("handler order = %v, want %v", got, want)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ScriptFunction, "", "fn", PriorityNormal, "h"); err == nil {
		t.Error("empty owner should fail")
	}
	if err := r.Register(ScriptFunction, ownerA, "fn", PriorityNormal, nil); err == nil {
		t.Error("nil handler should fail")
	}
}

func TestNamedHandlerConflict(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ScriptFunction, ownerA, "swapprefix", PriorityNormal, "a"); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(ScriptFunction, ownerB, "swapprefix", PriorityNormal, "b"); err == nil {
		t.Error("duplicate named handler should fail")
	}
	if got := r.Lookup(ScriptFunction, "swapprefix"); got != Handler("a") {
		t.Errorf("Lookup = %v", got)
	}
	if got := r.Lookup(ScriptFunction, "missing"); got != nil {
		t.Errorf("Lookup missing = %v", got)
	}
}

func TestDeregisterOwner(t *testing.T) {
	r := NewRegistry()
	points := []Point{AlbumMetadataProcessor, FilePostSaveProcessor, ScriptFunction}
	for i, point := range points {
		name := ""
		if point == ScriptFunction {
			name = "fn"
		}
		if err := r.Register(point, ownerA, name, PriorityNormal, i); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Register(AlbumMetadataProcessor, ownerB, "", PriorityNormal, "keep"); err != nil {
		t.Fatal(err)
	}

	if got := r.OwnerCount(ownerA); got != 3 {
		t.Errorf("OwnerCount = %d, want 3", got)
	}
	if removed := r.DeregisterOwner(ownerA); removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if got := r.OwnerCount(ownerA); got != 0 {
		t.Errorf("OwnerCount after deregister = %d", got)
	}
	if got := r.Handlers(AlbumMetadataProcessor); len(got) != 1 || got[0] != Handler("keep") {
		t.Errorf("other owner's handlers disturbed: %v", got)
	}
	// Name freed for re-registration.
	if err := r.Register(ScriptFunction, ownerB, "fn", PriorityNormal, "again"); err != nil {
		t.Errorf("name should be free after deregister: %v", err)
	}
}

func TestRunCollectsFailures(t *testing.T) {
	r := NewRegistry()
	for _, h := range []Handler{"ok", "fail", "ok2"} {
		if err := r.Register(FilePostLoadProcessor, ownerA, "", PriorityNormal, h); err != nil {
			t.Fatal(err)
		}
	}

	var ran []string
	err := r.Run(FilePostLoadProcessor, func(h Handler) error {
		name := h.(string)
		ran = append(ran, name)
		if name == "fail" {
			return errors.New("boom")
		}
		return nil
	})

	if !reflect.DeepEqual(ran, []string{"ok", "fail", "ok2"}) {
		t.Errorf("run order = %v", ran)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) || len(runErr.Failures) != 1 {
		t.Errorf("expected one collected failure, got %v", err)
	}

	if err := r.Run(OptionsPage, func(Handler) error { return nil }); err != nil {
		t.Errorf("empty point should run clean: %v", err)
	}
}
