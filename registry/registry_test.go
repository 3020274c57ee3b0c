package registry

import "testing"

func TestReserveNotVisibleUntilCommit(t *testing.T) {
	r := New[int]()
	id, slot := r.Reserve(42)
	*slot = 43

	if got := r.Find(id); got != nil {
		t.Fatalf("Find before Commit = %v, want nil", got)
	}

	r.Commit()

	got := r.Find(id)
	if got == nil || *got != 43 {
		t.Fatalf("Find after Commit = %v, want 43", got)
	}
}

func TestEraseThenCommitFreesId(t *testing.T) {
	r := New[int]()
	id, _ := r.Reserve(1)
	r.Commit()

	r.Erase(id)
	if r.Find(id) != nil {
		t.Fatalf("Find after Erase should be nil immediately")
	}

	r.Commit()

	newId, _ := r.Reserve(2)
	if newId != id {
		t.Fatalf("expected freed id %d to be reused, got %d", id, newId)
	}
	r.Commit()
	if got := r.Find(newId); got == nil || *got != 2 {
		t.Fatalf("Find(newId) = %v, want 2", got)
	}
}

func TestIdsNeverAliasALiveEntity(t *testing.T) {
	r := New[int]()
	a, _ := r.Reserve(1)
	r.Commit()
	b, _ := r.Reserve(2)
	// a is live, b is only pending: they must not collide.
	if a == b {
		t.Fatalf("live id %d aliased pending id %d", a, b)
	}
	r.Commit()
	if r.Find(a) == nil || r.Find(b) == nil {
		t.Fatalf("both ids should be live after commit")
	}
}

func TestStableSurvivesEraseDuringIteration(t *testing.T) {
	r := New[string]()
	idA, _ := r.Reserve("a")
	idB, _ := r.Reserve("b")
	r.Commit()

	entries := r.Stable()
	if len(entries) != 2 {
		t.Fatalf("expected 2 stable entries, got %d", len(entries))
	}

	// Erase idA mid-"iteration" (after the snapshot was taken).
	r.Erase(idA)

	for _, e := range entries {
		if e.Id == idA {
			if r.Find(e.Id) != nil {
				t.Fatalf("erased entity should no longer be found")
			}
		} else if e.Id == idB {
			if r.Find(e.Id) == nil {
				t.Fatalf("untouched entity should still be found")
			}
		}
	}
}

func TestClearDropsFreeList(t *testing.T) {
	r := New[int]()
	r.Reserve(1)
	r.Commit()
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", r.Len())
	}
	newId, _ := r.Reserve(2)
	r.Commit()
	if got := r.Find(newId); got == nil || *got != 2 {
		t.Fatalf("Find(newId) after Clear+Reserve+Commit = %v, want 2", got)
	}
}
