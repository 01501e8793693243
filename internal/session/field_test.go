package session

import "testing"

func TestField_SucceedCommitsEcho(t *testing.T) {
	f := NewField("missing")
	tk := f.Stage("complete")
	if !f.Pending() || f.Value() != "complete" {
		t.Fatalf("after Stage: pending=%v value=%q", f.Pending(), f.Value())
	}
	if !f.Succeed(tk, "complete") {
		t.Error("Succeed of latest ticket should update display")
	}
	if f.Pending() || f.Value() != "complete" || f.Committed() != "complete" {
		t.Errorf("after Succeed: pending=%v value=%q", f.Pending(), f.Value())
	}
}

func TestField_FailReverts(t *testing.T) {
	f := NewField("missing")
	tk := f.Stage("complete")
	if !f.Fail(tk) {
		t.Error("Fail of latest ticket should revert")
	}
	if f.Value() != "missing" {
		t.Errorf("Value = %q, want missing", f.Value())
	}
}

func TestField_StaleSuccessDiscarded(t *testing.T) {
	f := NewField(50.0)
	t1 := f.Stage(60)
	t2 := f.Stage(70)
	if !f.Succeed(t2, 70) {
		t.Fatal("Succeed(t2) should apply")
	}
	if f.Succeed(t1, 60) {
		t.Error("Succeed(t1) after t2 should be discarded")
	}
	if f.Value() != 70 {
		t.Errorf("Value = %v, want 70", f.Value())
	}
	if f.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", f.Outstanding())
	}
}

func TestField_EarlierSuccessWhileNewerPending(t *testing.T) {
	f := NewField(50.0)
	t1 := f.Stage(60)
	t2 := f.Stage(70)
	if f.Succeed(t1, 60) {
		t.Error("display should stay on the newer staged value")
	}
	if f.Value() != 70 || f.Committed() != 60 {
		t.Errorf("Value=%v Committed=%v, want 70/60", f.Value(), f.Committed())
	}
	// The newer edit fails: revert to what the server last accepted.
	if !f.Fail(t2) {
		t.Error("Fail(t2) should revert")
	}
	if f.Value() != 60 {
		t.Errorf("Value = %v, want 60", f.Value())
	}
}

func TestField_SupersededFailureIgnored(t *testing.T) {
	f := NewField(50.0)
	t1 := f.Stage(60)
	t2 := f.Stage(70)
	if f.Fail(t1) {
		t.Error("Fail of superseded ticket should be ignored")
	}
	if !f.Pending() || f.Value() != 70 {
		t.Errorf("pending=%v value=%v, want pending 70", f.Pending(), f.Value())
	}
	f.Succeed(t2, 70)
	if f.Value() != 70 {
		t.Errorf("Value = %v, want 70", f.Value())
	}
}

func TestField_LateSuccessAfterNewerFailure(t *testing.T) {
	f := NewField(50.0)
	t1 := f.Stage(60)
	t2 := f.Stage(70)
	f.Fail(t2)
	if f.Value() != 50 {
		t.Fatalf("Value = %v, want 50", f.Value())
	}
	// The server did accept 60, so that is now the committed value.
	if !f.Succeed(t1, 60) {
		t.Error("late success should update display")
	}
	if f.Value() != 60 {
		t.Errorf("Value = %v, want 60", f.Value())
	}
}
