package domain

import "testing"

func TestTaskStatus_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskStatusPending, TaskStatusInProgress, true},
		{TaskStatusPending, TaskStatusDone, true},
		{TaskStatusPending, TaskStatusError, true},
		{TaskStatusInProgress, TaskStatusDone, true},
		{TaskStatusInProgress, TaskStatusError, true},

		// No backward transitions, no re-entering PENDING.
		{TaskStatusInProgress, TaskStatusPending, false},
		{TaskStatusDone, TaskStatusPending, false},
		{TaskStatusDone, TaskStatusInProgress, false},
		{TaskStatusDone, TaskStatusError, false},
		{TaskStatusError, TaskStatusDone, false},
		{TaskStatusPending, TaskStatusPending, false},

		// Unknown statuses are rejected.
		{TaskStatus("BOGUS"), TaskStatusDone, false},
		{TaskStatusPending, TaskStatus("BOGUS"), false},
	}

	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Errorf("CanTransition(%s → %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	if TaskStatusPending.IsTerminal() || TaskStatusInProgress.IsTerminal() {
		t.Error("PENDING and IN_PROGRESS are not terminal")
	}
	if !TaskStatusDone.IsTerminal() || !TaskStatusError.IsTerminal() {
		t.Error("DONE and ERROR are terminal")
	}
}
