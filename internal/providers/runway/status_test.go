package runway

import "testing"

func TestParseState(t *testing.T) {
	cases := []struct {
		raw  string
		want TaskState
	}{
		{"PENDING", StatePending},
		{"THROTTLED", StatePending},
		{"RUNNING", StateRunning},
		{"SUCCEEDED", StateSucceeded},
		{"FAILED", StateFailed},
		{"CANCELLED", StateFailed},
		{"running", StateRunning},
		{" succeeded ", StateSucceeded},
		{"SOMETHING_NEW", StatePending},
		{"", StatePending},
	}
	for _, tc := range cases {
		if got := ParseState(tc.raw); got != tc.want {
			t.Errorf("ParseState(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	if StatePending.Terminal() || StateRunning.Terminal() {
		t.Fatal("pending/running must not be terminal")
	}
	if !StateSucceeded.Terminal() || !StateFailed.Terminal() {
		t.Fatal("succeeded/failed must be terminal")
	}
}
