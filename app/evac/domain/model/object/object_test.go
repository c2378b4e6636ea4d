package object

import "testing"

func TestStatusTerminal(t *testing.T) {
	testCases := []struct {
		status   Status
		terminal bool
	}{
		{Pending, false},
		{Assigned, false},
		{Posted, false},
		{Completed, true},
		{Skipped, true},
		{Failed, true},
	}

	for _, c := range testCases {
		if c.status.Terminal() != c.terminal {
			t.Errorf("expected %s terminal to be %v", c.status, c.terminal)
		}
		if c.status.String() != string(c.status) {
			t.Errorf("expected string of %s: got %s", string(c.status), c.status.String())
		}
	}

	if Status("bogus").String() != "unknown" {
		t.Errorf("expected unknown status string")
	}
}

func TestReplicaLookup(t *testing.T) {
	o := &Object{
		Key:  "bucket/key",
		Size: 100,
		Replicas: []Replica{
			{Shark: "shark-01", FaultDomain: "rack-a"},
			{Shark: "shark-05", FaultDomain: "rack-c"},
		},
	}

	if !o.HasReplicaOn("shark-01") || !o.HasReplicaOn("shark-05") {
		t.Errorf("expected replicas on shark-01 and shark-05")
	}
	if o.HasReplicaOn("shark-02") {
		t.Errorf("expected no replica on shark-02")
	}

	if !o.HasReplicaIn("rack-a") || !o.HasReplicaIn("rack-c") {
		t.Errorf("expected replicas in rack-a and rack-c")
	}
	if o.HasReplicaIn("rack-b") {
		t.Errorf("expected no replica in rack-b")
	}
}
