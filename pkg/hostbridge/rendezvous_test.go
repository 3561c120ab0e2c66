package hostbridge

import "testing"

func TestPublishAndDiscover(t *testing.T) {
	r, info, err := Publish(51060, 51052)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	defer r.Remove()

	if info.PID == 0 {
		t.Fatalf("expected nonzero PID")
	}
	if info.SessionToken == "" {
		t.Fatalf("expected nonempty session token")
	}

	found, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	var matched bool
	for _, f := range found {
		if f.PID == info.PID && f.SessionToken == info.SessionToken {
			matched = true
		}
	}
	if !matched {
		t.Fatalf("expected to discover the just-published rendezvous info, got %+v", found)
	}
}

func TestRendezvousRemove_IsIdempotent(t *testing.T) {
	r, _, err := Publish(51061, 51053)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	r.Remove()
	r.Remove()

	var nilRendezvous *Rendezvous
	nilRendezvous.Remove()
}
