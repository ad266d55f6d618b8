package persistence

import (
	"testing"
)

type runStatus struct {
	Passes    int    `json:"passes"`
	LastError string `json:"last_error"`
}

func TestJSONFileStoreRoundTrip(t *testing.T) {
	svc := NewJSONFileService(t.TempDir())
	st := svc.NewStore("state", "live_trader")

	var got runStatus
	if err := st.Load(&got); err != ErrNotExists {
		t.Fatalf("expected ErrNotExists before first save, got %v", err)
	}

	if err := st.Save(runStatus{Passes: 3, LastError: "network"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.NewStore("state", "live_trader").Load(&got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Passes != 3 || got.LastError != "network" {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	var m MemoryStore
	var got runStatus
	if err := m.Load(&got); err != ErrNotExists {
		t.Fatalf("expected ErrNotExists, got %v", err)
	}
	if err := m.Save(runStatus{Passes: 1}); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(&got); err != nil || got.Passes != 1 {
		t.Fatalf("got %+v err=%v", got, err)
	}
}
