package change

import "testing"

func TestResolveExact(t *testing.T) {
	names := []string{"001-01_init", "001-12_setup-wizard", "002-12_setup-wizard"}
	r := Resolve(names, nil, "001-01_init", false)
	if r.Kind != Unique || r.ID != "001-01_init" {
		t.Fatalf("got %+v", r)
	}
}

func TestResolveNumericSelector(t *testing.T) {
	names := []string{"001-01_init", "009-02_audit-log"}
	r := Resolve(names, nil, "9-2", false)
	if r.Kind != Unique || r.ID != "009-02_audit-log" {
		t.Fatalf("got %+v", r)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	names := []string{"001-12_setup-wizard", "002-12_setup-wizard"}
	r := Resolve(names, nil, "setup", false)
	if r.Kind != Ambiguous {
		t.Fatalf("expected ambiguous, got %+v", r)
	}
	if len(r.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %v", r.Candidates)
	}
}

func TestResolveModuleScoped(t *testing.T) {
	names := []string{"001-12_setup-wizard", "002-12_setup-wizard"}
	r := Resolve(names, nil, "1:setup", false)
	if r.Kind != Unique || r.ID != "001-12_setup-wizard" {
		t.Fatalf("got %+v", r)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	r := Resolve([]string{"001-01_init"}, nil, "", false)
	if r.Kind != NotFound {
		t.Fatalf("expected NotFound for empty input, got %+v", r)
	}
}

func TestResolveArchivedOnlyWhenRequested(t *testing.T) {
	names := []string{"001-01_init"}
	archived := []string{"001-02_old"}
	r := Resolve(names, archived, "001-02_old", false)
	if r.Kind != NotFound {
		t.Fatalf("expected archived change to be excluded by default, got %+v", r)
	}
	r = Resolve(names, archived, "001-02_old", true)
	if r.Kind != Unique {
		t.Fatalf("expected archived change to resolve when included, got %+v", r)
	}
}

func TestDeriveStatus(t *testing.T) {
	if DeriveStatus(TaskCounts{}) != StatusNoTasks {
		t.Errorf("expected NoTasks for zero total")
	}
	if DeriveStatus(TaskCounts{Total: 2, Complete: 2}) != StatusComplete {
		t.Errorf("expected Complete")
	}
	if DeriveStatus(TaskCounts{Total: 2, Complete: 1}) != StatusInProgress {
		t.Errorf("expected InProgress")
	}
}
