package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCorpus_CreateAndGet(t *testing.T) {
	s := openTestStore(t)

	c := Corpus{ID: "c-1", DisplayName: "legal_doc_abc12345", CreatedAt: time.Now().UTC()}
	if err := s.CreateCorpus(c); err != nil {
		t.Fatalf("CreateCorpus: %v", err)
	}

	got, err := s.GetCorpusByName("legal_doc_abc12345")
	if err != nil {
		t.Fatalf("GetCorpusByName: %v", err)
	}
	if got.ID != "c-1" {
		t.Errorf("ID = %q, want c-1", got.ID)
	}
}

func TestCorpus_GetUnknown(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetCorpusByName("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCorpus_DisplayNameUnique(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateCorpus(Corpus{ID: "c-1", DisplayName: "dup"}); err != nil {
		t.Fatalf("first CreateCorpus: %v", err)
	}
	if err := s.CreateCorpus(Corpus{ID: "c-2", DisplayName: "dup"}); err == nil {
		t.Fatal("duplicate display name accepted, want unique constraint failure")
	}
}

func TestJobs_EnqueueClaimComplete(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: "j-1", Type: "corpus_import", PayloadJSON: `{"corpus_id":"c-1"}`}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, err := s.ClaimNextJob([]string{"corpus_import"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if claimed == nil || claimed.ID != "j-1" {
		t.Fatalf("claimed = %+v, want job j-1", claimed)
	}
	if claimed.Status != "running" {
		t.Errorf("Status = %q, want running", claimed.Status)
	}

	// A second claim must find nothing while the job runs.
	again, err := s.ClaimNextJob([]string{"corpus_import"})
	if err != nil {
		t.Fatalf("second ClaimNextJob: %v", err)
	}
	if again != nil {
		t.Errorf("claimed running job twice: %+v", again)
	}

	if err := s.CompleteJob("j-1"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
}

func TestJobs_ClaimIgnoresOtherTypes(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnqueueJob(Job{ID: "j-1", Type: "other", PayloadJSON: "{}"}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	claimed, err := s.ClaimNextJob([]string{"corpus_import"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if claimed != nil {
		t.Errorf("claimed job of wrong type: %+v", claimed)
	}
}

func TestJobs_FailRetriesWithBackoff(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnqueueJob(Job{ID: "j-1", Type: "corpus_import", PayloadJSON: "{}", MaxAttempts: 2}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"corpus_import"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	// First failure: back to pending with run_after in the future.
	if err := s.FailJob("j-1", "download failed"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	claimed, err := s.ClaimNextJob([]string{"corpus_import"})
	if err != nil {
		t.Fatalf("ClaimNextJob after fail: %v", err)
	}
	if claimed != nil {
		t.Fatalf("job claimable before backoff elapsed: %+v", claimed)
	}

	// Make it runnable now, claim, and fail again: attempts exhausted.
	if _, err := s.db.Exec(`UPDATE jobs SET run_after = ? WHERE id = 'j-1'`,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		t.Fatalf("resetting run_after: %v", err)
	}
	if claimed, err = s.ClaimNextJob([]string{"corpus_import"}); err != nil || claimed == nil {
		t.Fatalf("reclaim = (%+v, %v)", claimed, err)
	}
	if err := s.FailJob("j-1", "download failed again"); err != nil {
		t.Fatalf("second FailJob: %v", err)
	}

	var status string
	if err := s.db.QueryRow(`SELECT status FROM jobs WHERE id = 'j-1'`).Scan(&status); err != nil {
		t.Fatalf("reading status: %v", err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed after max attempts", status)
	}
}

func TestJobs_CompleteUnknown(t *testing.T) {
	s := openTestStore(t)
	if err := s.CompleteJob("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMigrations_Applied(t *testing.T) {
	s := openTestStore(t)
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("reading schema_version: %v", err)
	}
	if count == 0 {
		t.Error("no migrations recorded")
	}
}
