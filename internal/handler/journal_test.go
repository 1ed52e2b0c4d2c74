package handler_test

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/fundpool/fundpool/internal/handler"
	"github.com/fundpool/fundpool/internal/journal"
)

func setupJournalEnv(t *testing.T) (*env, *journal.MemoryJournal) {
	t.Helper()
	e := setupEnv(t)
	j := journal.New()
	v1 := e.router.Group("/api/v1")
	handler.NewJournalHandler(j, zap.NewNop()).Register(v1)
	return e, j
}

func TestJournalOverview_200(t *testing.T) {
	e, _ := setupJournalEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/journal", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode(t, w)
	if int(resp["entries"].(float64)) != 1 { // genesis
		t.Errorf("entries = %v, want 1", resp["entries"])
	}
	if resp["root"] != journal.GenesisHash {
		t.Errorf("root = %v, want genesis hash", resp["root"])
	}
}

func TestJournalVerify_200(t *testing.T) {
	e, j := setupJournalEnv(t)
	_, _ = j.RecordDeposit(context.Background(), "alice", "5", "5", 1)

	w := e.do(t, http.MethodGet, "/api/v1/journal/verify", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp["valid"] != true {
		t.Errorf("valid = %v, want true", resp["valid"])
	}
}

func TestJournalGetEntry_404_missing(t *testing.T) {
	e, _ := setupJournalEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/journal/entries/9", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestJournalGetEntry_400_badIndex(t *testing.T) {
	e, _ := setupJournalEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/journal/entries/nope", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestJournalGetEntry_200_afterActivity(t *testing.T) {
	e, j := setupJournalEnv(t)
	_, _ = j.RecordDeposit(context.Background(), "alice", "100", "100", 1)

	w := e.do(t, http.MethodGet, "/api/v1/journal/entries/1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	resp := decode(t, w)
	if resp["action"] != journal.ActionDeposit || resp["contributor"] != "alice" {
		t.Errorf("unexpected entry: %v", resp)
	}
}
