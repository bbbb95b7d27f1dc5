package service

import (
	"context"
	"sync"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestAuditService_PersistsOnShutdown(t *testing.T) {
	repo := &mockAuditRepo{}
	m := newTestMetrics()
	svc := NewAuditService(repo, m, zap.NewNop())

	caller := domain.Caller{UserID: receptionist.UserID, Role: domain.RoleReceptionist, IP: "10.0.0.1", RequestID: "req-1"}
	for i := 0; i < 3; i++ {
		svc.LogAsync(context.Background(), AuditEntry{Caller: caller, Action: domain.ActionRead, ResourceType: "patient"})
	}
	svc.Shutdown()

	if repo.count() != 3 {
		t.Fatalf("expected 3 persisted entries, got %d", repo.count())
	}
	e := repo.entries[0]
	if e.UserID != caller.UserID || e.IPAddress != "10.0.0.1" || e.RequestID != "req-1" {
		t.Errorf("expected caller fields to be copied, got %+v", e)
	}
	if got := testutil.ToFloat64(m.AuditEntriesTotal); got != 3 {
		t.Errorf("expected 3 entries counted, got %v", got)
	}
}

func TestAuditService_DropsWhenFull(t *testing.T) {
	repo := &mockAuditRepo{block: make(chan struct{})}
	m := newTestMetrics()
	svc := newAuditService(repo, m, zap.NewNop(), 1)

	// The worker takes the first entry and blocks on it; the second fills
	// the buffer; the third is dropped.
	svc.LogAsync(context.Background(), AuditEntry{Action: domain.ActionCreate})
	for testutil.ToFloat64(m.AuditBufferDropped) == 0 {
		svc.LogAsync(context.Background(), AuditEntry{Action: domain.ActionCreate})
	}

	close(repo.block)
	svc.Shutdown()
	if got := testutil.ToFloat64(m.AuditBufferDropped); got < 1 {
		t.Errorf("expected a dropped entry, got %v", got)
	}
}

func TestAuditService_NilIsNoop(t *testing.T) {
	var svc *AuditService
	svc.LogAsync(context.Background(), AuditEntry{})
	svc.Shutdown()
}

func TestAuditService_LogAfterShutdownIsDropped(t *testing.T) {
	repo := &mockAuditRepo{}
	m := newTestMetrics()
	svc := NewAuditService(repo, m, zap.NewNop())

	svc.Shutdown()
	svc.Shutdown()
	svc.LogAsync(context.Background(), AuditEntry{Action: domain.ActionUpdate, ResourceType: "appointment"})

	if repo.count() != 0 {
		t.Fatalf("expected nothing persisted after shutdown, got %d", repo.count())
	}
	if got := testutil.ToFloat64(m.AuditBufferDropped); got != 1 {
		t.Errorf("expected 1 dropped entry, got %v", got)
	}
}

func TestAuditService_ShutdownWhileLogging(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, newTestMetrics(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				svc.LogAsync(context.Background(), AuditEntry{Action: domain.ActionRead, ResourceType: "patient"})
			}
		}()
	}
	svc.Shutdown()
	wg.Wait()
}
