package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"farmacia/m/domain"
	"farmacia/m/internal/database"
	"farmacia/m/internal/metrics"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(context.Background(), filepath.Join(t.TempDir(), "farmacia.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	s := New(openTestDB(t), opts...)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return s
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func addMedication(t *testing.T, s *Store, code, name, p string) int64 {
	t.Helper()
	id, err := s.AddMedication(context.Background(), domain.Medication{
		Code:   code,
		Name:   name,
		Image:  "img/" + code + ".png",
		Price:  price(p),
		Status: domain.StatusActive,
	})
	if err != nil {
		t.Fatalf("add medication %s: %v", code, err)
	}
	return id
}

func TestAddThenGetReturnsStoredFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := domain.Medication{Code: "AX1", Name: "PARACETAMOL", Image: "img/ax1.png", Price: price("5.50"), Status: domain.StatusActive}
	id, err := s.AddMedication(ctx, want)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, found, err := s.Medication(ctx, id)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	want.ID = id
	if got.ID != want.ID || got.Code != want.Code || got.Name != want.Name || got.Image != want.Image || got.Status != want.Status {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if !got.Price.Equal(want.Price) {
		t.Fatalf("expected price %s, got %s", want.Price, got.Price)
	}
}

func TestIdentitiesAreMonotonic(t *testing.T) {
	s := newTestStore(t)
	first := addMedication(t, s, "A1", "ONE", "1")
	second := addMedication(t, s, "A2", "TWO", "2")
	if second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}
}

func TestGetMissingIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	_, found, err := s.Medication(context.Background(), 404)
	if err != nil {
		t.Fatalf("expected plain lookup to succeed, got %v", err)
	}
	if found {
		t.Fatalf("expected no medication")
	}
}

func TestPutOverwritesAndRejectsMissingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := addMedication(t, s, "AX1", "PARACETAMOL", "5.50")

	if err := s.PutMedication(ctx, domain.Medication{ID: id, Code: "AX2", Name: "IBUPROFENO", Image: "i", Price: price("7"), Status: domain.StatusActive}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _, _ := s.Medication(ctx, id)
	if got.Code != "AX2" || got.Name != "IBUPROFENO" || !got.Price.Equal(price("7")) {
		t.Fatalf("expected overwrite, got %+v", got)
	}

	err := s.PutMedication(ctx, domain.Medication{ID: 999, Code: "X", Name: "X", Image: "x", Price: price("1"), Status: domain.StatusActive})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteViolationIsStorageWriteError(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddMedication(context.Background(), domain.Medication{Code: "A", Name: "A", Image: "a", Price: price("1"), Status: "expired"})
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
}

func TestDeleteMedicationHidesFromActiveListing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	keep := addMedication(t, s, "A1", "ONE", "1")
	gone := addMedication(t, s, "A2", "TWO", "2")

	if err := s.DeleteMedication(ctx, gone); err != nil {
		t.Fatalf("delete: %v", err)
	}

	active, err := s.ActiveMedications(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != keep {
		t.Fatalf("expected only %d active, got %+v", keep, active)
	}
	for _, m := range active {
		if m.Status != domain.StatusActive {
			t.Fatalf("inactive medication listed: %+v", m)
		}
	}

	got, found, err := s.Medication(ctx, gone)
	if err != nil || !found {
		t.Fatalf("expected deleted medication to stay retrievable: found=%v err=%v", found, err)
	}
	if got.Status != domain.StatusInactive {
		t.Fatalf("expected inactive status, got %s", got.Status)
	}
}

func TestDeleteMedicationTwiceIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := addMedication(t, s, "A1", "ONE", "1")

	if err := s.DeleteMedication(ctx, id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.DeleteMedication(ctx, id); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	got, _, _ := s.Medication(ctx, id)
	if got.Status != domain.StatusInactive {
		t.Fatalf("expected inactive status, got %s", got.Status)
	}
}

func TestDeleteMissingRecordIsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.DeleteMedication(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for medication, got %v", err)
	}
	if err := s.DeleteSale(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for sale, got %v", err)
	}
}

func TestOperationsWaitForInitialize(t *testing.T) {
	s := New(openTestDB(t))

	done := make(chan error, 1)
	go func() {
		_, err := s.ActiveMedications(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("listing returned before initialization: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listing after initialization: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("listing still blocked after initialization")
	}

	select {
	case <-s.Ready():
	default:
		t.Fatalf("expected ready channel to be closed")
	}
}

func TestAwaitHonoursContext(t *testing.T) {
	s := New(openTestDB(t))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.ActiveSales(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestInitializeFailureIsSticky(t *testing.T) {
	db := openTestDB(t)
	_ = db.Close()
	s := New(db)

	err := s.Initialize(context.Background())
	if !errors.Is(err, ErrStorageInit) {
		t.Fatalf("expected ErrStorageInit, got %v", err)
	}
	if _, err := s.ActiveMedications(context.Background()); !errors.Is(err, ErrStorageInit) {
		t.Fatalf("expected later operations to fail with ErrStorageInit, got %v", err)
	}
	if err := s.Initialize(context.Background()); !errors.Is(err, ErrStorageInit) {
		t.Fatalf("expected repeated initialize to report the first failure, got %v", err)
	}
}

func TestStoreRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestStore(t, WithMetrics(metrics.NewRecorder(reg)))
	addMedication(t, s, "A1", "ONE", "1")
	_, _, _ = s.Medication(context.Background(), 1)

	const want = `
# HELP farmacia_store_operations_total Store operations by collection, operation and result.
# TYPE farmacia_store_operations_total counter
farmacia_store_operations_total{collection="medications",operation="add",result="ok"} 1
farmacia_store_operations_total{collection="medications",operation="get",result="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "farmacia_store_operations_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestMedicationsListsEveryStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	active := addMedication(t, s, "A1", "ONE", "1")
	deleted := addMedication(t, s, "A2", "TWO", "2")
	if err := s.DeleteMedication(ctx, deleted); err != nil {
		t.Fatalf("delete: %v", err)
	}

	all, err := s.Medications(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 || all[0].ID != active || all[1].ID != deleted {
		t.Fatalf("expected both medications in id order, got %+v", all)
	}
	if all[0].Status != domain.StatusActive || all[1].Status != domain.StatusInactive {
		t.Fatalf("expected statuses active then inactive, got %s and %s", all[0].Status, all[1].Status)
	}
}

func TestEditMedicationKeepsStoredStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := addMedication(t, s, "AX1", "PARACETAMOL", "5.50")
	if err := s.DeleteMedication(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := s.EditMedication(ctx, domain.Medication{ID: id, Code: "AX1", Name: "PARACETAMOL FORTE", Image: "i", Price: price("6")}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	got, _, _ := s.Medication(ctx, id)
	if got.Name != "PARACETAMOL FORTE" || got.Status != domain.StatusInactive {
		t.Fatalf("expected edited inactive medication, got %+v", got)
	}
	active, _ := s.ActiveMedications(ctx)
	if len(active) != 0 {
		t.Fatalf("edit must not reactivate, got %+v", active)
	}

	err := s.EditMedication(ctx, domain.Medication{ID: 999, Code: "X", Name: "X", Image: "x", Price: price("1")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
