package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/sigvault/sigvault/fingerprint"
	"github.com/sigvault/sigvault/storage/model"
)

func TestGetSignatureUnknown(t *testing.T) {
	store := newTestStorage(t).SignatureStorage()
	entity, err := store.GetSignature(context.Background(), fingerprint.Compute("p", "t", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity != nil {
		t.Fatalf("expected nil entity, got %+v", entity)
	}
}

func TestPutSignature(t *testing.T) {
	s := newTestStorage(t)
	advance := setClock(s, testClock)
	store := s.SignatureStorage()
	ctx := context.Background()
	fp := fingerprint.Compute("page", "t", "c")

	entity, err := store.PutSignature(ctx, fp, "page", "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Contract.Hash != fp.String() || entity.Contract.PageID != "page" {
		t.Errorf("unexpected contract: %+v", entity.Contract)
	}
	if entity.Contract.IsDeleted() {
		t.Error("new contract must not be deleted")
	}
	advance(time.Minute)
	if entity, err = store.PutSignature(ctx, fp, "page", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Count() != 2 {
		t.Fatalf("expected 2 signatures, got %d", entity.Count())
	}
	// ordered by signing time, not by account id
	if entity.Signatures[0].AccountID != "u2" || entity.Signatures[1].AccountID != "u1" {
		t.Errorf("unexpected order: %+v", entity.Signatures)
	}
	if !entity.Contract.CreatedAt.Equal(testClock) {
		t.Errorf("contract creation time must not change, got %v", entity.Contract.CreatedAt)
	}
	if !entity.HasSigned("u1") || entity.HasSigned("u3") {
		t.Error("HasSigned returned wrong results")
	}
}

func TestPutSignatureDuplicate(t *testing.T) {
	store := newTestStorage(t).SignatureStorage()
	ctx := context.Background()
	fp := fingerprint.Compute("page", "t", "c")

	if _, err := store.PutSignature(ctx, fp, "page", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := store.PutSignature(ctx, fp, "page", "u1")
	var already model.AlreadySignedError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadySignedError, got %v", err)
	}
	if already.AccountID != "u1" || already.Hash != fp.String() {
		t.Errorf("unexpected error content: %+v", already)
	}
	entity, err := store.GetSignature(ctx, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Count() != 1 {
		t.Errorf("expected 1 signature, got %d", entity.Count())
	}
}

func TestPutSignatureRequiresIDs(t *testing.T) {
	store := newTestStorage(t).SignatureStorage()
	fp := fingerprint.Compute("page", "t", "c")
	if _, err := store.PutSignature(context.Background(), fp, "", "u1"); err == nil {
		t.Error("expected error for empty page id")
	}
	if _, err := store.PutSignature(context.Background(), fp, "page", ""); err == nil {
		t.Error("expected error for empty account id")
	}
}

func TestPutSignatureConcurrentSameAccount(t *testing.T) {
	store := newTestStorage(t).SignatureStorage()
	ctx := context.Background()
	fp := fingerprint.Compute("page", "t", "c")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.PutSignature(ctx, fp, "page", "u1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var already model.AlreadySignedError
		if !errors.As(err, &already) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one successful signature, got %d", succeeded)
	}
	entity, err := store.GetSignature(ctx, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Count() != 1 {
		t.Errorf("expected 1 stored signature, got %d", entity.Count())
	}
}

func TestSoftThenHardDelete(t *testing.T) {
	s := newTestStorage(t)
	advance := setClock(s, testClock)
	store := s.SignatureStorage()
	ctx := context.Background()
	fp1 := fingerprint.Compute("page", "t", "v1")
	fp2 := fingerprint.Compute("page", "t", "v2")
	other := fingerprint.Compute("other", "t", "v1")

	for _, fp := range []fingerprint.Fingerprint{fp1, fp2} {
		for _, acc := range []string{"u1", "u2"} {
			if _, err := store.PutSignature(ctx, fp, "page", acc); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}
	if _, err := store.PutSignature(ctx, other, "other", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := store.SetDeleted(ctx, "page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 contracts marked, got %d", n)
	}
	entity, _ := store.GetSignature(ctx, fp1)
	if entity.Contract.DeletedAt == nil || !entity.Contract.DeletedAt.Equal(testClock) {
		t.Errorf("expected deletedAt to be set to %v, got %v", testClock, entity.Contract.DeletedAt)
	}

	advance(time.Hour)
	if n, err = store.SetDeleted(ctx, "page"); err != nil || n != 0 {
		t.Fatalf("expected idempotent soft delete, got %d, %v", n, err)
	}
	entity, _ = store.GetSignature(ctx, fp1)
	if !entity.Contract.DeletedAt.Equal(testClock) {
		t.Errorf("deletedAt must not change on repeated soft delete, got %v", entity.Contract.DeletedAt)
	}

	if n, err = store.Cleanup(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 contracts purged, got %d", n)
	}
	for _, fp := range []fingerprint.Fingerprint{fp1, fp2} {
		if entity, err = store.GetSignature(ctx, fp); err != nil || entity != nil {
			t.Errorf("expected contract %s to be purged, got %+v, %v", fp, entity, err)
		}
	}
	var orphans int64
	s.db.Model(&model.Signature{}).Where("contract_hash IN ?", []string{fp1.String(), fp2.String()}).Count(&orphans)
	if orphans != 0 {
		t.Errorf("expected no orphaned signatures, got %d", orphans)
	}
	if entity, _ = store.GetSignature(ctx, other); entity.Count() != 1 {
		t.Error("contracts of other pages must not be touched")
	}
}

func TestCleanupRespectsRetention(t *testing.T) {
	s := newTestStorage(t)
	advance := setClock(s, testClock)
	store := s.SignatureStorage()
	ctx := context.Background()
	old := fingerprint.Compute("old", "t", "c")
	recent := fingerprint.Compute("recent", "t", "c")
	active := fingerprint.Compute("active", "t", "c")

	for page, fp := range map[string]fingerprint.Fingerprint{"old": old, "recent": recent, "active": active} {
		if _, err := store.PutSignature(ctx, fp, page, "u1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := store.SetDeleted(ctx, "old"); err != nil {
		t.Fatal(err)
	}
	advance(20 * 24 * time.Hour)
	if _, err := store.SetDeleted(ctx, "recent"); err != nil {
		t.Fatal(err)
	}
	advance(11 * 24 * time.Hour)

	n, err := store.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 contract purged, got %d", n)
	}
	if e, _ := store.GetSignature(ctx, old); e != nil {
		t.Error("expected old contract to be purged")
	}
	if e, _ := store.GetSignature(ctx, recent); e == nil {
		t.Error("expected recently deleted contract to be kept")
	}
	if e, _ := store.GetSignature(ctx, active); e == nil {
		t.Error("expected active contract to be kept")
	}
	if _, err = store.Cleanup(ctx, -1); err == nil {
		t.Error("expected error for negative retention")
	}
}

func TestCleanupLongRetention(t *testing.T) {
	s := newTestStorage(t)
	advance := setClock(s, testClock)
	store := s.SignatureStorage()
	ctx := context.Background()
	fp := fingerprint.Compute("p1", "t", "c")
	if _, err := store.PutSignature(ctx, fp, "p1", "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SetDeleted(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	advance(time.Hour)

	n, err := store.Cleanup(ctx, model.MaxRetentionDays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing purged, got %d", n)
	}
	for _, days := range []int{model.MaxRetentionDays + 1, 200000} {
		if n, err = store.Cleanup(ctx, days); err == nil {
			t.Errorf("expected error for retention of %d days, purged %d", days, n)
		}
	}
	if e, _ := store.GetSignature(ctx, fp); e == nil {
		t.Error("expected contract within retention to be kept")
	}
}

func TestHardDeleteActive(t *testing.T) {
	store := newTestStorage(t).SignatureStorage()
	ctx := context.Background()
	fp := fingerprint.Compute("page", "t", "c")
	if _, err := store.PutSignature(ctx, fp, "page", "u1"); err != nil {
		t.Fatal(err)
	}
	n, err := store.HardDelete(ctx, "page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 contract removed, got %d", n)
	}
	if e, _ := store.GetSignature(ctx, fp); e != nil {
		t.Error("expected contract to be removed")
	}
	if n, err = store.HardDelete(ctx, "page"); err != nil || n != 0 {
		t.Errorf("expected no-op, got %d, %v", n, err)
	}
}

func TestRestore(t *testing.T) {
	store := newTestStorage(t).SignatureStorage()
	ctx := context.Background()
	fp := fingerprint.Compute("page", "t", "c")
	if _, err := store.PutSignature(ctx, fp, "page", "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SetDeleted(ctx, "page"); err != nil {
		t.Fatal(err)
	}
	n, err := store.Restore(ctx, "page")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 restored contract, got %d, %v", n, err)
	}
	e, _ := store.GetSignature(ctx, fp)
	if e.Contract.IsDeleted() {
		t.Error("expected contract to be active again")
	}
	if n, _ = store.Cleanup(ctx, 0); n != 0 {
		t.Errorf("restored contracts must survive cleanup, purged %d", n)
	}
}

func TestListByPage(t *testing.T) {
	s := newTestStorage(t)
	advance := setClock(s, testClock)
	store := s.SignatureStorage()
	ctx := context.Background()
	for i := 1; i <= 2; i++ {
		fp := fingerprint.Compute("page", "t", fmt.Sprintf("v%d", i))
		for j := 0; j < i; j++ {
			if _, err := store.PutSignature(ctx, fp, "page", fmt.Sprintf("u%d", j)); err != nil {
				t.Fatal(err)
			}
		}
		advance(time.Minute)
	}
	list, err := store.ListByPage(ctx, "page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 contracts, got %d", len(list))
	}
	if list[0].SignatureCount != 1 || list[1].SignatureCount != 2 {
		t.Errorf("unexpected counts: %+v", list)
	}
	if list, err = store.ListByPage(ctx, "none"); err != nil || len(list) != 0 {
		t.Errorf("expected empty list, got %+v, %v", list, err)
	}
}
