package service

import (
	"errors"
	"slices"
	"testing"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
	"github.com/FerDeGante/Eventora-sub000/internal/port/messagequeue"
)

func TestPackageConsumeAndRefund(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t, 2)

	for range 2 {
		if _, err := f.packages.Consume(f.ctx, p.ID, f.client.ID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.packages.Consume(f.ctx, p.ID, f.client.ID); !errors.Is(err, domain.ErrPackageExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}

	for range 3 {
		if _, err := f.packages.Refund(f.ctx, p.ID); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.remaining(t, p.ID); got != 2 {
		t.Fatalf("refund exceeded total: remaining %d", got)
	}
	if !slices.Contains(f.queue.subjects(), messagequeue.SubjectPackageRefunded) {
		t.Fatal("refund event not published")
	}
}

func TestPackageConsumeChecksClient(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t, 2)
	if _, err := f.packages.Consume(f.ctx, p.ID, "someone-else"); !errors.Is(err, domain.ErrPackageNotFound) {
		t.Fatalf("expected not found for another client, got %v", err)
	}
	if _, err := f.packages.Consume(as("clinic-b"), p.ID, f.client.ID); !errors.Is(err, domain.ErrPackageNotFound) {
		t.Fatalf("expected not found for another tenant, got %v", err)
	}
}

func TestPackageCreate(t *testing.T) {
	f := newFixture(t)
	if _, err := f.packages.Create(f.ctx, userpackage.CreateRequest{ClientID: f.client.ID}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.packages.Create(f.ctx, userpackage.CreateRequest{ClientID: "ghost", SessionsTotal: 3}); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected unknown client, got %v", err)
	}
	f.pkg(t, 3)
	list, err := f.packages.ListForClient(f.ctx, f.client.ID)
	if err != nil || len(list) != 1 || list[0].SessionsRemaining != 3 {
		t.Fatalf("list: %+v %v", list, err)
	}
}
