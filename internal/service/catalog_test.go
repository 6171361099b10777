package service

import (
	"errors"
	"testing"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
)

func TestCatalogValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.store)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"branch without name", func() error { _, err := svc.CreateBranch(f.ctx, clinic.Branch{}); return err }, domain.ErrValidation},
		{"service without duration", func() error {
			_, err := svc.CreateService(f.ctx, clinic.Service{Name: "Yoga"})
			return err
		}, domain.ErrValidation},
		{"resource of unknown kind", func() error {
			_, err := svc.CreateResource(f.ctx, clinic.Resource{BranchID: f.branch.ID, Name: "Pool", Kind: "pool"})
			return err
		}, domain.ErrValidation},
		{"resource at foreign branch", func() error {
			_, err := svc.CreateResource(f.ctx, clinic.Resource{BranchID: "elsewhere", Name: "Room 2", Kind: clinic.ResourceRoom})
			return err
		}, domain.ErrBranchNotFound},
		{"staff at foreign branch", func() error {
			_, err := svc.CreateStaff(as("clinic-b"), clinic.Staff{BranchID: f.branch.ID, Name: "Luis"})
			return err
		}, domain.ErrBranchNotFound},
		{"duplicate client email", func() error {
			_, err := svc.CreateClient(f.ctx, clinic.Client{Name: "Ana", Email: " ANA@example.com"})
			return err
		}, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCatalogCreatesActiveEntries(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.store)

	b, err := svc.CreateBranch(f.ctx, clinic.Branch{Name: "Norte"})
	if err != nil || !b.Active {
		t.Fatalf("branch: %+v %v", b, err)
	}
	st, err := svc.CreateStaff(f.ctx, clinic.Staff{BranchID: b.ID, Name: "Luis"})
	if err != nil || !st.Active || st.TenantID != "clinic-a" {
		t.Fatalf("staff: %+v %v", st, err)
	}
	c, err := svc.CreateClient(f.ctx, clinic.Client{Name: "Bea", Email: "Bea@Example.com"})
	if err != nil || c.Email != "bea@example.com" {
		t.Fatalf("client: %+v %v", c, err)
	}
	branches, err := svc.ListBranches(f.ctx)
	if err != nil || len(branches) != 2 {
		t.Fatalf("branches: %d %v", len(branches), err)
	}
	if other, _ := svc.ListBranches(as("clinic-b")); len(other) != 0 {
		t.Fatalf("other tenant sees %d branches", len(other))
	}
}
