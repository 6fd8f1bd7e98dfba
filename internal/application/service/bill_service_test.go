package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	domainRepo "github.com/sangkips/canteen-kiosk/internal/domain/repository"
	"github.com/sangkips/canteen-kiosk/pkg/apperror"
	"github.com/sangkips/canteen-kiosk/pkg/pagination"
	"go.uber.org/zap"
)

func TestBillLog(t *testing.T) {
	h := newLifecycleHarness(t)
	ctx := context.Background()
	bills := NewBillService(h.orders, zap.NewNop())

	cash := h.create(t, "")
	if _, err := h.svc.PayCash(ctx, h.actor, cash.ID); err != nil {
		t.Fatal(err)
	}
	guest := h.create(t, enum.PaymentModeGuest)

	all, err := bills.ListBills(ctx, &domainRepo.BillFilterParams{})
	if err != nil {
		t.Fatalf("ListBills() error = %v", err)
	}
	if all.Pagination.Total != 4 || len(all.Items) != 4 {
		t.Fatalf("total = %d items = %d", all.Pagination.Total, len(all.Items))
	}
	if all.Items[0].BillDate.Before(all.Items[len(all.Items)-1].BillDate) {
		t.Fatal("bills not listed newest date first")
	}

	printed := true
	res, err := bills.ListBills(ctx, &domainRepo.BillFilterParams{Printed: &printed})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pagination.Total != 2 {
		t.Fatalf("printed bills = %d, want 2", res.Pagination.Total)
	}
	for _, b := range res.Items {
		if b.OrderID != cash.ID || b.Order == nil || len(b.Items) != 2 {
			t.Fatalf("bill = %+v", b)
		}
	}

	mode := enum.PaymentModeGuest
	res, err = bills.ListBills(ctx, &domainRepo.BillFilterParams{
		PaymentMode: &mode,
		Pagination:  &pagination.PaginationParams{Page: 1, PerPage: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pagination.Total != 2 || len(res.Items) != 1 || !res.Pagination.HasNext {
		t.Fatalf("paged guest bills = %+v", res.Pagination)
	}

	other := uuid.New()
	res, err = bills.ListBills(ctx, &domainRepo.BillFilterParams{UnitID: &other})
	if err != nil || len(res.Items) != 0 || res.Items == nil {
		t.Fatalf("other unit bills = %+v, %v", res, err)
	}

	got, err := bills.GetBill(ctx, guest.DayBills[0].ID)
	if err != nil {
		t.Fatalf("GetBill() error = %v", err)
	}
	if got.Order == nil || got.Order.PaymentMode != enum.PaymentModeGuest {
		t.Fatalf("bill order = %+v", got.Order)
	}
	if _, err := bills.GetBill(ctx, uuid.New()); !errors.Is(err, apperror.ErrBillNotFound) {
		t.Fatalf("GetBill(unknown) error = %v", err)
	}

	orderDeleted, err := bills.DeleteBill(ctx, guest.DayBills[0].ID)
	if err != nil || orderDeleted {
		t.Fatalf("first DeleteBill() = %v, %v", orderDeleted, err)
	}
	orderDeleted, err = bills.DeleteBill(ctx, guest.DayBills[1].ID)
	if err != nil || !orderDeleted {
		t.Fatalf("last DeleteBill() = %v, %v", orderDeleted, err)
	}
	var orders int64
	h.db.Model(&entity.Order{}).Where("id = ?", guest.ID).Count(&orders)
	if orders != 0 {
		t.Fatal("empty order left behind")
	}
	if _, err := bills.DeleteBill(ctx, guest.DayBills[0].ID); !errors.Is(err, apperror.ErrBillNotFound) {
		t.Fatalf("DeleteBill(deleted) error = %v", err)
	}
}

func TestDeleteBillsHonoursFilters(t *testing.T) {
	h := newLifecycleHarness(t)
	ctx := context.Background()
	bills := NewBillService(h.orders, zap.NewNop())

	cash := h.create(t, "")
	if _, err := h.svc.PayCash(ctx, h.actor, cash.ID); err != nil {
		t.Fatal(err)
	}
	guest := h.create(t, enum.PaymentModeGuest)

	mode := enum.PaymentModeGuest
	from := day("2024-03-07")
	deleted, err := bills.DeleteBills(ctx, &domainRepo.BillFilterParams{PaymentMode: &mode, StartDate: &from})
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteBills(guest, from 03-07) = %d, %v", deleted, err)
	}
	left := h.reload(t, guest.ID)
	if len(left.DayBills) != 1 || !left.DayBills[0].BillDate.Equal(day("2024-03-06")) {
		t.Fatalf("guest bills left = %+v", left.DayBills)
	}

	deleted, err = bills.DeleteBills(ctx, &domainRepo.BillFilterParams{PaymentMode: &mode})
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteBills(guest) = %d, %v", deleted, err)
	}
	var count int64
	h.db.Model(&entity.Order{}).Where("id = ?", guest.ID).Count(&count)
	if count != 0 {
		t.Fatal("guest order left without bills")
	}

	other := uuid.New()
	deleted, err = bills.DeleteBills(ctx, &domainRepo.BillFilterParams{UnitID: &other})
	if err != nil || deleted != 0 {
		t.Fatalf("DeleteBills(other unit) = %d, %v", deleted, err)
	}

	printed := true
	deleted, err = bills.DeleteBills(ctx, &domainRepo.BillFilterParams{Printed: &printed, UnitID: &h.unit.ID})
	if err != nil || deleted != 2 {
		t.Fatalf("DeleteBills(printed) = %d, %v", deleted, err)
	}
	h.db.Model(&entity.OrderItem{}).Count(&count)
	if count != 0 {
		t.Fatalf("%d items left behind", count)
	}
	h.db.Model(&entity.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("%d orders left behind", count)
	}
}
