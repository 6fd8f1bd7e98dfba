package pagination

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		in, want PaginationParams
	}{
		{PaginationParams{0, 0}, PaginationParams{1, DefaultPerPage}},
		{PaginationParams{3, 500}, PaginationParams{3, MaxPerPage}},
		{PaginationParams{2, 10}, PaginationParams{2, 10}},
	}
	for _, tt := range tests {
		got := tt.in
		got.Validate()
		if got != tt.want {
			t.Errorf("Validate(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if off := (&PaginationParams{Page: 3, PerPage: 15}).Offset(); off != 30 {
		t.Errorf("Offset() = %d, want 30", off)
	}
}

func TestNewPaginatedResult(t *testing.T) {
	res := NewPaginatedResult[int](nil, &PaginationParams{Page: 2, PerPage: 15}, 31)
	if res.Items == nil || len(res.Items) != 0 {
		t.Fatalf("items = %#v", res.Items)
	}
	p := res.Pagination
	if p.TotalPages != 3 || !p.HasNext || !p.HasPrev {
		t.Fatalf("pagination = %+v", p)
	}
	if last := NewPagination(3, 15, 31); last.HasNext {
		t.Fatal("last page reports a next page")
	}
	if empty := NewPagination(1, 15, 0); empty.TotalPages != 0 || empty.HasNext {
		t.Fatalf("empty = %+v", empty)
	}
}
