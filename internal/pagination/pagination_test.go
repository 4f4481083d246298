package pagination

import (
	"math"
	"testing"

	"github.com/vidshare/backend/internal/apperror"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate(t *testing.T) {
	items := seq(23)

	cases := []struct {
		name     string
		page     int
		wantLen  int
		wantNext *int
		wantPrev *int
		wantHead int
	}{
		{name: "first page", page: 1, wantLen: 10, wantNext: ptr(2), wantPrev: nil, wantHead: 0},
		{name: "middle page", page: 2, wantLen: 10, wantNext: ptr(3), wantPrev: ptr(1), wantHead: 10},
		{name: "last partial page", page: 3, wantLen: 3, wantNext: nil, wantPrev: ptr(2), wantHead: 20},
		{name: "past the end", page: 4, wantLen: 0, wantNext: nil, wantPrev: ptr(3)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := Paginate(items, tc.page, 10)
			if err != nil {
				t.Fatalf("paginate: %v", err)
			}
			if len(page.Items) != tc.wantLen {
				t.Fatalf("expected %d items, got %d", tc.wantLen, len(page.Items))
			}
			if page.TotalPages != 3 || page.TotalItems != 23 {
				t.Fatalf("unexpected totals: pages=%d items=%d", page.TotalPages, page.TotalItems)
			}
			if !samePtr(page.NextPage, tc.wantNext) {
				t.Fatalf("unexpected next page %v", deref(page.NextPage))
			}
			if !samePtr(page.PreviousPage, tc.wantPrev) {
				t.Fatalf("unexpected previous page %v", deref(page.PreviousPage))
			}
			if tc.wantLen > 0 && page.Items[0] != tc.wantHead {
				t.Fatalf("expected window to start at %d, got %d", tc.wantHead, page.Items[0])
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	page, err := Paginate([]string(nil), 1, 10)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if page.TotalPages != 0 || page.NextPage != nil || page.PreviousPage != nil {
		t.Fatalf("unexpected page for empty input: %+v", page)
	}
	if page.Items == nil {
		t.Fatal("expected an empty, non-nil window")
	}
}

func TestPaginateRejectsInvalidParameters(t *testing.T) {
	_, err := Paginate(seq(5), 0, 0)
	appErr := apperror.As(err)
	if appErr.Kind != apperror.KindValidation || len(appErr.Details) != 2 {
		t.Fatalf("expected validation error with two details, got %+v", appErr)
	}
}

func TestPaginateHugeParameters(t *testing.T) {
	items := seq(3)

	cases := []struct {
		name      string
		page      int
		limit     int
		wantLen   int
		wantPages int
		wantNext  *int
	}{
		{name: "max limit first page", page: 1, limit: math.MaxInt, wantLen: 3, wantPages: 1},
		{name: "max limit second page", page: 2, limit: math.MaxInt, wantLen: 0, wantPages: 1},
		{name: "max page", page: math.MaxInt, limit: 10, wantLen: 0, wantPages: 1},
		{name: "max page and limit", page: math.MaxInt, limit: math.MaxInt, wantLen: 0, wantPages: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := Paginate(items, tc.page, tc.limit)
			if err != nil {
				t.Fatalf("paginate: %v", err)
			}
			if len(page.Items) != tc.wantLen || page.TotalPages != tc.wantPages {
				t.Fatalf("got %d items over %d pages", len(page.Items), page.TotalPages)
			}
			if !samePtr(page.NextPage, tc.wantNext) {
				t.Fatalf("unexpected next page %v", deref(page.NextPage))
			}
		})
	}
}

func ptr(n int) *int { return &n }

func samePtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
