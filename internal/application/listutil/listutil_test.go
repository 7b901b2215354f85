package listutil

import (
	"errors"
	"net/url"
	"testing"
)

// TestParsePageParams verifies defaults, parsing and rejection of bad values.
func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name    string
		q       url.Values
		want    PageParams
		wantErr error
	}{
		{"defaults", url.Values{}, PageParams{Page: 1, PerPage: DefaultPerPage}, nil},
		{"explicit", url.Values{"page": {"3"}, "per_page": {"25"}}, PageParams{Page: 3, PerPage: 25}, nil},
		{"only page", url.Values{"page": {"2"}}, PageParams{Page: 2, PerPage: DefaultPerPage}, nil},
		{"zero page", url.Values{"page": {"0"}}, PageParams{}, ErrInvalidPage},
		{"negative page", url.Values{"page": {"-1"}}, PageParams{}, ErrInvalidPage},
		{"word page", url.Values{"page": {"two"}}, PageParams{}, ErrInvalidPage},
		{"zero per_page", url.Values{"per_page": {"0"}}, PageParams{}, ErrInvalidPerPage},
		{"huge per_page", url.Values{"per_page": {"1000"}}, PageParams{}, ErrInvalidPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageParams(tt.q)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestPageParams_Validate mirrors the parser's bounds.
func TestPageParams_Validate(t *testing.T) {
	if err := (PageParams{Page: 1, PerPage: 10}).Validate(); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}
	if !errors.Is((PageParams{Page: 0, PerPage: 10}).Validate(), ErrInvalidPage) {
		t.Error("page 0 accepted")
	}
	if !errors.Is((PageParams{Page: 1, PerPage: MaxPerPage + 1}).Validate(), ErrInvalidPerPage) {
		t.Error("oversized page accepted")
	}
}

// TestNewPageInfo verifies end page computation and that the page is echoed.
func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		total       int
		wantEnd     int
		wantOffset  int
		wantVisible int
	}{
		{"first of many", 1, 20, 85, 5, 0, 20},
		{"last partial", 5, 20, 85, 5, 80, 5},
		{"past the end", 10, 20, 85, 5, 180, 0},
		{"empty", 1, 10, 0, 0, 0, 0},
		{"exact fit", 1, 10, 10, 1, 0, 10},
		{"three rows page two", 2, 5, 3, 1, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(tt.page, tt.perPage, tt.total)
			if pi.Page != tt.page {
				t.Errorf("Page = %d, want %d echoed", pi.Page, tt.page)
			}
			if pi.EndPage != tt.wantEnd {
				t.Errorf("EndPage = %d, want %d", pi.EndPage, tt.wantEnd)
			}
			if pi.Offset() != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", pi.Offset(), tt.wantOffset)
			}
			rows := Slice(make([]int, tt.total), pi)
			if len(rows) != tt.wantVisible {
				t.Errorf("visible rows = %d, want %d", len(rows), tt.wantVisible)
			}
			if rows == nil {
				t.Error("Slice must not return nil")
			}
		})
	}
}

// TestSlice_Contents checks the window picks the right elements.
func TestSlice_Contents(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	got := Slice(items, NewPageInfo(2, 2, len(items)))
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Errorf("page 2 = %v, want [c d]", got)
	}
	got = Slice(items, NewPageInfo(3, 2, len(items)))
	if len(got) != 1 || got[0] != "e" {
		t.Errorf("page 3 = %v, want [e]", got)
	}
}
