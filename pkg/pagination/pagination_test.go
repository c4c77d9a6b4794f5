package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/JaimeStill/loom/pkg/pagination"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 25, MaxPageSize: 100}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
	}{
		{"zero values", 0, 0, 1, 25},
		{"negative page", -3, 10, 1, 10},
		{"oversized page size", 1, 500, 1, 100},
		{"valid", 4, 50, 4, 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := pagination.PageRequest{Page: tc.page, PageSize: tc.pageSize}
			req.Normalize(testConfig())

			if req.Page != tc.wantPage {
				t.Errorf("page: got %d, want %d", req.Page, tc.wantPage)
			}
			if req.PageSize != tc.wantPageSize {
				t.Errorf("page size: got %d, want %d", req.PageSize, tc.wantPageSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 3, PageSize: 25}
	if got := req.Offset(); got != 50 {
		t.Errorf("offset: got %d, want 50", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "auth")
	values.Set("sort", "-created_at")

	req := pagination.PageRequestFromQuery(values, testConfig())

	if req.Page != 2 || req.PageSize != 10 {
		t.Errorf("page/size: got %d/%d, want 2/10", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "auth" {
		t.Error("search not parsed")
	}
	if len(req.Sort) != 1 || req.Sort[0].Field != "created_at" || !req.Sort[0].Descending {
		t.Errorf("sort: got %+v", req.Sort)
	}
}

func TestSortFieldsUnmarshalString(t *testing.T) {
	var req pagination.PageRequest
	if err := json.Unmarshal([]byte(`{"sort": "story_id,-created_at"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(req.Sort) != 2 {
		t.Fatalf("sort fields: got %d, want 2", len(req.Sort))
	}
	if !req.Sort[1].Descending {
		t.Error("second field should be descending")
	}
}

func TestSortFieldsUnmarshalArray(t *testing.T) {
	var req pagination.PageRequest
	data := `{"sort": [{"Field": "phase", "Descending": true}]}`
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(req.Sort) != 1 || req.Sort[0].Field != "phase" || !req.Sort[0].Descending {
		t.Errorf("sort: got %+v", req.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	result := pagination.NewPageResult([]string{"a", "b"}, 51, 1, 25)

	if result.TotalPages != 3 {
		t.Errorf("total pages: got %d, want 3", result.TotalPages)
	}
	if result.Total != 51 {
		t.Errorf("total: got %d, want 51", result.Total)
	}
}

func TestNewPageResultEmpty(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 25)

	if result.Data == nil {
		t.Error("data should be an empty slice, not nil")
	}
	if result.TotalPages != 1 {
		t.Errorf("total pages: got %d, want 1", result.TotalPages)
	}
}
