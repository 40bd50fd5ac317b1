package dto

import (
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "id", Message: "is required"}
	if err.Error() != "id: is required" {
		t.Errorf("Error() = %q, want %q", err.Error(), "id: is required")
	}
}

func TestValidationError_ToMap(t *testing.T) {
	err := ValidationError{Field: "id", Message: "is required"}
	m := err.ToMap()
	if m["id"] != "is required" {
		t.Errorf("ToMap() = %v, want {id: is required}", m)
	}
}

func TestToMap(t *testing.T) {
	errs := []ValidationError{
		{Field: "id", Message: "is required"},
		{Field: "quality", Message: "invalid"},
	}
	m := ToMap(errs)
	if len(m) != 2 {
		t.Errorf("ToMap() returned %d items, want 2", len(m))
	}
	if m["quality"] != "invalid" {
		t.Errorf("ToMap()[quality] = %q, want %q", m["quality"], "invalid")
	}
}

func TestToResponse(t *testing.T) {
	errs := []ValidationError{
		{Field: "id", Message: "is required"},
		{Field: "type", Message: "invalid"},
	}
	resp := ToResponse(errs)
	expected := "id: is required; type: invalid"
	if resp != expected {
		t.Errorf("ToResponse() = %q, want %q", resp, expected)
	}
}

func TestItemRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        ItemRequest
		wantFields []string
	}{
		{
			name: "valid album",
			req:  ItemRequest{ID: "123", Type: "album", URL: "https://tidal.com/browse/album/123", Quality: "high"},
		},
		{
			name: "virtual item without url",
			req:  ItemRequest{ID: "mix-1", Type: "mix"},
		},
		{
			name:       "missing id and type",
			req:        ItemRequest{},
			wantFields: []string{"id", "type"},
		},
		{
			name:       "unknown type",
			req:        ItemRequest{ID: "1", Type: "podcast"},
			wantFields: []string{"type"},
		},
		{
			name:       "relative url",
			req:        ItemRequest{ID: "1", Type: "track", URL: "browse/track/1"},
			wantFields: []string{"url"},
		},
		{
			name:       "bad quality and source",
			req:        ItemRequest{ID: "1", Type: "track", Quality: "ultra", Source: "sonarr"},
			wantFields: []string{"quality", "source"},
		},
		{
			name: "lidarr source",
			req:  ItemRequest{ID: "1", Type: "album", Source: "lidarr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.req.Validate()
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("Validate() returned %d errors (%s), want %d", len(errs), ToResponse(errs), len(tt.wantFields))
			}
			m := ToMap(errs)
			for _, f := range tt.wantFields {
				if _, ok := m[f]; !ok {
					t.Errorf("Validate() missing error for field %q", f)
				}
			}
		})
	}
}

func TestItemRequest_ToItem(t *testing.T) {
	req := ItemRequest{ID: "1", Type: "album", URL: "https://x/1", Quality: "master", Artist: "A", Title: "T", Source: "lidarr"}
	item := req.ToItem()
	if item.ID != "1" || string(item.Type) != "album" || item.Source != "lidarr" || item.Quality != "master" {
		t.Errorf("ToItem() = %+v", item)
	}
	if item.Status != "" {
		t.Errorf("ToItem() status = %q, want empty", item.Status)
	}
}

func TestPagination(t *testing.T) {
	p := NewPagination(3, 10, 25)
	if p.CurrentPage != 3 || p.TotalPages != 3 || !p.HasPrev || p.HasNext {
		t.Errorf("NewPagination() = %+v", p)
	}
	start, end := p.Bounds()
	if start != 20 || end != 25 {
		t.Errorf("Bounds() = %d, %d, want 20, 25", start, end)
	}

	p = NewPagination(9, 0, 0)
	if p.CurrentPage != 1 || p.PageSize != 30 {
		t.Errorf("NewPagination() = %+v", p)
	}
	start, end = p.Bounds()
	if start != 0 || end != 0 {
		t.Errorf("Bounds() = %d, %d, want 0, 0", start, end)
	}
}
