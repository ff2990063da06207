package domain

import (
	"errors"
	"testing"
)

func TestValidateDates(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{name: "valid range", start: "2024-06-01", end: "2024-06-10"},
		{name: "same day", start: "2024-06-01", end: "2024-06-01"},
		{name: "missing start", start: "", end: "2024-06-10", wantErr: true},
		{name: "missing end", start: "2024-06-01", end: "", wantErr: true},
		{name: "whitespace only", start: "  ", end: "2024-06-10", wantErr: true},
		{name: "inverted range", start: "2024-06-10", end: "2024-06-01", wantErr: true},
		{name: "unparsable date", start: "06/01/2024", end: "2024-06-10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDates(tt.start, tt.end)
			if tt.wantErr && !errors.Is(err, ErrInvalidDates) {
				t.Errorf("ValidateDates() = %v, want ErrInvalidDates", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateDates() = %v, want nil", err)
			}
		})
	}
}

func TestSortVacations(t *testing.T) {
	vacations := []Vacation{
		{StartDate: "2023-01-05", EndDate: "2023-01-07"},
		{StartDate: "2024-07-01", EndDate: "2024-07-14"},
		{StartDate: "garbage", EndDate: "2024-01-01"},
		{StartDate: "2023-12-24", EndDate: "2023-12-26"},
	}

	SortVacations(vacations)

	want := []string{"2024-07-01", "2023-12-24", "2023-01-05", "garbage"}
	for i, w := range want {
		if vacations[i].StartDate != w {
			t.Errorf("vacations[%d].StartDate = %s, want %s", i, vacations[i].StartDate, w)
		}
	}
}

func TestSortVacationsStableForEqualStarts(t *testing.T) {
	vacations := []Vacation{
		{StartDate: "2024-01-01", EndDate: "2024-01-02"},
		{StartDate: "2024-01-01", EndDate: "2024-01-09"},
	}

	SortVacations(vacations)

	if vacations[0].EndDate != "2024-01-02" {
		t.Errorf("equal start dates should keep insertion order, got %+v", vacations)
	}
}

func TestRenderVacations(t *testing.T) {
	f := NewDateFormatter("en-US")

	empty := RenderVacations(nil, f)
	if empty.Header != "" || len(empty.Items) != 0 {
		t.Errorf("empty collection should render nothing, got %+v", empty)
	}

	view := RenderVacations([]Vacation{{StartDate: "2024-07-01", EndDate: "2024-07-14"}}, f)
	if view.Header != VacationsHeader {
		t.Errorf("Header = %q, want %q", view.Header, VacationsHeader)
	}
	if got, want := view.Items[0].Text, "From 7/1/2024 to 7/14/2024"; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestIsKnownTag(t *testing.T) {
	for _, tag := range []Tag{TagDataUpdated, TagFetchJokes, TagFetchError} {
		if !IsKnownTag(tag) {
			t.Errorf("IsKnownTag(%q) = false, want true", tag)
		}
	}
	if IsKnownTag("Hello from PWA!") {
		t.Error("IsKnownTag() should reject free-form messages")
	}
}
