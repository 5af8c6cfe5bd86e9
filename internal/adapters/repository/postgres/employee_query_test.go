package postgres

import (
	"reflect"
	"testing"

	"github.com/ogurasousui/employee-records/internal/core/employee"
)

func TestBuildEmployeePredicate(t *testing.T) {
	t.Parallel()

	active := employee.StatusActive

	cases := []struct {
		name      string
		filter    employee.ListFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:   "empty filter",
			filter: employee.ListFilter{Search: "   "},
		},
		{
			name:      "search only",
			filter:    employee.ListFilter{Search: "ali"},
			wantWhere: ` WHERE (name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\' OR department ILIKE $1 ESCAPE '\' OR position ILIKE $1 ESCAPE '\')`,
			wantArgs:  []any{"%ali%"},
		},
		{
			name:      "all filters",
			filter:    employee.ListFilter{Search: "eng", Department: "Engineering", Position: "Lead", Status: &active},
			wantWhere: ` WHERE (name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\' OR department ILIKE $1 ESCAPE '\' OR position ILIKE $1 ESCAPE '\') AND lower(department) = lower($2) AND lower(position) = lower($3) AND status = $4`,
			wantArgs:  []any{"%eng%", "Engineering", "Lead", "active"},
		},
		{
			name:      "structured only",
			filter:    employee.ListFilter{Department: "Sales", Status: &active},
			wantWhere: ` WHERE lower(department) = lower($1) AND status = $2`,
			wantArgs:  []any{"Sales", "active"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := buildEmployeePredicate(tc.filter)
			if got.where != tc.wantWhere {
				t.Fatalf("unexpected where.\nwant %s\ngot  %s", tc.wantWhere, got.where)
			}
			if !reflect.DeepEqual(got.args, tc.wantArgs) {
				t.Fatalf("unexpected args. want %v got %v", tc.wantArgs, got.args)
			}
		})
	}
}

func TestLikePattern_EscapesWildcards(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"alice":   "%alice%",
		"50%":     `%50\%%`,
		"a_b":     `%a\_b%`,
		`back\sl`: `%back\\sl%`,
		"'; DROP": "%'; DROP%",
	}

	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
