package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/bike-usage-dashboard/internal/table"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"not found", fmt.Errorf("x: %w", ErrNotFound), ErrorCategoryNotFound},
		{"upstream", fmt.Errorf("x: %w", ErrUpstreamFailure), ErrorCategoryUpstream},
		{"decode", fmt.Errorf("x: %w", ErrDecode), ErrorCategoryDecode},
		{"parse", fmt.Errorf("x: %w", ErrParse), ErrorCategoryParsing},
		{"schema", fmt.Errorf("x: %w", table.ErrMissingColumn), ErrorCategorySchema},
		{"circuit", fmt.Errorf("x: %w", ErrCircuitOpen), ErrorCategoryCircuitOpen},
		{"connection", errors.New("dial tcp: connection refused"), ErrorCategoryNetwork},
		{"dns", errors.New("lookup raw.githubusercontent.com: no such host"), ErrorCategoryNetwork},
		{"other", errors.New("boom"), ErrorCategoryUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CategorizeError(tc.err); got != tc.want {
				t.Errorf("CategorizeError(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
