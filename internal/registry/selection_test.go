package registry

import (
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/humanizer/internal/model"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	r := Default()

	testCases := []struct {
		name     string
		role     model.Role
		sel      Selection
		expected []string
		wantErr  error
	}{
		{
			name:     "all detectors",
			role:     model.RoleDetector,
			sel:      All(),
			expected: r.IDs(model.RoleDetector),
		},
		{
			name:     "selected keeps order and drops duplicates",
			role:     model.RoleDetector,
			sel:      Selected("mixed-detector", "chatgpt-detector", "mixed-detector"),
			expected: []string{"mixed-detector", "chatgpt-detector"},
		},
		{
			name:     "top n",
			role:     model.RoleDetector,
			sel:      TopN(2, ByPerformance),
			expected: []string{"chatgpt-detector", "roberta-large-openai-detector"},
		},
		{
			name:     "single",
			role:     model.RoleGenerator,
			sel:      Single("t5-base"),
			expected: []string{"t5-base"},
		},
		{
			name:    "unknown id",
			role:    model.RoleDetector,
			sel:     Selected("chatgpt-detector", "missing"),
			wantErr: model.ErrModelNotFound,
		},
		{
			name:    "wrong role",
			role:    model.RoleDetector,
			sel:     Single("t5-base"),
			wantErr: model.ErrInvalidInput,
		},
		{
			name:    "empty selected",
			role:    model.RoleDetector,
			sel:     Selected(),
			wantErr: model.ErrInvalidInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.ResolveIDs(tc.role, tc.sel)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tc.expected) {
				t.Errorf("got %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestParseSelection(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		ids       []string
		topN      int
		criterion string
		expected  SelectionKind
		wantErr   bool
	}{
		{name: "nothing", expected: SelectAll},
		{name: "blank ids ignored", ids: []string{" ", ""}, expected: SelectAll},
		{name: "one id", ids: []string{"a"}, expected: SelectSingle},
		{name: "many ids", ids: []string{"a", "b"}, expected: SelectIDs},
		{name: "ids win over top n", ids: []string{"a", "b"}, topN: 2, expected: SelectIDs},
		{name: "top n", topN: 2, criterion: "speed", expected: SelectTopN},
		{name: "bad criterion", topN: 2, criterion: "vibes", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sel, err := ParseSelection(tc.ids, tc.topN, tc.criterion)
			if tc.wantErr {
				if !errors.Is(err, model.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sel.Kind != tc.expected {
				t.Errorf("got %v, expected %v", sel.Kind, tc.expected)
			}
		})
	}
}
