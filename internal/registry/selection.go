package registry

import (
	"fmt"
	"strings"

	"github.com/nao1215/humanizer/internal/model"
)

// SelectionKind tells how a Selection picks models.
type SelectionKind int

const (
	// SelectAll picks every model of the role.
	SelectAll SelectionKind = iota
	// SelectIDs picks the listed models.
	SelectIDs
	// SelectTopN picks the N best models under a criterion.
	SelectTopN
	// SelectSingle picks exactly one model.
	SelectSingle
)

// String returns the selection kind name.
func (k SelectionKind) String() string {
	switch k {
	case SelectAll:
		return "all"
	case SelectIDs:
		return "selected"
	case SelectTopN:
		return "top_n"
	case SelectSingle:
		return "single"
	default:
		return "unknown"
	}
}

// Selection is a caller's choice of models, resolved against the registry
// once per request.
type Selection struct {
	Kind      SelectionKind
	IDs       []string
	N         int
	Criterion Criterion
}

// All selects every model of the role.
func All() Selection {
	return Selection{Kind: SelectAll}
}

// Selected selects the listed models in the given order.
func Selected(ids ...string) Selection {
	return Selection{Kind: SelectIDs, IDs: ids}
}

// TopN selects the n best models under criterion.
func TopN(n int, criterion Criterion) Selection {
	return Selection{Kind: SelectTopN, N: n, Criterion: criterion}
}

// Single selects exactly one model.
func Single(id string) Selection {
	return Selection{Kind: SelectSingle, IDs: []string{id}}
}

// ParseSelection builds a Selection from loosely typed request fields.
// ids take precedence over topN; neither selects every model.
func ParseSelection(ids []string, topN int, criterion string) (Selection, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}

	switch {
	case len(cleaned) == 1:
		return Single(cleaned[0]), nil
	case len(cleaned) > 1:
		return Selected(cleaned...), nil
	case topN > 0:
		c, err := ParseCriterion(criterion)
		if err != nil {
			return Selection{}, err
		}
		return TopN(topN, c), nil
	default:
		return All(), nil
	}
}

// Resolve turns sel into a de-duplicated list of descriptors of role.
// Unknown ids fail with model.ErrModelNotFound, ids of another role with
// model.ErrInvalidInput.
func (r *Registry) Resolve(role model.Role, sel Selection) ([]model.ModelDescriptor, error) {
	switch sel.Kind {
	case SelectAll:
		return r.List(role), nil
	case SelectTopN:
		return r.TopN(role, sel.N, sel.Criterion)
	case SelectSingle, SelectIDs:
		if len(sel.IDs) == 0 {
			return nil, model.InvalidInput("no %s selected", role)
		}
		if sel.Kind == SelectSingle && len(sel.IDs) != 1 {
			return nil, model.InvalidInput("single selection needs exactly one id, got %d", len(sel.IDs))
		}
		out := make([]model.ModelDescriptor, 0, len(sel.IDs))
		seen := make(map[string]struct{}, len(sel.IDs))
		for _, id := range sel.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			d, err := r.Get(id)
			if err != nil {
				return nil, err
			}
			if d.Role != role {
				return nil, &model.Error{
					Kind:    model.ErrInvalidInput,
					ModelID: id,
					Err:     fmt.Errorf("model is a %s, not a %s", d.Role, role),
				}
			}
			out = append(out, d)
		}
		return out, nil
	default:
		return nil, model.InvalidInput("unknown selection kind %d", sel.Kind)
	}
}

// ResolveIDs is Resolve returning ids only.
func (r *Registry) ResolveIDs(role model.Role, sel Selection) ([]string, error) {
	list, err := r.Resolve(role, sel)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list))
	for i, d := range list {
		ids[i] = d.ID
	}
	return ids, nil
}
