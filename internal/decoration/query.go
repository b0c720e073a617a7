package decoration

import "owlsight/internal/model"

// Select returns the local under pos across fns.
func Select(fns []model.Function, pos model.Loc) (model.FnLocal, bool) {
	sel := NewSelector(pos)
	for i := range fns {
		Walk(&fns[i], sel)
	}
	return sel.Selected()
}

// Query selects the local under pos and returns its resolved decorations.
// No selection yields an empty, non-nil list.
func Query(fns []model.Function, pos model.Loc) []Decoration {
	local, ok := Select(fns, pos)
	if !ok {
		return []Decoration{}
	}
	b := NewBuilder(local)
	for i := range fns {
		Walk(&fns[i], b)
	}
	b.Resolve()
	return b.Decorations()
}
