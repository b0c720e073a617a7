package model

// File is the list of analyzed functions of one source file.
type File struct {
	Items []Function `json:"items" msgpack:"items"`
}

// Crate maps file paths to their functions.
type Crate map[string]File

// Workspace maps crate names to crates.
type Workspace map[string]Crate

// Merge appends other's functions into f, keeping the first function seen
// for every fn id.
func (f *File) Merge(other File) {
	seen := make(map[uint32]struct{}, len(f.Items)+len(other.Items))
	items := make([]Function, 0, len(f.Items)+len(other.Items))
	for _, fn := range f.Items {
		if _, dup := seen[fn.FnID]; dup {
			continue
		}
		seen[fn.FnID] = struct{}{}
		items = append(items, fn)
	}
	for _, fn := range other.Items {
		if _, dup := seen[fn.FnID]; dup {
			continue
		}
		seen[fn.FnID] = struct{}{}
		items = append(items, fn)
	}
	f.Items = items
}

// Merge folds other into c file by file.
func (c Crate) Merge(other Crate) {
	for path, file := range other {
		cur := c[path]
		cur.Merge(file)
		c[path] = cur
	}
}

// Merge folds other into w crate by crate.
func (w Workspace) Merge(other Workspace) {
	for name, krate := range other {
		cur, ok := w[name]
		if !ok || cur == nil {
			cp := make(Crate, len(krate))
			cp.Merge(krate)
			w[name] = cp
			continue
		}
		cur.Merge(krate)
	}
}

// AddFunction appends fn under crate and path. Duplicate fn ids stay until
// the workspace is merged into another one.
func (w Workspace) AddFunction(crate, path string, fn Function) {
	krate := w[crate]
	if krate == nil {
		krate = make(Crate)
		w[crate] = krate
	}
	file := krate[path]
	file.Items = append(file.Items, fn)
	krate[path] = file
}

// FunctionCount returns the number of functions across all crates.
func (w Workspace) FunctionCount() int {
	n := 0
	for _, krate := range w {
		for _, file := range krate {
			n += len(file.Items)
		}
	}
	return n
}

// Functions returns every function recorded for path across all crates.
func (w Workspace) Functions(path string) []Function {
	var out []Function
	for _, krate := range w {
		if file, ok := krate[path]; ok {
			out = append(out, file.Items...)
		}
	}
	return out
}

// Clone returns a copy whose maps can be mutated independently.
func (w Workspace) Clone() Workspace {
	out := make(Workspace, len(w))
	out.Merge(w)
	return out
}
