package renamer

import (
	"fmt"
	"strconv"

	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_lexer"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Returns the names no renamed symbol may take in output that contains the
// given files. The count is used as the starting suffix by NumberRenamer.
func ComputeReservedNames(symbols js_ast.SymbolMap, sourceIndices []uint32) map[string]uint32 {
	names := make(map[string]uint32)

	// All keywords and strict mode reserved words are reserved names
	for k := range js_lexer.Keywords {
		names[k] = 1
	}
	for k := range js_lexer.StrictModeReservedWords {
		names[k] = 1
	}
	names["arguments"] = 1
	names["eval"] = 1

	// All unbound symbols must be reserved names, and so must every name that
	// is visible to a direct "eval" or a "with" statement
	for _, sourceIndex := range sourceIndices {
		for _, symbol := range symbols.Outer[sourceIndex] {
			if symbol.Kind == js_ast.SymbolUnbound || symbol.MustNotBeRenamed {
				names[symbol.OriginalName] = 1
			}
		}
	}

	return names
}

type Renamer interface {
	NameForSymbol(ref js_ast.Ref) string
}

func canBeRenamed(symbol *js_ast.Symbol) bool {
	return symbol.Kind != js_ast.SymbolUnbound && symbol.Kind != js_ast.SymbolLabel && !symbol.MustNotBeRenamed
}

////////////////////////////////////////////////////////////////////////////////
// noOpRenamer

type noOpRenamer struct {
	symbols js_ast.SymbolMap
}

func NewNoOpRenamer(symbols js_ast.SymbolMap) Renamer {
	return &noOpRenamer{
		symbols: symbols,
	}
}

func (r *noOpRenamer) NameForSymbol(ref js_ast.Ref) string {
	ref = js_ast.FollowSymbols(r.symbols, ref)
	return r.symbols.Get(ref).OriginalName
}

////////////////////////////////////////////////////////////////////////////////
// MinifyRenamer

type symbolSlot struct {
	name  string
	count uint32
}

// MinifyRenamer gives every renamable symbol a numbered slot and then gives
// the most used slots the shortest names. Top-level symbols each get their
// own slot. Symbols in nested scopes number their slots starting after every
// top-level slot and after the slots of their enclosing scopes, so sibling
// scopes share slots and a nested name never shadows an outer one.
type MinifyRenamer struct {
	symbols       js_ast.SymbolMap
	reservedNames map[string]uint32
	pinnedNames   map[js_ast.Ref]string
	symbolToSlot  map[js_ast.Ref]uint32
	slots         []symbolSlot
}

func NewMinifyRenamer(symbols js_ast.SymbolMap, reservedNames map[string]uint32) *MinifyRenamer {
	reserved := make(map[string]uint32, len(reservedNames))
	for name, count := range reservedNames {
		reserved[name] = count
	}
	return &MinifyRenamer{
		symbols:       symbols,
		reservedNames: reserved,
		pinnedNames:   make(map[js_ast.Ref]string),
		symbolToSlot:  make(map[js_ast.Ref]uint32),
	}
}

func (r *MinifyRenamer) NameForSymbol(ref js_ast.Ref) string {
	// Follow links to get to the underlying symbol
	ref = js_ast.FollowSymbols(r.symbols, ref)

	if name, ok := r.pinnedNames[ref]; ok {
		return name
	}

	i, ok := r.symbolToSlot[ref]
	if !ok {
		// Unbound and pinned symbols keep their name. So do symbols that were
		// never declared in a collected scope, which only happens to dead code.
		return r.symbols.Get(ref).OriginalName
	}
	return r.slots[i].name
}

// Gives a symbol a fixed name and keeps every other symbol from using it.
// This must be called before AssignNamesByFrequency.
func (r *MinifyRenamer) PinName(ref js_ast.Ref, name string) {
	ref = js_ast.FollowSymbols(r.symbols, ref)
	r.pinnedNames[ref] = name
	r.reservedNames[name] = 1
}

func (r *MinifyRenamer) isAssigned(ref js_ast.Ref) bool {
	if _, ok := r.pinnedNames[ref]; ok {
		return true
	}
	_, ok := r.symbolToSlot[ref]
	return ok
}

func (r *MinifyRenamer) AddTopLevelSymbol(ref js_ast.Ref) {
	ref = js_ast.FollowSymbols(r.symbols, ref)
	symbol := r.symbols.Get(ref)
	if !canBeRenamed(symbol) || r.isAssigned(ref) {
		return
	}
	i := uint32(len(r.slots))
	r.slots = append(r.slots, symbolSlot{count: symbol.UseCountEstimate + 1})
	r.symbolToSlot[ref] = i
}

// Assigns slots to the symbols of every nested scope. Every top-level symbol
// must have been added or pinned before this is called.
func (r *MinifyRenamer) AssignNestedScopeSlots(moduleScopes []*Scope) {
	first := uint32(len(r.slots))
	for _, moduleScope := range moduleScopes {
		for _, child := range moduleScope.Children {
			r.assignNestedScopeSlotsHelper(child, first)
		}
	}
}

func (r *MinifyRenamer) assignNestedScopeSlotsHelper(scope *Scope, slot uint32) {
	for _, ref := range scope.Members {
		ref = js_ast.FollowSymbols(r.symbols, ref)
		symbol := r.symbols.Get(ref)
		if !canBeRenamed(symbol) || r.isAssigned(ref) {
			continue
		}
		for uint32(len(r.slots)) <= slot {
			r.slots = append(r.slots, symbolSlot{})
		}
		r.symbolToSlot[ref] = slot
		r.slots[slot].count += symbol.UseCountEstimate + 1
		slot++
	}

	for _, child := range scope.Children {
		r.assignNestedScopeSlotsHelper(child, slot)
	}
}

func (r *MinifyRenamer) AssignNamesByFrequency() {
	// Sort slots by count, most used first
	sorted := make([]uint32, len(r.slots))
	for i := range sorted {
		sorted[i] = uint32(i)
	}
	slices.SortStableFunc(sorted, func(a uint32, b uint32) int {
		ca, cb := r.slots[a].count, r.slots[b].count
		if ca != cb {
			if ca > cb {
				return -1
			}
			return 1
		}
		return int(a) - int(b)
	})

	// Assign names to slots, never generating a reserved name
	nextName := 0
	for _, slot := range sorted {
		name := js_lexer.NumberToMinifiedName(nextName)
		nextName++
		for r.reservedNames[name] != 0 {
			name = js_lexer.NumberToMinifiedName(nextName)
			nextName++
		}
		r.slots[slot].name = name
	}
}

// Builds the renamer used to print a single file with shortened names.
// Top-level symbols keep their names unless "minifyTopLevel" is set, and
// exported symbols always keep them.
func MinifyFile(tree *js_ast.AST, symbols js_ast.SymbolMap, sourceIndex uint32, minifyTopLevel bool) *MinifyRenamer {
	r := NewMinifyRenamer(symbols, ComputeReservedNames(symbols, []uint32{sourceIndex}))

	exported := make(map[js_ast.Ref]bool, len(tree.NamedExports))
	for _, export := range tree.NamedExports {
		exported[js_ast.FollowSymbols(symbols, export.Ref)] = true
	}

	moduleScope := CollectScopes(tree, symbols)
	for _, ref := range moduleScope.Members {
		ref = js_ast.FollowSymbols(symbols, ref)
		if !minifyTopLevel || exported[ref] {
			r.PinName(ref, symbols.Get(ref).OriginalName)
		} else {
			r.AddTopLevelSymbol(ref)
		}
	}
	r.AssignNestedScopeSlots([]*Scope{moduleScope})
	r.AssignNamesByFrequency()
	return r
}

////////////////////////////////////////////////////////////////////////////////
// NumberRenamer

// NumberRenamer avoids collisions between files that are printed into the
// same output. The first symbol to claim a name keeps it and later ones get
// "name2", "name3" and so on.
type NumberRenamer struct {
	symbols     js_ast.SymbolMap
	names       [][]string
	root        numberScope
	maxAttempts int
}

func NewNumberRenamer(symbols js_ast.SymbolMap, reservedNames map[string]uint32, maxAttempts int) *NumberRenamer {
	nameCounts := make(map[string]uint32, len(reservedNames))
	for name, count := range reservedNames {
		nameCounts[name] = count
	}
	return &NumberRenamer{
		symbols:     symbols,
		names:       make([][]string, len(symbols.Outer)),
		root:        numberScope{nameCounts: nameCounts},
		maxAttempts: maxAttempts,
	}
}

func (r *NumberRenamer) NameForSymbol(ref js_ast.Ref) string {
	ref = js_ast.FollowSymbols(r.symbols, ref)
	if inner := r.names[ref.SourceIndex]; inner != nil {
		if name := inner[ref.InnerIndex]; name != "" {
			return name
		}
	}
	return r.symbols.Get(ref).OriginalName
}

func (r *NumberRenamer) AddTopLevelSymbol(ref js_ast.Ref) error {
	return r.assignName(&r.root, ref)
}

func (r *NumberRenamer) assignName(scope *numberScope, ref js_ast.Ref) error {
	ref = js_ast.FollowSymbols(r.symbols, ref)

	// Don't rename the same symbol more than once
	inner := r.names[ref.SourceIndex]
	if inner != nil && inner[ref.InnerIndex] != "" {
		return nil
	}

	// Don't rename unbound symbols, symbols marked as reserved names, or labels
	symbol := r.symbols.Get(ref)
	if !canBeRenamed(symbol) {
		return nil
	}

	// Compute a new name
	name, ok := scope.findUnusedName(symbol.OriginalName, r.maxAttempts)
	if !ok {
		return fmt.Errorf("Could not find an unused name for %q after %d attempts", symbol.OriginalName, r.maxAttempts)
	}

	// Store the new name. Nested scopes are renamed in parallel but only
	// ever touch symbols from their own file.
	if inner == nil {
		inner = make([]string, len(r.symbols.Outer[ref.SourceIndex]))
		r.names[ref.SourceIndex] = inner
	}
	inner[ref.InnerIndex] = name
	return nil
}

func (r *NumberRenamer) assignNamesRecursive(scope *Scope, parent *numberScope) error {
	s := &numberScope{parent: parent, nameCounts: make(map[string]uint32)}

	// Rename all symbols in this scope
	for _, ref := range scope.Members {
		if err := r.assignName(s, ref); err != nil {
			return err
		}
	}

	// Symbols in child scopes may also have to be renamed to avoid conflicts
	for _, child := range scope.Children {
		if err := r.assignNamesRecursive(child, s); err != nil {
			return err
		}
	}
	return nil
}

// Renames the nested scopes of each file. Every top-level symbol must have
// been added before this is called. Files are renamed in parallel.
func (r *NumberRenamer) AssignNamesByScope(moduleScopes []*Scope) error {
	group := errgroup.Group{}
	for _, moduleScope := range moduleScopes {
		moduleScope := moduleScope
		group.Go(func() error {
			for _, child := range moduleScope.Children {
				if err := r.assignNamesRecursive(child, &r.root); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return group.Wait()
}

type numberScope struct {
	parent *numberScope

	// This is used as a set of used names in this scope. This also maps the name
	// to the number of times the name has experienced a collision. When a name
	// collides with an already-used name, we need to rename it. This is done by
	// incrementing a number at the end until the name is unused. We save the
	// count here so that subsequent collisions can start counting from where the
	// previous collision ended instead of having to start counting from 1.
	nameCounts map[string]uint32
}

type nameUse uint8

const (
	nameUnused nameUse = iota
	nameUsed
	nameUsedInSameScope
)

func (s *numberScope) findNameUse(name string) nameUse {
	original := s
	for {
		if _, ok := s.nameCounts[name]; ok {
			if s == original {
				return nameUsedInSameScope
			}
			return nameUsed
		}
		s = s.parent
		if s == nil {
			return nameUnused
		}
	}
}

func (s *numberScope) findUnusedName(name string, maxAttempts int) (string, bool) {
	if use := s.findNameUse(name); use != nameUnused {
		// If the name is already in use, generate a new name by appending a number
		tries := uint32(1)
		if use == nameUsedInSameScope {
			// Start from the number used by the last collision with this name in
			// the same scope. Sibling scopes can reuse names so they start over.
			tries = s.nameCounts[name]
		}
		prefix := name

		// Keep incrementing the number until the name is unused
		for attempts := 1; ; attempts++ {
			if attempts > maxAttempts {
				return "", false
			}
			tries++
			name = prefix + strconv.Itoa(int(tries))

			if s.findNameUse(name) == nameUnused {
				if use == nameUsedInSameScope {
					s.nameCounts[prefix] = tries
				}
				break
			}
		}
	}

	// Each name starts off with a count of 1 so that the first collision with
	// "name" is called "name2"
	s.nameCounts[name] = 1
	return name, true
}

////////////////////////////////////////////////////////////////////////////////
// ExportRenamer

// ExportRenamer picks the names a chunk uses to export symbols to other
// chunks. Names only have to be unique within one chunk's export clause.
type ExportRenamer struct {
	count int
	used  map[string]uint32
}

func (r *ExportRenamer) NextRenamedName(name string) string {
	if r.used == nil {
		r.used = make(map[string]uint32)
	}
	if tries, ok := r.used[name]; ok {
		prefix := name
		for {
			tries++
			name = prefix + strconv.Itoa(int(tries))
			if _, ok := r.used[name]; !ok {
				break
			}
		}
		r.used[prefix] = tries
		r.used[name] = 1
	} else {
		r.used[name] = 1
	}
	return name
}

func (r *ExportRenamer) NextMinifiedName() string {
	name := js_lexer.NumberToMinifiedName(r.count)
	r.count++
	return name
}
