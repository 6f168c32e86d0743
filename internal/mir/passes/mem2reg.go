package passes

import (
	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// Mem2RegStats mirrors the reference compiler's promotion diagnostics:
// user-visible counts of what the pass actually did, asserted on
// directly by tests rather than inferred from the transformed MIR.
type Mem2RegStats struct {
	Promoted       int
	StoresRemoved  int
	LoadsRemoved   int
	PhisInserted   int
}

// Mem2Reg promotes single-slot FrameAlloc allocations accessed only
// through direct Load/Store (and zero-offset GetElementPtr aliases) into
// SSA values, following spec's restriction to size_of == 1 allocations:
// multi-slot allocations are left untouched whenever any access to them
// is partial.
type Mem2Reg struct {
	Stats Mem2RegStats
}

func (*Mem2Reg) Name() string { return "mem2reg" }

func (p *Mem2Reg) Run(fn *mir.Function) (bool, error) {
	allocs := findSingleSlotAllocs(fn)
	if len(allocs) == 0 {
		return false, nil
	}
	aliases := aliasClosure(fn, allocs)
	promotable := map[mir.ValueID]bool{}
	for allocDest := range allocs {
		if !escapes(fn, allocDest, aliases) {
			promotable[allocDest] = true
		}
	}
	if len(promotable) == 0 {
		return false, nil
	}

	b := mir.NewBuilderFor(fn)
	vars := make(map[mir.ValueID]mir.Variable, len(promotable))
	for allocDest, ty := range allocs {
		if promotable[allocDest] {
			vars[allocDest] = b.DeclareVariable(ty)
		}
	}

	rootOf := func(addr mir.ValueID) (mir.ValueID, bool) {
		root := addr
		if r, ok := aliases[addr]; ok {
			root = r
		}
		_, ok := promotable[root]
		return root, ok
	}

	changed := false
	for _, id := range fn.ReversePostorder() {
		blk := fn.Block(id)
		b.SetCurrentBlock(id)
		var kept []mir.Instruction
		for _, inst := range blk.Instructions {
			switch in := inst.(type) {
			case *mir.FrameAlloc:
				if promotable[in.Dest] {
					changed = true
					p.Stats.Promoted++
					continue // drop the allocation entirely
				}
			case *mir.Store:
				if !in.Address.IsLiteral() {
					if root, ok := rootOf(in.Address.ID()); ok {
						v := vars[root]
						if in.Value.IsLiteral() {
							tmp := fn.NewValue(in.Type)
							kept = append(kept, &mir.Assign{Dest: tmp, Source: in.Value, Type: in.Type})
							b.WriteVariable(v, id, tmp)
						} else {
							b.WriteVariable(v, id, in.Value.ID())
						}
						changed = true
						p.Stats.StoresRemoved++
						continue
					}
				}
			case *mir.Load:
				if !in.Address.IsLiteral() {
					if root, ok := rootOf(in.Address.ID()); ok {
						v := vars[root]
						cur := b.ReadVariable(v, id)
						kept = append(kept, &mir.Assign{Dest: in.Dest, Source: mir.Operand(cur), Type: in.Type})
						changed = true
						p.Stats.LoadsRemoved++
						continue
					}
				}
			}
			kept = append(kept, inst)
		}
		blk.Instructions = kept
	}

	p.Stats.PhisInserted += b.NumPhisCreated()
	return changed, nil
}

// findSingleSlotAllocs returns every FrameAlloc in fn whose type occupies
// exactly one slot, keyed by its destination ValueID.
func findSingleSlotAllocs(fn *mir.Function) map[mir.ValueID]mirtypes.Type {
	out := make(map[mir.ValueID]mirtypes.Type)
	for _, blk := range fn.Blocks() {
		for _, inst := range blk.Instructions {
			if alloc, ok := inst.(*mir.FrameAlloc); ok && mirtypes.SizeOf(alloc.Type) == 1 {
				out[alloc.Dest] = alloc.Type
			}
		}
	}
	return out
}

// aliasClosure maps the destination of any zero-offset GetElementPtr on a
// candidate allocation's pointer back to that allocation's root id, so
// Load/Store through the alias are treated identically to the original
// pointer.
func aliasClosure(fn *mir.Function, allocs map[mir.ValueID]mirtypes.Type) map[mir.ValueID]mir.ValueID {
	aliases := make(map[mir.ValueID]mir.ValueID)
	changed := true
	for changed {
		changed = false
		for _, blk := range fn.Blocks() {
			for _, inst := range blk.Instructions {
				gep, ok := inst.(*mir.GetElementPtr)
				if !ok || gep.Base.IsLiteral() || !gep.Index.IsLiteral() || gep.Index.Literal().AsInt() != 0 {
					continue
				}
				base := gep.Base.ID()
				root := base
				if r, ok := aliases[base]; ok {
					root = r
				}
				if _, isAlloc := allocs[root]; !isAlloc {
					continue
				}
				if aliases[gep.Dest] != root {
					aliases[gep.Dest] = root
					changed = true
				}
			}
		}
	}
	return aliases
}

// escapes reports whether allocDest's pointer (or any zero-offset alias
// of it) is used anywhere other than as the address of a Load, the
// address of a Store, or the base of a zero-offset GetElementPtr.
func escapes(fn *mir.Function, allocDest mir.ValueID, aliases map[mir.ValueID]mir.ValueID) bool {
	isAliasOf := func(id mir.ValueID) bool {
		if id == allocDest {
			return true
		}
		return aliases[id] == allocDest
	}
	for _, blk := range fn.Blocks() {
		for _, inst := range blk.Instructions {
			switch in := inst.(type) {
			case *mir.FrameAlloc:
				continue
			case *mir.Load:
				if !in.Address.IsLiteral() && isAliasOf(in.Address.ID()) {
					continue
				}
			case *mir.Store:
				if !in.Address.IsLiteral() && isAliasOf(in.Address.ID()) {
					continue
				}
				if !in.Value.IsLiteral() && isAliasOf(in.Value.ID()) {
					return true // the pointer itself was stored as a value: escapes
				}
				continue
			case *mir.GetElementPtr:
				if !in.Base.IsLiteral() && isAliasOf(in.Base.ID()) && in.Index.IsLiteral() && in.Index.Literal().AsInt() == 0 {
					continue
				}
			}
			for _, used := range inst.UsedValues() {
				if isAliasOf(used) {
					return true
				}
			}
		}
		if term, ok := blk.Terminator.(*mir.If); ok {
			if !term.Cond.IsLiteral() && isAliasOf(term.Cond.ID()) {
				return true
			}
		}
		if term, ok := blk.Terminator.(*mir.Return); ok {
			for _, v := range term.Values {
				if !v.IsLiteral() && isAliasOf(v.ID()) {
					return true
				}
			}
		}
	}
	return false
}
