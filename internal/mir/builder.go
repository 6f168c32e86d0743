package mir

import "zkcasm/internal/mirtypes"

// Variable names a source-level local across its lifetime (possibly many
// SSA values). The frontend declares one Variable per let-binding /
// parameter / loop-induction variable and drives construction through
// WriteVariable/ReadVariable/SealBlock; Builder turns that imperative
// trace into SSA with phis at join points following Braun et al.'s
// on-the-fly algorithm.
type Variable int

// Builder constructs a single Function's body. It is not safe for
// concurrent use; one Builder is created per function being lowered.
type Builder struct {
	fn      *Function
	current BasicBlockID

	// defs[v][b] is the current definition of v at the end of block b.
	defs map[Variable]map[BasicBlockID]ValueID

	varTypes map[Variable]mirtypes.Type

	// phiOwner maps the placeholder ValueID of an incomplete or completed
	// phi back to the Variable it was created for, so addPhiOperands and
	// trivial-phi removal can find the variable's other definitions.
	phiOwner map[ValueID]Variable

	nextVar Variable

	// createdPhis counts net phi instructions this Builder has inserted
	// (incremented on insertion, decremented when trivial-phi removal
	// folds one away), exposed for passes that report statistics.
	createdPhis int
}

// NumPhisCreated returns the net count of phi instructions this Builder
// has inserted and not since simplified away.
func (b *Builder) NumPhisCreated() int { return b.createdPhis }

// NewBuilder creates a Builder over a freshly constructed Function, whose
// entry block is the initial current block. Callers must Seal the entry
// block once they are certain no further predecessor will be added to it
// (always true for entry, since it has none).
func NewBuilder(name string, params []Param, returns []mirtypes.Type) *Builder {
	fn := NewFunction(name, params, returns)
	b := &Builder{
		fn:       fn,
		current:  fn.Entry,
		defs:     make(map[Variable]map[BasicBlockID]ValueID),
		varTypes: make(map[Variable]mirtypes.Type),
		phiOwner: make(map[ValueID]Variable),
	}
	return b
}

// NewBuilderFor wraps an already-constructed Function for a second round
// of variable-based SSA construction, used by mem2reg to promote
// FrameAlloc slots into fresh SSA variables without re-lowering the
// function from source. The wrapped function's existing blocks and their
// Sealed flags are reused as-is.
func NewBuilderFor(fn *Function) *Builder {
	return &Builder{
		fn:       fn,
		current:  fn.Entry,
		defs:     make(map[Variable]map[BasicBlockID]ValueID),
		varTypes: make(map[Variable]mirtypes.Type),
		phiOwner: make(map[ValueID]Variable),
	}
}

// Function returns the function under construction.
func (b *Builder) Function() *Function { return b.fn }

// CurrentBlock returns the block new instructions are appended to.
func (b *Builder) CurrentBlock() BasicBlockID { return b.current }

// SetCurrentBlock redirects instruction insertion to block.
func (b *Builder) SetCurrentBlock(block BasicBlockID) { b.current = block }

// NewBlock allocates a fresh unsealed block without changing the current
// block.
func (b *Builder) NewBlock(name string) BasicBlockID { return b.fn.NewBlock(name) }

// DeclareVariable introduces a new source-level variable of type t.
func (b *Builder) DeclareVariable(t mirtypes.Type) Variable {
	v := b.nextVar
	b.nextVar++
	b.varTypes[v] = t
	b.defs[v] = make(map[BasicBlockID]ValueID)
	return v
}

// Emit appends inst to the current block.
func (b *Builder) Emit(inst Instruction) {
	b.fn.Block(b.current).Append(inst)
}

// SetTerminator installs term as the current block's terminator and
// records the resulting CFG edges. Must be called exactly once per block.
func (b *Builder) SetTerminator(term Terminator) {
	blk := b.fn.Block(b.current)
	blk.Terminator = term
	for _, target := range term.Targets() {
		b.fn.AddEdge(b.current, target)
	}
}

// AddEdge records an additional predecessor edge without touching the
// terminator, used when the frontend builds the CFG shape before wiring
// phi-bearing variable reads (e.g. loop headers revisited after the body
// is lowered).
func (b *Builder) AddEdge(pred, succ BasicBlockID) { b.fn.AddEdge(pred, succ) }

// WriteVariable records value as v's current definition at the end of
// block.
func (b *Builder) WriteVariable(v Variable, block BasicBlockID, value ValueID) {
	b.defs[v][block] = value
}

// ReadVariable returns v's reaching definition at the end of block,
// inserting phis at join points as needed (Braun et al., spec-aligned
// with read_variable).
func (b *Builder) ReadVariable(v Variable, block BasicBlockID) ValueID {
	if val, ok := b.defs[v][block]; ok {
		return val
	}
	return b.readVariableRecursive(v, block)
}

func (b *Builder) readVariableRecursive(v Variable, block BasicBlockID) ValueID {
	blk := b.fn.Block(block)
	var val ValueID

	if !blk.Sealed {
		// Block not yet sealed: we don't know all its predecessors, so we
		// cannot resolve this read yet. Insert an incomplete phi as a
		// placeholder and record it for seal_block to complete later.
		val = b.newPhiPlaceholder(v, block)
		blk.incompletePhis[varKey(v)] = val
	} else if preds := blk.Preds(); len(preds) == 1 {
		// Single predecessor: no phi needed, just recurse.
		val = b.ReadVariable(v, preds[0])
	} else if len(preds) == 0 {
		// No predecessors and no local def: the variable is read before
		// any definition reaches this point. The frontend is responsible
		// for never doing this for well-formed programs; return a
		// placeholder phi of the variable's declared type with zero
		// sources rather than panicking here.
		val = b.newPhiPlaceholder(v, block)
	} else {
		// Multiple predecessors: insert a phi up front (breaks cycles in
		// recursive reads through loop back-edges), record the definition,
		// then fill in operands from every predecessor.
		val = b.newPhiPlaceholder(v, block)
		b.WriteVariable(v, block, val)
		val = b.addPhiOperands(v, block, val)
	}
	b.WriteVariable(v, block, val)
	return val
}

func varKey(v Variable) string {
	// Variable is already a dense int; using it directly as a map key
	// would work too, but incompletePhis is keyed by string in BasicBlock
	// to stay decoupled from the Variable type defined in this package.
	return "var" + intToString(int(v))
}

func intToString(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (b *Builder) newPhiPlaceholder(v Variable, block BasicBlockID) ValueID {
	t := b.varTypes[v]
	id := b.fn.NewValue(t)
	phi := &Phi{Dest: id, Type: t}
	b.fn.Block(block).PrependPhi(phi)
	b.phiOwner[id] = v
	b.createdPhis++
	return id
}

func (b *Builder) findPhi(block BasicBlockID, dest ValueID) *Phi {
	for _, p := range b.fn.Block(block).Phis() {
		if p.Dest == dest {
			return p
		}
	}
	return nil
}

// addPhiOperands fills in one source per predecessor of block for the
// phi already recorded as v's tentative definition there, then attempts
// trivial-phi removal.
func (b *Builder) addPhiOperands(v Variable, block BasicBlockID, phiVal ValueID) ValueID {
	phi := b.findPhi(block, phiVal)
	for _, pred := range b.fn.Block(block).Preds() {
		src := b.ReadVariable(v, pred)
		phi.Sources = append(phi.Sources, PhiSource{Pred: pred, Value: Operand(src)})
	}
	return b.tryRemoveTrivialPhi(phi)
}

// tryRemoveTrivialPhi implements Braun et al.'s trivial-phi removal: a
// phi whose non-self operands all reduce to a single value (or only to
// itself) is redundant and is replaced everywhere by that value.
func (b *Builder) tryRemoveTrivialPhi(phi *Phi) ValueID {
	same := InvalidValueID
	for _, src := range phi.Sources {
		if src.Value.IsLiteral() {
			// A literal source can never equal an operand "same"; a phi
			// with a literal among otherwise-identical operand sources is
			// non-trivial unless every source is that same literal, which
			// this simplified pass does not attempt to detect.
			return phi.Dest
		}
		if src.Value.ID() == phi.Dest || src.Value.ID() == same {
			continue // unique value or self-reference
		}
		if same.Valid() {
			return phi.Dest // merges at least two distinct values: non-trivial
		}
		same = src.Value.ID()
	}
	if !same.Valid() {
		// Phi is unreachable or has no predecessors; leave as-is for the
		// validator to report rather than inventing a value.
		return phi.Dest
	}

	owner := b.phiOwner[phi.Dest]
	users := b.phiUsers(phi.Dest)
	b.replaceAllUses(phi.Dest, same)
	b.removePhi(phi)
	b.createdPhis--

	// Any definition that pointed at this phi's ValueID now points at its
	// replacement, so later ReadVariable calls resolve directly.
	for block, defs := range b.defs[owner] {
		if defs == phi.Dest {
			b.defs[owner][block] = same
		}
	}

	// Removing this phi may have made one of its phi users trivial too
	// (classic diamond-of-phis collapse); recheck them.
	for _, u := range users {
		if p := b.phiByDest(u); p != nil {
			b.tryRemoveTrivialPhi(p)
		}
	}
	return same
}

// phiUsers returns the ValueIDs of phis (anywhere in the function) that
// use dest as one of their sources.
func (b *Builder) phiUsers(dest ValueID) []ValueID {
	var out []ValueID
	for _, blk := range b.fn.Blocks() {
		for _, p := range blk.Phis() {
			if p.Dest == dest {
				continue
			}
			for _, s := range p.Sources {
				if !s.Value.IsLiteral() && s.Value.ID() == dest {
					out = append(out, p.Dest)
					break
				}
			}
		}
	}
	return out
}

func (b *Builder) phiByDest(dest ValueID) *Phi {
	for _, blk := range b.fn.Blocks() {
		for _, p := range blk.Phis() {
			if p.Dest == dest {
				return p
			}
		}
	}
	return nil
}

// replaceAllUses rewrites every operand equal to old to new across the
// whole function, including phi sources and terminator conditions.
func (b *Builder) replaceAllUses(old, new ValueID) {
	for _, blk := range b.fn.Blocks() {
		for _, inst := range blk.Instructions {
			inst.ReplaceUses(old, new)
		}
		if ifTerm, ok := blk.Terminator.(*If); ok {
			if !ifTerm.Cond.IsLiteral() && ifTerm.Cond.ID() == old {
				ifTerm.Cond = Operand(new)
			}
		}
		if ret, ok := blk.Terminator.(*Return); ok {
			for i, v := range ret.Values {
				if !v.IsLiteral() && v.ID() == old {
					ret.Values[i] = Operand(new)
				}
			}
		}
	}
}

// removePhi deletes phi from its owning block's instruction list.
func (b *Builder) removePhi(phi *Phi) {
	for _, blk := range b.fn.Blocks() {
		for i, inst := range blk.Instructions {
			if p, ok := inst.(*Phi); ok && p == phi {
				blk.RemoveInstructionAt(i)
				return
			}
		}
	}
}

// SealBlock marks block as sealed: all of its predecessors are now known,
// so any incomplete phis recorded while it was unsealed can be completed.
func (b *Builder) SealBlock(block BasicBlockID) {
	blk := b.fn.Block(block)
	for varStr, phiVal := range blk.incompletePhis {
		v := b.variableForKey(varStr)
		b.addPhiOperands(v, block, phiVal)
	}
	blk.incompletePhis = make(map[string]ValueID)
	blk.Sealed = true
}

func (b *Builder) variableForKey(key string) Variable {
	for v := Variable(0); v < b.nextVar; v++ {
		if varKey(v) == key {
			return v
		}
	}
	panic("mir: unknown variable key " + key)
}
