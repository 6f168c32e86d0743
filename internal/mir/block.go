package mir

import (
	"fmt"
	"strings"
)

// BasicBlockID is a dense, per-function basic block identifier.
type BasicBlockID int

const InvalidBasicBlockID BasicBlockID = -1

func (b BasicBlockID) Valid() bool { return b >= 0 }

func (b BasicBlockID) String() string {
	if !b.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("bb%d", int(b))
}

// Terminator ends a BasicBlock. Every block has exactly one.
type Terminator interface {
	// Targets returns the block's successors in terminator order.
	Targets() []BasicBlockID
	// ReplaceTarget rewrites any occurrence of old to new. Used when
	// splitting critical edges or removing dead blocks.
	ReplaceTarget(old, new BasicBlockID)
	String() string
}

// Jump is an unconditional branch.
type Jump struct {
	Target BasicBlockID
}

func (j *Jump) Targets() []BasicBlockID { return []BasicBlockID{j.Target} }
func (j *Jump) ReplaceTarget(old, new BasicBlockID) {
	if j.Target == old {
		j.Target = new
	}
}
func (j *Jump) String() string { return fmt.Sprintf("jump %s", j.Target) }

// If is a two-way conditional branch on a Bool-typed condition value.
type If struct {
	Cond       Value
	Then, Else BasicBlockID
}

func (i *If) Targets() []BasicBlockID { return []BasicBlockID{i.Then, i.Else} }
func (i *If) ReplaceTarget(old, new BasicBlockID) {
	if i.Then == old {
		i.Then = new
	}
	if i.Else == old {
		i.Else = new
	}
}
func (i *If) String() string {
	return fmt.Sprintf("if %s then %s else %s", i.Cond, i.Then, i.Else)
}

// Return exits the function with zero or more values.
type Return struct {
	Values []Value
}

func (r *Return) Targets() []BasicBlockID          { return nil }
func (r *Return) ReplaceTarget(old, new BasicBlockID) {}
func (r *Return) String() string {
	parts := make([]string, len(r.Values))
	for i, v := range r.Values {
		parts[i] = v.String()
	}
	return "return " + strings.Join(parts, ", ")
}

// Unreachable marks a block that control flow can never reach at
// runtime (e.g. after a proven-exhaustive match). Codegen may emit a
// trap or simply omit code.
type Unreachable struct{}

func (u *Unreachable) Targets() []BasicBlockID          { return nil }
func (u *Unreachable) ReplaceTarget(old, new BasicBlockID) {}
func (u *Unreachable) String() string                   { return "unreachable" }

// BasicBlock is a sequence of non-terminator instructions followed by
// exactly one terminator.
type BasicBlock struct {
	ID           BasicBlockID
	Name         string
	Instructions []Instruction
	Terminator   Terminator

	// preds is the predecessor set, recorded in first-seen order so that
	// Phi source order and iteration order are deterministic.
	preds []BasicBlockID

	// Sealed is used during SSA construction: a block is sealed once all
	// of its predecessors are known, at which point any incomplete phis
	// recorded in it can be completed.
	Sealed bool

	// incompletePhis maps a source-language variable name to the
	// ValueID of a placeholder Phi inserted because this block was not
	// yet sealed when the variable was read. Completed by Builder.Seal.
	incompletePhis map[string]ValueID
}

func newBasicBlock(id BasicBlockID, name string) *BasicBlock {
	return &BasicBlock{
		ID:             id,
		Name:           name,
		incompletePhis: make(map[string]ValueID),
	}
}

// Preds returns the block's predecessor set in first-seen order.
func (b *BasicBlock) Preds() []BasicBlockID {
	return b.preds
}

// addPred records pred as a predecessor if not already present.
func (b *BasicBlock) addPred(pred BasicBlockID) {
	for _, p := range b.preds {
		if p == pred {
			return
		}
	}
	b.preds = append(b.preds, pred)
}

// removePred drops pred from the predecessor set.
func (b *BasicBlock) removePred(pred BasicBlockID) {
	for i, p := range b.preds {
		if p == pred {
			b.preds = append(b.preds[:i], b.preds[i+1:]...)
			return
		}
	}
}

// Append adds a non-terminator instruction to the end of the block.
// Phi instructions must be appended before any non-Phi instruction;
// callers that violate ordering are caught by the validator.
func (b *BasicBlock) Append(inst Instruction) {
	b.Instructions = append(b.Instructions, inst)
}

// PrependPhi inserts a Phi instruction at the end of the phi prefix,
// i.e. after any existing phis but before any non-phi instruction.
func (b *BasicBlock) PrependPhi(phi *Phi) {
	i := 0
	for i < len(b.Instructions) {
		if _, ok := b.Instructions[i].(*Phi); !ok {
			break
		}
		i++
	}
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[i+1:], b.Instructions[i:])
	b.Instructions[i] = phi
}

// Phis returns the leading Phi instructions of the block.
func (b *BasicBlock) Phis() []*Phi {
	var out []*Phi
	for _, inst := range b.Instructions {
		if p, ok := inst.(*Phi); ok {
			out = append(out, p)
		} else {
			break
		}
	}
	return out
}

// RemoveInstructionAt deletes the instruction at index i.
func (b *BasicBlock) RemoveInstructionAt(i int) {
	b.Instructions = append(b.Instructions[:i], b.Instructions[i+1:]...)
}

func (b *BasicBlock) String() string {
	name := b.ID.String()
	if b.Name != "" {
		name = fmt.Sprintf("%s(%s)", b.ID, b.Name)
	}
	return name
}
