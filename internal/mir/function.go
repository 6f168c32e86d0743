package mir

import (
	"fmt"
	"strings"

	"zkcasm/internal/mirtypes"
	"zkcasm/internal/pool"
)

// Param is a function parameter: its SSA value id at entry and its type.
type Param struct {
	ID   ValueID
	Name string
	Type mirtypes.Type
}

// Function is a single MIR function in SSA form: a dense vector of basic
// blocks plus the bookkeeping needed during and after construction.
type Function struct {
	Name    string
	Params  []Param
	Returns []mirtypes.Type
	Entry   BasicBlockID

	valTypes map[ValueID]mirtypes.Type

	// blockPool arena-allocates this function's BasicBlocks: a function
	// with thousands of blocks would otherwise cost one heap allocation
	// per block during construction and every later pass that rebuilds
	// block lists wholesale. BasicBlockIDs are handed out in the same
	// order as Allocate calls, so the pool itself is the block storage —
	// Block/Blocks read back through View instead of keeping a second,
	// parallel slice of pointers in sync.
	blockPool pool.Pool[BasicBlock]

	nextValue ValueID
	nextBlock BasicBlockID
}

// NewFunction creates an empty function with a single, unsealed entry
// block named "entry".
func NewFunction(name string, params []Param, returns []mirtypes.Type) *Function {
	f := &Function{
		Name:      name,
		Params:    params,
		Returns:   returns,
		valTypes:  make(map[ValueID]mirtypes.Type),
		blockPool: pool.New[BasicBlock](),
		nextValue: 0,
	}
	for _, p := range params {
		f.defineValue(p.ID, p.Type)
		if p.ID >= f.nextValue {
			f.nextValue = p.ID + 1
		}
	}
	entry := f.NewBlock("entry")
	f.Entry = entry
	return f
}

// NewValue allocates a fresh, never-before-used ValueID of the given type.
func (f *Function) NewValue(t mirtypes.Type) ValueID {
	id := f.nextValue
	f.nextValue++
	f.defineValue(id, t)
	return id
}

func (f *Function) defineValue(id ValueID, t mirtypes.Type) {
	f.valTypes[id] = t
}

// TypeOf returns the type of a previously defined value.
func (f *Function) TypeOf(id ValueID) (mirtypes.Type, bool) {
	t, ok := f.valTypes[id]
	return t, ok
}

// NewBlock allocates a fresh, initially unsealed basic block.
func (f *Function) NewBlock(name string) BasicBlockID {
	id := f.nextBlock
	f.nextBlock++
	blk := f.blockPool.Allocate()
	blk.ID = id
	blk.Name = name
	blk.incompletePhis = make(map[string]ValueID)
	return id
}

// Block returns the basic block for id.
func (f *Function) Block(id BasicBlockID) *BasicBlock {
	return f.blockPool.View(int(id))
}

// Blocks returns all blocks in creation order. Creation order is not
// necessarily a valid reverse-postorder traversal after construction;
// callers needing RPO must compute it explicitly (see ReversePostorder).
func (f *Function) Blocks() []*BasicBlock {
	out := make([]*BasicBlock, f.blockPool.Allocated())
	for i := range out {
		out[i] = f.blockPool.View(i)
	}
	return out
}

// NumValues returns one past the highest ValueID ever allocated, i.e. the
// size a dense value-indexed array must have to cover every id.
func (f *Function) NumValues() int {
	return int(f.nextValue)
}

// AddEdge records a CFG edge from pred to succ's predecessor set. Callers
// building or rewriting terminators must call this so Preds() stays
// consistent; it is not inferred automatically from Terminator fields.
func (f *Function) AddEdge(pred, succ BasicBlockID) {
	f.Block(succ).addPred(pred)
}

// RemoveEdge undoes AddEdge.
func (f *Function) RemoveEdge(pred, succ BasicBlockID) {
	f.Block(succ).removePred(pred)
}

// ReversePostorder computes a reverse postorder traversal of the CFG
// starting at the entry block. Unreachable blocks are omitted, matching
// the reference compiler's behavior of never visiting dead code during
// analysis passes.
func (f *Function) ReversePostorder() []BasicBlockID {
	visited := make(map[BasicBlockID]bool, f.blockPool.Allocated())
	var order []BasicBlockID
	var visit func(BasicBlockID)
	visit = func(b BasicBlockID) {
		if visited[b] {
			return
		}
		visited[b] = true
		blk := f.Block(b)
		if blk.Terminator != nil {
			for _, s := range blk.Terminator.Targets() {
				visit(s)
			}
		}
		order = append(order, b)
	}
	visit(f.Entry)
	// order is postorder; reverse it in place.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s: %s", p.ID, p.Type)
	}
	rets := make([]string, len(f.Returns))
	for i, r := range f.Returns {
		rets[i] = r.String()
	}
	fmt.Fprintf(&sb, "fn %s(%s) -> (%s) {\n", f.Name, strings.Join(params, ", "), strings.Join(rets, ", "))
	for _, id := range f.ReversePostorder() {
		b := f.Block(id)
		fmt.Fprintf(&sb, "  %s:\n", b)
		for _, inst := range b.Instructions {
			fmt.Fprintf(&sb, "    %s\n", inst)
		}
		if b.Terminator != nil {
			fmt.Fprintf(&sb, "    %s\n", b.Terminator)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Program is the whole-program symbol table of functions produced by the
// frontend and consumed by every downstream pass.
type Program struct {
	Functions map[string]*Function
	// Order preserves declaration order for deterministic output (CASM
	// listings, binary symbol tables).
	Order []string
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{Functions: make(map[string]*Function)}
}

// AddFunction registers fn, appending to Order if new.
func (p *Program) AddFunction(fn *Function) {
	if _, exists := p.Functions[fn.Name]; !exists {
		p.Order = append(p.Order, fn.Name)
	}
	p.Functions[fn.Name] = fn
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, name := range p.Order {
		sb.WriteString(p.Functions[name].String())
	}
	return sb.String()
}
