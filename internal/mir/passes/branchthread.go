package passes

import "zkcasm/internal/mir"

// BranchThread simplifies terminators whose outcome is statically known:
// If on a literal condition becomes a Jump, and If whose two targets are
// identical becomes a Jump regardless of the condition's value.
type BranchThread struct{}

func (*BranchThread) Name() string { return "branch-threading" }

func (p *BranchThread) Run(fn *mir.Function) (bool, error) {
	changed := false
	for _, blk := range fn.Blocks() {
		ifTerm, ok := blk.Terminator.(*mir.If)
		if !ok {
			continue
		}
		if ifTerm.Then == ifTerm.Else {
			replaceWithJump(fn, blk, ifTerm, ifTerm.Then)
			changed = true
			continue
		}
		if ifTerm.Cond.IsLiteral() {
			target := ifTerm.Else
			if ifTerm.Cond.Literal().AsBool() {
				target = ifTerm.Then
			}
			replaceWithJump(fn, blk, ifTerm, target)
			changed = true
		}
	}
	return changed, nil
}

func replaceWithJump(fn *mir.Function, blk *mir.BasicBlock, old *mir.If, target mir.BasicBlockID) {
	if old.Then != target {
		fn.RemoveEdge(blk.ID, old.Then)
	}
	if old.Else != target && old.Else != old.Then {
		fn.RemoveEdge(blk.ID, old.Else)
	}
	blk.Terminator = &mir.Jump{Target: target}
}
