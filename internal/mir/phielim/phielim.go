// Package phielim converts validated SSA MIR with phis into phi-free MIR
// by splitting critical edges and scheduling parallel copies on every
// control edge, using a temporary to break cyclic copy graphs (Sreedhar
// et al. 1999). Set MIR_PHI_DEBUG to print each step as it runs.
package phielim

import (
	"fmt"
	"os"

	"zkcasm/internal/mir"
	"zkcasm/internal/mirtypes"
)

// Stats reports what Eliminate actually did, mirroring the reference
// compiler's PhiElimination diagnostics.
type Stats struct {
	CriticalEdgesSplit int
	PhisEliminated     int
	CopiesInserted     int
	CyclesBroken       int
}

func debugf(format string, args ...any) {
	if os.Getenv("MIR_PHI_DEBUG") != "" {
		fmt.Fprintf(os.Stderr, "[phielim] "+format+"\n", args...)
	}
}

// Eliminate removes all Phi instructions from fn, replacing them with
// straight-line copies at the end of each predecessor block.
func Eliminate(fn *mir.Function) (Stats, error) {
	var stats Stats
	splitCriticalEdges(fn, &stats)

	// Collect phi-bearing blocks before mutating predecessor lists further.
	for _, blk := range fn.Blocks() {
		phis := blk.Phis()
		if len(phis) == 0 {
			continue
		}
		stats.PhisEliminated += len(phis)
		for _, pred := range append([]mir.BasicBlockID(nil), blk.Preds()...) {
			copies := make([]copyOp, 0, len(phis))
			for _, phi := range phis {
				src, ok := phi.SourceFor(pred)
				if !ok {
					return stats, fmt.Errorf("phi %s in block %s has no source for predecessor %s", phi.Dest, blk.ID, pred)
				}
				copies = append(copies, copyOp{dest: phi.Dest, src: src, ty: phi.Type})
			}
			seq, cycles := sequentialize(fn, copies)
			stats.CopiesInserted += len(seq)
			stats.CyclesBroken += cycles
			insertBeforeTerminator(fn.Block(pred), seq)
		}
		for _, phi := range phis {
			removePhi(blk, phi)
		}
	}

	debugf("function %s: %d critical edges split, %d phis eliminated, %d copies inserted, %d cycles broken",
		fn.Name, stats.CriticalEdgesSplit, stats.PhisEliminated, stats.CopiesInserted, stats.CyclesBroken)
	return stats, nil
}

// splitCriticalEdges inserts a fresh jump-only block on every edge P→S
// where P has ≥2 successors and S has ≥2 predecessors, so copies can be
// placed on the edge without affecting any other edge out of P or into S.
func splitCriticalEdges(fn *mir.Function, stats *Stats) {
	type edge struct{ pred, succ mir.BasicBlockID }
	var critical []edge
	for _, blk := range fn.Blocks() {
		succs := blk.Terminator.Targets()
		if len(uniqueTargets(succs)) < 2 {
			continue
		}
		for _, s := range succs {
			if len(fn.Block(s).Preds()) >= 2 {
				critical = append(critical, edge{blk.ID, s})
			}
		}
	}
	for _, e := range critical {
		debugf("splitting critical edge %s -> %s", e.pred, e.succ)
		newBlk := fn.NewBlock(fmt.Sprintf("critedge.%s.%s", e.pred, e.succ))
		fn.Block(newBlk).Terminator = &mir.Jump{Target: e.succ}
		fn.Block(newBlk).Sealed = true

		fn.Block(e.pred).Terminator.ReplaceTarget(e.succ, newBlk)
		fn.RemoveEdge(e.pred, e.succ)
		fn.AddEdge(e.pred, newBlk)
		fn.AddEdge(newBlk, e.succ)

		for _, phi := range fn.Block(e.succ).Phis() {
			for i, src := range phi.Sources {
				if src.Pred == e.pred {
					phi.Sources[i].Pred = newBlk
				}
			}
		}
		stats.CriticalEdgesSplit++
	}
}

func uniqueTargets(ts []mir.BasicBlockID) []mir.BasicBlockID {
	seen := make(map[mir.BasicBlockID]bool)
	var out []mir.BasicBlockID
	for _, t := range ts {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

type copyOp struct {
	dest mir.ValueID
	src  mir.Value
	ty   mirtypes.Type
}
