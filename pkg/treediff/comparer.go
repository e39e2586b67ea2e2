// Package treediff computes labeled edit scripts between two syntax trees.
//
// Compare aligns the trees in three phases. A token-level LCS over both files
// produces hints. A breadth-first walk then aligns the children of every
// matched pair by node distance, matching identical subtrees wholesale and
// recovering reordered siblings from the unaligned remainder; unmatched nodes
// whose tokens the hints place under a different parent are recovered as
// moves. Finally every matched pair is classified and unmatched nodes become
// inserts and deletes.
package treediff

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"znkr.io/diff"

	"github.com/Sumatoshi-tech/codediff/pkg/distance"
	"github.com/Sumatoshi-tech/codediff/pkg/lcs"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// hintCellLimit bounds the token table of the exact hint alignment. Larger
// files fall back to the linear-space Myers diff.
const hintCellLimit = 1 << 22

// Comparer computes edit scripts. It holds only configuration, so one value
// may be shared by concurrent comparisons.
type Comparer[E lcs.Equivalence[string]] struct {
	eq  E
	cfg settings
}

// New creates a Comparer that treats tokens as equivalent when their text is identical.
func New(opts ...Option) *Comparer[distance.ExactText] {
	return NewWithEquivalence(distance.ExactText{}, opts...)
}

// NewWithEquivalence creates a Comparer with a custom token equivalence.
func NewWithEquivalence[E lcs.Equivalence[string]](eq E, opts ...Option) *Comparer[E] {
	c := &Comparer[E]{eq: eq, cfg: defaultSettings()}

	for _, opt := range opts {
		opt(&c.cfg)
	}

	return c
}

// Compare is shorthand for New(opts...).Compare(ctx, oldTree, newTree).
func Compare(ctx context.Context, oldTree, newTree *syntax.Tree, opts ...Option) (*EditScript, error) {
	return New(opts...).Compare(ctx, oldTree, newTree)
}

// Threshold returns the sibling matching threshold.
func (c *Comparer[E]) Threshold() float64 {
	return c.cfg.threshold
}

// Compare computes the edit script that turns oldTree into newTree.
//
// It returns an error wrapping ErrInput when the trees cannot be compared and
// one wrapping ErrCancelled (and the context error) when ctx ends first. No
// partial script is ever returned.
func (c *Comparer[E]) Compare(ctx context.Context, oldTree, newTree *syntax.Tree) (*EditScript, error) {
	ctx, span := c.cfg.tracer.Start(ctx, "treediff.Compare", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	start := time.Now()

	script, err := c.compare(ctx, oldTree, newTree)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.cfg.logger.DebugContext(ctx, "tree comparison failed", "error", err)

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("treediff.old_nodes", oldTree.Len()),
		attribute.Int("treediff.new_nodes", newTree.Len()),
		attribute.Int("treediff.matched", script.match.Len()),
		attribute.Int("treediff.edits", len(script.edits)),
	)

	c.cfg.logger.DebugContext(ctx, "tree comparison finished",
		"grammar", oldTree.Grammar().Name(),
		"old_nodes", oldTree.Len(),
		"new_nodes", newTree.Len(),
		"matched", script.match.Len(),
		"edits", len(script.edits),
		"duration", time.Since(start),
	)

	return script, nil
}

func (c *Comparer[E]) compare(ctx context.Context, oldTree, newTree *syntax.Tree) (*EditScript, error) {
	if oldTree == nil || newTree == nil {
		return nil, fmt.Errorf("%w: nil tree", ErrInput)
	}

	if oldTree.Grammar().Name() != newTree.Grammar().Name() {
		return nil, fmt.Errorf("%w: grammar %q cannot be compared with %q",
			ErrInput, oldTree.Grammar().Name(), newTree.Grammar().Name())
	}

	oldRoot, newRoot := oldTree.Root(), newTree.Root()
	if oldTree.Label(oldRoot) != newTree.Label(newRoot) || oldTree.Kind(oldRoot) != newTree.Kind(newRoot) {
		if c.cfg.rootMismatch == RootMismatchReplace {
			return c.replaceScript(oldTree, newTree), nil
		}

		return nil, fmt.Errorf("%w: root %s cannot be compared with root %s",
			ErrInput, oldTree.LabelName(oldRoot), newTree.LabelName(newRoot))
	}

	r := c.newRun(ctx, oldTree, newTree)

	if err := r.seed(c.cfg.knownMatches); err != nil {
		return nil, err
	}

	r.tokenHints()

	if err := r.propagate(); err != nil {
		return nil, err
	}

	if err := r.recoverMoves(); err != nil {
		return nil, err
	}

	edits := r.buildEdits()
	r.verify(edits)

	return newEditScript(r.match, edits, r.metric.Distance), nil
}

// replaceScript deletes the old root and inserts the new one.
func (c *Comparer[E]) replaceScript(oldTree, newTree *syntax.Tree) *EditScript {
	metric := distance.New(oldTree, newTree, c.eq, c.cfg.epsilon)
	edits := []Edit{
		{Kind: Delete, OldNode: oldTree.Root(), NewNode: syntax.NoNode, OldParent: syntax.NoNode, NewParent: syntax.NoNode},
		{Kind: Insert, OldNode: syntax.NoNode, NewNode: newTree.Root(), OldParent: syntax.NoNode, NewParent: syntax.NoNode},
	}

	return newEditScript(newMatch(oldTree, newTree), edits, metric.Distance)
}

type nodeMatcher = lcs.Matcher[syntax.NodeID, lcs.EquivalenceFunc[syntax.NodeID]]

// run is the working state of one comparison.
type run[E lcs.Equivalence[string]] struct {
	ctx       context.Context //nolint:containedctx // Scoped to a single Compare call.
	cfg       *settings
	eq        E
	old, new  *syntax.Tree
	metric    *distance.Metric[E]
	match     *Match
	siblings  *nodeMatcher
	trivia    *nodeMatcher
	hints     []syntax.NodeID // old token -> new token
	reordered []bool          // old nodes matched out of sibling order
	queue     []Pair
}

func (c *Comparer[E]) newRun(ctx context.Context, oldTree, newTree *syntax.Tree) *run[E] {
	r := &run[E]{
		ctx:       ctx,
		cfg:       &c.cfg,
		eq:        c.eq,
		old:       oldTree,
		new:       newTree,
		metric:    distance.New(oldTree, newTree, c.eq, c.cfg.epsilon),
		match:     newMatch(oldTree, newTree),
		hints:     make([]syntax.NodeID, oldTree.Len()),
		reordered: make([]bool, oldTree.Len()),
	}

	for i := range r.hints {
		r.hints[i] = syntax.NoNode
	}

	threshold := c.cfg.threshold

	r.siblings = lcs.NewMatcher[syntax.NodeID](lcs.EquivalenceFunc[syntax.NodeID](
		func(o, n syntax.NodeID) bool { return r.compatible(o, n) && r.metric.Distance(o, n) <= threshold },
	))
	r.trivia = lcs.NewMatcher[syntax.NodeID](lcs.EquivalenceFunc[syntax.NodeID](
		func(o, n syntax.NodeID) bool {
			return r.old.Label(o) == r.new.Label(n) && r.eq.Equivalent(r.old.Text(o), r.new.Text(n))
		},
	))

	r.match.add(oldTree.Root(), newTree.Root())
	r.queue = append(r.queue, Pair{Old: oldTree.Root(), New: newTree.Root()})

	return r
}

// seed matches the caller's known pairs before any alignment.
func (r *run[E]) seed(pairs []Pair) error {
	for _, p := range pairs {
		if !r.old.Contains(p.Old) || !r.new.Contains(p.New) {
			return fmt.Errorf("%w: known match %d->%d is out of range", ErrInput, p.Old, p.New)
		}

		oldRoot, newRoot := p.Old == r.old.Root(), p.New == r.new.Root()
		if oldRoot && newRoot {
			continue
		}

		if oldRoot || newRoot {
			return fmt.Errorf("%w: known match %d->%d pairs a root with a non-root", ErrInput, p.Old, p.New)
		}

		if r.old.Label(p.Old) != r.new.Label(p.New) || r.old.Kind(p.Old) != r.new.Kind(p.New) {
			return fmt.Errorf("%w: known match %d->%d joins %s and %s",
				ErrInput, p.Old, p.New, r.old.LabelName(p.Old), r.new.LabelName(p.New))
		}

		if r.match.hasOld(p.Old) || r.match.hasNew(p.New) {
			return fmt.Errorf("%w: known match %d->%d overlaps another match", ErrInput, p.Old, p.New)
		}

		r.matchPair(p.Old, p.New, r.metric.Distance(p.Old, p.New))
	}

	return nil
}

// tokenHints aligns the token sequences of both files. The result only guides
// move recovery; it never creates matches by itself.
func (r *run[E]) tokenHints() {
	oldTokens := r.old.Tokens(r.old.Root())
	newTokens := r.new.Tokens(r.new.Root())

	same := func(o, n syntax.NodeID) bool {
		return r.eq.Equivalent(r.old.Text(o), r.new.Text(n))
	}

	if len(oldTokens)*len(newTokens) <= hintCellLimit {
		al := lcs.Align(oldTokens, newTokens, lcs.EquivalenceFunc[syntax.NodeID](same))
		for _, p := range al.Pairs {
			r.hints[oldTokens[p.A]] = newTokens[p.B]
		}

		return
	}

	for _, e := range diff.EditsFunc(oldTokens, newTokens, same) {
		if e.Op == diff.Match {
			r.hints[e.X] = e.Y
		}
	}
}

func (r *run[E]) cancelled() error {
	if err := r.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	return nil
}

// propagate drains the frontier of matched pairs breadth-first.
func (r *run[E]) propagate() error {
	for head := 0; head < len(r.queue); head++ {
		if err := r.cancelled(); err != nil {
			return err
		}

		p := r.queue[head]
		r.alignChildren(p.Old, p.New)
	}

	r.queue = r.queue[:0]

	return nil
}

// matchPair records o->n. Pairs at distance zero with the same shape are
// matched node by node without further alignment; other structural pairs are
// queued so their children get aligned.
func (r *run[E]) matchPair(o, n syntax.NodeID, d float64) {
	if d == 0 && r.sameShape(o, n) && r.subtreeFree(o, n) {
		for off := range syntax.NodeID(r.old.SubtreeSize(o)) {
			r.match.add(o+off, n+off)
		}

		return
	}

	r.match.add(o, n)

	if r.old.Kind(o) == syntax.Structural {
		r.queue = append(r.queue, Pair{Old: o, New: n})
	}
}

// compatible reports whether o and n may be matched at all.
func (r *run[E]) compatible(o, n syntax.NodeID) bool {
	return r.old.Label(o) == r.new.Label(n) && r.old.Kind(o) == r.new.Kind(n)
}

func (r *run[E]) sameShape(o, n syntax.NodeID) bool {
	size := r.old.SubtreeSize(o)
	if size != r.new.SubtreeSize(n) {
		return false
	}

	for off := range syntax.NodeID(size) {
		x, y := o+off, n+off
		if r.old.Kind(x) != r.new.Kind(y) || r.old.Label(x) != r.new.Label(y) || r.old.ChildCount(x) != r.new.ChildCount(y) {
			return false
		}
	}

	return true
}

func (r *run[E]) subtreeFree(o, n syntax.NodeID) bool {
	for off := range syntax.NodeID(r.old.SubtreeSize(o)) {
		if r.match.hasOld(o+off) || r.match.hasNew(n+off) {
			return false
		}
	}

	return true
}

// unmatchedChildren splits the unmatched children of id into significant
// nodes and trivia. pos holds the index of each significant node among all
// children of id.
func unmatchedChildren(tree *syntax.Tree, id syntax.NodeID, matched func(syntax.NodeID) bool) (sig []syntax.NodeID, pos []int, trivia []syntax.NodeID) {
	for i, c := range tree.Children(id) {
		if matched(c) {
			continue
		}

		if tree.Kind(c) == syntax.Trivia {
			trivia = append(trivia, c)
		} else {
			sig = append(sig, c)
			pos = append(pos, i)
		}
	}

	return sig, pos, trivia
}

func (r *run[E]) alignChildren(o, n syntax.NodeID) {
	oldSig, oldPos, oldTrivia := unmatchedChildren(r.old, o, r.match.hasOld)
	newSig, newPos, newTrivia := unmatchedChildren(r.new, n, r.match.hasNew)

	if len(oldTrivia) > 0 && len(newTrivia) > 0 {
		for _, p := range r.trivia.Align(oldTrivia, newTrivia).Pairs {
			r.match.add(oldTrivia[p.A], newTrivia[p.B])
		}
	}

	if len(oldSig) == 0 || len(newSig) == 0 {
		return
	}

	al := r.siblings.Align(oldSig, newSig)
	for _, p := range al.Pairs {
		x, y := oldSig[p.A], newSig[p.B]
		r.matchPair(x, y, r.metric.Distance(x, y))
	}

	r.matchRemainder(oldSig, newSig, oldPos, newPos, al)
}

// matchRemainder pairs siblings the alignment left out. Each unaligned old
// child, in order, takes the closest unaligned new sibling within the
// threshold; ties go to the nearest position among all children, trivia and
// matched siblings included, then the lower index. Such pairs necessarily
// cross the alignment, so they are marked as reordered.
func (r *run[E]) matchRemainder(oldSig, newSig []syntax.NodeID, oldPos, newPos []int, al lcs.Alignment) {
	if len(al.OldUnmatched) == 0 || len(al.NewUnmatched) == 0 {
		return
	}

	taken := make([]bool, len(newSig))

	for _, i := range al.OldUnmatched {
		x := oldSig[i]
		best, bestDist, bestGap := -1, 0.0, 0

		for _, j := range al.NewUnmatched {
			y := newSig[j]
			if taken[j] || !r.compatible(x, y) {
				continue
			}

			d := r.metric.Distance(x, y)
			if d > r.cfg.threshold {
				continue
			}

			gap := max(oldPos[i]-newPos[j], newPos[j]-oldPos[i])
			if best < 0 || d < bestDist || (d == bestDist && gap < bestGap) {
				best, bestDist, bestGap = j, d, gap
			}
		}

		if best < 0 {
			continue
		}

		taken[best] = true
		r.reordered[x] = true
		r.matchPair(x, newSig[best], bestDist)
	}
}

// recoverMoves matches unmatched old nodes across parents. Each candidate is an
// unmatched new node of the same label that contains the hinted partners of
// the old node's tokens; the candidate with the most votes wins, ties going to
// the earlier node, and is accepted within the threshold.
func (r *run[E]) recoverMoves() error {
	votes := make(map[syntax.NodeID]int)

	for x := range r.old.All() {
		if r.match.hasOld(x) || r.old.Kind(x) != syntax.Structural {
			continue
		}

		if err := r.cancelled(); err != nil {
			return err
		}

		y := r.moveCandidate(x, votes)
		if y == syntax.NoNode {
			continue
		}

		d := r.metric.Distance(x, y)
		if d > r.cfg.threshold {
			continue
		}

		r.matchPair(x, y, d)

		if err := r.propagate(); err != nil {
			return err
		}
	}

	return nil
}

func (r *run[E]) moveCandidate(x syntax.NodeID, votes map[syntax.NodeID]int) syntax.NodeID {
	clear(votes)

	label := r.old.Label(x)

	for _, tok := range r.old.Tokens(x) {
		for y := r.hints[tok]; y != syntax.NoNode; y = r.new.Parent(y) {
			if !r.match.hasNew(y) && r.new.Kind(y) == syntax.Structural && r.new.Label(y) == label {
				votes[y]++
			}
		}
	}

	best, bestVotes := syntax.NoNode, 0

	for y, v := range votes {
		if v > bestVotes || (v == bestVotes && y < best) {
			best, bestVotes = y, v
		}
	}

	return best
}
