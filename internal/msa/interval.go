package msa

import "sort"

// blockIndex answers containment queries over the blocks of one chromosome
// using a start-sorted slice and a prefix max-end array.
type blockIndex struct {
	blocks []*Block
	order  []int   // file position of blocks[i]
	maxEnd []int64 // maxEnd[i] = max(End) for blocks[:i+1]
}

// buildBlockIndex indexes blocks given in file order.
func buildBlockIndex(blocks []*Block) *blockIndex {
	if len(blocks) == 0 {
		return &blockIndex{}
	}

	order := make([]int, len(blocks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return blocks[order[i]].Start < blocks[order[j]].Start
	})

	sorted := make([]*Block, len(blocks))
	for i, o := range order {
		sorted[i] = blocks[o]
	}

	maxEnd := make([]int64, len(sorted))
	maxEnd[0] = sorted[0].End
	for i := 1; i < len(sorted); i++ {
		maxEnd[i] = max(maxEnd[i-1], sorted[i].End)
	}

	return &blockIndex{blocks: sorted, order: order, maxEnd: maxEnd}
}

// find returns every block whose [Start, End] contains pos, in file order.
func (x *blockIndex) find(pos int64) []*Block {
	if x == nil || len(x.blocks) == 0 {
		return nil
	}

	hi := sort.Search(len(x.blocks), func(i int) bool {
		return x.blocks[i].Start > pos
	})

	var hits []int
	for i := hi - 1; i >= 0; i-- {
		// No block at or left of i reaches pos.
		if x.maxEnd[i] < pos {
			break
		}
		if x.blocks[i].End >= pos {
			hits = append(hits, i)
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.Slice(hits, func(a, b int) bool {
		return x.order[hits[a]] < x.order[hits[b]]
	})
	result := make([]*Block, len(hits))
	for k, i := range hits {
		result[k] = x.blocks[i]
	}
	return result
}
