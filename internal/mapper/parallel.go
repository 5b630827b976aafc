package mapper

import (
	"sync"
	"sync/atomic"

	"github.com/inodb/vibe-epistasis/internal/contact"
)

// WorkItem holds a contact ready for processing.
type WorkItem struct {
	Seq    int
	Record *contact.Record
}

// WorkResult holds the outcome for a single contact.
type WorkResult struct {
	Seq    int
	Record *contact.Record
	Err    error
}

// ParallelProcess applies fn to work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// Each record is handed to exactly one worker.
func (m *Mapper) ParallelProcess(items <-chan WorkItem, fn func(*contact.Record) error) <-chan WorkResult {
	workers := m.opts.Workers
	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{
					Seq:    item.Seq,
					Record: item.Record,
					Err:    fn(item.Record),
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// feed streams records as work items on a closed-when-done channel.
func feed(recs []*contact.Record) <-chan WorkItem {
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, r := range recs {
			items <- WorkItem{Seq: i, Record: r}
		}
	}()
	return items
}

// MapAll runs MapToMsa over every record in parallel. Records are enriched
// in place.
func (m *Mapper) MapAll(recs []*contact.Record) {
	results := m.ParallelProcess(feed(recs), func(r *contact.Record) error {
		m.MapToMsa(r)
		return nil
	})
	for range results {
	}
}

// AnnotateAll runs Annotate over every record in parallel and returns the
// error of the first failing record in input order.
func (m *Mapper) AnnotateAll(recs []*contact.Record) error {
	results := m.ParallelProcess(feed(recs), m.Annotate)
	return OrderedCollect(results, func(r WorkResult) error {
		return r.Err
	})
}

// CheckAllSequenceMsaTr checks every transcript of the genome against the
// alignments in parallel and returns how many matched.
func (m *Mapper) CheckAllSequenceMsaTr() int {
	ids := make(chan string)
	go func() {
		defer close(ids)
		for _, id := range m.genome.TranscriptIDs() {
			ids <- id
		}
	}()

	var matched atomic.Int64
	var wg sync.WaitGroup
	wg.Add(m.opts.Workers)
	for range m.opts.Workers {
		go func() {
			defer wg.Done()
			for id := range ids {
				if m.CheckSequenceMsaTr(id) {
					matched.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	return int(matched.Load())
}
