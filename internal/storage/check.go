package storage

import (
	"sort"

	"github.com/iromo/iromo/internal/topic"
)

// Report lists inconsistencies between the index and the content store.
type Report struct {
	Topics      int `json:"topics"`
	Extractions int `json:"extractions"`

	// MissingBlobs are topics whose content blob is absent.
	MissingBlobs []string `json:"missing_blobs,omitempty"`

	// OrphanBlobs are blobs no topic refers to, usually left by a failed
	// best-effort delete.
	OrphanBlobs []string `json:"orphan_blobs,omitempty"`

	// MisplacedExtractions are extractions whose child no longer sits under
	// the extraction's parent.
	MisplacedExtractions []string `json:"misplaced_extractions,omitempty"`

	// StaleExtractions no longer fit their parent's current content.
	StaleExtractions []string `json:"stale_extractions,omitempty"`
}

// OK reports whether no inconsistencies were found. Stale extractions are
// expected after edits and do not count.
func (r *Report) OK() bool {
	return len(r.MissingBlobs) == 0 && len(r.OrphanBlobs) == 0 && len(r.MisplacedExtractions) == 0
}

// Check compares the index with the content store. It never modifies either.
func (e *Engine) Check() (*Report, error) {
	refs, err := e.idx.ContentRefs()
	if err != nil {
		return nil, err
	}
	blobs, err := e.blobs.List()
	if err != nil {
		return nil, err
	}
	exts, err := e.idx.AllExtractions()
	if err != nil {
		return nil, err
	}

	r := &Report{Topics: len(refs), Extractions: len(exts)}

	onDisk := make(map[string]bool, len(blobs))
	for _, ref := range blobs {
		onDisk[ref] = true
		if _, ok := refs[ref]; !ok {
			r.OrphanBlobs = append(r.OrphanBlobs, ref)
		}
	}
	for ref, id := range refs {
		if !onDisk[ref] {
			r.MissingBlobs = append(r.MissingBlobs, id)
		}
	}

	lengths := make(map[string]int)
	for _, ext := range exts {
		child, err := e.idx.GetTopic(ext.ChildTopicID)
		if err != nil || child.ParentID != ext.ParentTopicID {
			r.MisplacedExtractions = append(r.MisplacedExtractions, ext.ID)
			continue
		}

		n, ok := lengths[ext.ParentTopicID]
		if !ok {
			text, err := e.GetContent(ext.ParentTopicID)
			if err != nil {
				continue
			}
			n = topic.RuneLen(text)
			lengths[ext.ParentTopicID] = n
		}
		if !ext.Fits(n) {
			r.StaleExtractions = append(r.StaleExtractions, ext.ID)
		}
	}

	sort.Strings(r.MissingBlobs)
	return r, nil
}
