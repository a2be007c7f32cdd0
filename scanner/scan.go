package scanner

import (
	"context"
	"os"
	"slices"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"github.com/scanhive/scanhive/internal/rx"
)

// maxMatchLen bounds how far an atomized regex/hex Variant's validators
// are allowed to reach from the atom they anchor to, per spec §4.6 (the
// teacher's scanner.go carries the identical constant and half-window
// re-scan strategy).
const maxMatchLen = 1024

type matchSpan struct{ start, end int }

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b == '_'
}

func checkWordBoundary(buf []byte, start, end int) bool {
	if start > 0 && isWordChar(buf[start-1]) {
		return false
	}
	if end < len(buf) && isWordChar(buf[end]) {
		return false
	}
	return true
}

// dewiden takes every other byte, undoing widenBytes's NUL interleaving,
// so a wide match's bytes can be checked against a WordBoundaryRegex
// compiled against the narrow pattern.
func dewiden(b []byte) []byte {
	out := make([]byte, 0, len(b)/2+1)
	for i := 0; i < len(b); i += 2 {
		out = append(out, b[i])
	}
	return out
}

// ScanMem scans buf for matching rules, calling cb.RuleMatching once per
// rule whose condition evaluates true (spec §4.7's tri-valued evaluator
// treats "undefined" as not-matching at the top level).
func (r *Rules) ScanMem(buf []byte, flags ScanFlags, timeout time.Duration, cb ScanCallback) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ruleMatches := make(map[int]map[string][]matchSpan)
	atomCandidates := make(map[int][]int)

	if r.matcher != nil {
		iter := r.matcher.IterOverlappingByte(buf)
		for m := iter.Next(); m != nil; m = iter.Next() {
			ref := r.patternMap[m.Pattern()]
			if ref.isAtom {
				atomCandidates[ref.atomIdx] = append(atomCandidates[ref.atomIdx], m.Start())
				continue
			}
			start, end := m.Start(), m.End()
			if ref.fullword && !checkWordBoundary(buf, start, end) {
				continue
			}
			addMatch(ruleMatches, ref.ruleIndex, ref.stringName, start, end)
		}
	}

	halfWindow := maxMatchLen / 2
	for atomIdx, positions := range atomCandidates {
		entry := r.atomEntries[atomIdx]
		ref := &r.patternMap[r.atomPatternIdx[atomIdx]]
		atomLen := r.atomByteLen[atomIdx]
		for _, pos := range dedupe(positions) {
			for _, sp := range r.confirmAtom(buf, pos, atomLen, entry, halfWindow) {
				start, end := sp.start, sp.end
				if ref.fullword && !checkWordBoundary(buf, start, end) {
					continue
				}
				if ref.wordBoundary != nil {
					narrow := buf[start:end]
					if ref.wide {
						narrow = dewiden(narrow)
					}
					if !ref.wordBoundary.Match(narrow) {
						continue
					}
				}
				addMatch(ruleMatches, entry.ruleIndex, entry.stringName, start, end)
			}
		}
	}

	for _, re := range r.rawEntries {
		for _, sp := range findAllMatchesFrom(re.re, buf) {
			addMatch(ruleMatches, re.ruleIndex, re.stringName, sp.start, sp.end)
		}
	}

	ruleIndices := make([]int, 0, len(r.rules))
	for i := range r.rules {
		ruleIndices = append(ruleIndices, i)
	}

	ec := &evalContext{
		buf:        buf,
		rules:      r,
		cache:      make(map[string]*bool),
		modules:    make(map[string]any),
		allMatches: ruleMatches,
		scratch:    make(map[string]any),
	}

	// Global rules gate the whole scan (spec §4.7/§1): if any global
	// rule's condition evaluates false, no rule in the ruleset matches,
	// whether or not another rule's condition happens to reference it.
	for ruleIdx, cr := range r.rules {
		if cr.global && !ec.evalRule(ruleIdx, ruleMatches[ruleIdx]) {
			return nil
		}
	}

	for _, ruleIdx := range ruleIndices {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cr := r.rules[ruleIdx]
		if cr.global {
			continue // already evaluated above as a scan-wide gate
		}
		matched := ec.evalRule(ruleIdx, ruleMatches[ruleIdx])
		if !matched {
			continue
		}

		abort, err := cb.RuleMatching(r.buildMatchRule(cr, buf, ruleMatches[ruleIdx]))
		if err != nil {
			return err
		}
		if abort {
			return nil
		}
	}
	return nil
}

// buildMatchRule emits MatchStrings in a deterministic order (spec §8:
// a variable's matches are reported in strictly increasing start order,
// and the same source scanned twice reports a byte-identical
// matched_rules list) rather than map iteration order, which is
// randomized per-process.
func (r *Rules) buildMatchRule(cr *compiledRule, buf []byte, matched map[string][]matchSpan) *MatchRule {
	sorted := sortedSpans(matched)
	names := make([]string, 0, len(sorted))
	for name := range sorted {
		names = append(names, name)
	}
	sort.Strings(names)

	var strs []MatchString
	for _, name := range names {
		for _, sp := range sorted[name] {
			data := append([]byte(nil), buf[sp.start:sp.end]...)
			strs = append(strs, MatchString{Name: name, Data: data})
		}
	}
	return &MatchRule{Rule: cr.name, Tags: cr.tags, Metas: cr.metas, Strings: strs}
}

// findAllMatchesFrom returns every match of re in buf, including matches
// that overlap one another (spec §8 scenario 4: "a.?bb" on "aabb" must
// report both the span starting at 0 and the one starting at 1). This
// mirrors the spec's find_next_match_at cursor: after each match the
// cursor advances only past that match's start, not its end, so the next
// search can still find a match beginning inside the previous one.
func findAllMatchesFrom(re rx.Regexp, buf []byte) []matchSpan {
	var spans []matchSpan
	cursor := 0
	for cursor <= len(buf) {
		loc := re.FindIndex(buf[cursor:])
		if loc == nil {
			break
		}
		start, end := cursor+loc[0], cursor+loc[1]
		spans = append(spans, matchSpan{start, end})
		cursor = start + 1
	}
	return spans
}

// confirmAtom re-scans the half-window around an AC atom hit with the
// Variant's anchored left/right validators, returning every full match
// span the atom can be expanded to (spec §4.6's per-variable
// confirmation/expansion step). A validator may have more than one valid
// anchored extension (e.g. "a.?bb" can extend left from either of two
// preceding a's), so every combination of a valid left start and a valid
// right end is reported, not just the first one found.
func (r *Rules) confirmAtom(buf []byte, pos, atomLen int, entry *atomEntry, halfWindow int) []matchSpan {
	atomStart, atomEnd := pos, pos+atomLen

	starts := []int{atomStart}
	if entry.leftValidator != nil {
		starts = leftExtensions(buf, pos, halfWindow, entry.leftValidator)
		if len(starts) == 0 {
			return nil
		}
	}

	ends := []int{atomEnd}
	if entry.rightValidator != nil {
		ends = rightExtensions(buf, atomEnd, halfWindow, entry.rightValidator)
		if len(ends) == 0 {
			return nil
		}
	}

	spans := make([]matchSpan, 0, len(starts)*len(ends))
	for _, s := range starts {
		for _, e := range ends {
			spans = append(spans, matchSpan{s, e})
		}
	}
	return spans
}

// leftExtensions returns every start offset s such that v (a pattern
// anchored "(?:...)$") matches buf[s:pos] in full, i.e. every valid
// anchored left-extension of the atom at pos.
func leftExtensions(buf []byte, pos, halfWindow int, v rx.Regexp) []int {
	winStart := max(0, pos-halfWindow)
	window := buf[winStart:pos]
	var starts []int
	for s := 0; s <= len(window); s++ {
		if loc := v.FindIndex(window[s:]); loc != nil && loc[0] == 0 {
			starts = append(starts, winStart+s)
		}
	}
	return starts
}

// rightExtensions returns every end offset e such that v (a pattern
// anchored "^(?:...)") matches buf[atomEnd:e] in full, i.e. every valid
// anchored right-extension of the atom ending at atomEnd.
func rightExtensions(buf []byte, atomEnd, halfWindow int, v rx.Regexp) []int {
	winEnd := min(len(buf), atomEnd+halfWindow)
	window := buf[atomEnd:winEnd]
	var ends []int
	for e := 0; e <= len(window); e++ {
		if loc := v.FindIndex(window[:e]); loc != nil && loc[1] == e {
			ends = append(ends, atomEnd+e)
		}
	}
	return ends
}

// ScanFile memory-maps filename and scans it, matching the teacher's
// scanner.go ScanFile strategy for avoiding a full read into memory.
func (r *Rules) ScanFile(filename string, flags ScanFlags, timeout time.Duration, cb ScanCallback) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	size := fi.Size()
	if size == 0 {
		return r.ScanMem(nil, flags, timeout, cb)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	defer func() { _ = unix.Munmap(data) }()

	return r.ScanMem(data, flags, timeout, cb)
}

func addMatch(m map[int]map[string][]matchSpan, ruleIdx int, name string, start, end int) {
	if m[ruleIdx] == nil {
		m[ruleIdx] = map[string][]matchSpan{}
	}
	m[ruleIdx][name] = append(m[ruleIdx][name], matchSpan{start, end})
}

func dedupe(positions []int) []int {
	if len(positions) <= 1 {
		return positions
	}
	slices.Sort(positions)
	j := 1
	for i := 1; i < len(positions); i++ {
		if positions[i] != positions[j-1] {
			positions[j] = positions[i]
			j++
		}
	}
	return positions[:j]
}
