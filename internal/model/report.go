package model

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

// Location identifies a sequence point inside one source file.
type Location struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// LocationOf returns the key of a sequence point.
func LocationOf(sp *il.SequencePoint) Location {
	return Location{
		StartLine:   sp.StartLine,
		StartColumn: sp.StartColumn,
		EndLine:     sp.EndLine,
		EndColumn:   sp.EndColumn,
	}
}

func (l Location) compare(other Location) int {
	return cmp.Or(
		cmp.Compare(l.StartLine, other.StartLine),
		cmp.Compare(l.StartColumn, other.StartColumn),
		cmp.Compare(l.EndLine, other.EndLine),
		cmp.Compare(l.EndColumn, other.EndColumn),
	)
}

// AppliedMutant is a mutant recorded at a location.
type AppliedMutant struct {
	Description string
	Killed      bool
}

// SequencePoint holds the mutants applied at one location.
type SequencePoint struct {
	mu       sync.RWMutex
	location Location
	mutants  []AppliedMutant
	index    map[string]int
}

// SourceFile holds the sequence points of one source document.
type SourceFile struct {
	mu     sync.RWMutex
	url    string
	lines  []string
	points map[Location]*SequencePoint
}

// Report is the mergeable tree of mutation results:
// source file → sequence point → applied mutant.
//
// Every level is keyed and insert-only: a key is added once and never
// replaced, so the first recorded kill flag for a description wins. All
// methods are safe for concurrent use.
type Report struct {
	mu    sync.RWMutex
	files map[string]*SourceFile
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{files: make(map[string]*SourceFile)}
}

func (r *Report) file(url string) *SourceFile {
	r.mu.RLock()
	f, ok := r.files[url]
	r.mu.RUnlock()

	if ok {
		return f
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.files[url]; ok {
		return f
	}

	f = &SourceFile{url: url, points: make(map[Location]*SequencePoint)}
	r.files[url] = f

	return f
}

func (f *SourceFile) point(loc Location) *SequencePoint {
	f.mu.RLock()
	p, ok := f.points[loc]
	f.mu.RUnlock()

	if ok {
		return p
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.points[loc]; ok {
		return p
	}

	p = &SequencePoint{location: loc, index: make(map[string]int)}
	f.points[loc] = p

	return p
}

func (f *SourceFile) setLines(lines []string) {
	if len(lines) == 0 {
		return
	}

	f.mu.RLock()
	set := len(f.lines) > 0
	f.mu.RUnlock()

	if set {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.lines) == 0 {
		f.lines = slices.Clone(lines)
	}
}

func (p *SequencePoint) record(description string, killed bool) bool {
	p.mu.RLock()
	_, ok := p.index[description]
	p.mu.RUnlock()

	if ok {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.index[description]; ok {
		return false
	}

	p.index[description] = len(p.mutants)
	p.mutants = append(p.mutants, AppliedMutant{Description: description, Killed: killed})

	return true
}

// RegisterLocation ensures the location exists in the report.
func (r *Report) RegisterLocation(file string, loc Location) {
	r.file(file).point(loc)
}

// RegisterMethod registers every visible sequence point of a method, so that
// lines without mutants still appear in the report.
func (r *Report) RegisterMethod(m *il.Method) {
	if m.Body == nil {
		return
	}

	for _, in := range m.Body.Instructions {
		sp := in.SequencePoint
		if sp == nil || sp.Hidden {
			continue
		}

		r.RegisterLocation(sp.Document, LocationOf(sp))
	}
}

// RecordResult records a mutant at a location. It reports false when a mutant
// with the same description was already recorded there; the earlier kill
// flag is kept.
func (r *Report) RecordResult(file string, loc Location, description string, killed bool) bool {
	return r.file(file).point(loc).record(description, killed)
}

// SetSourceLines attaches source text to a file. The first non-empty set wins.
func (r *Report) SetSourceLines(file string, lines []string) {
	r.file(file).setLines(lines)
}

// MergeFrom performs a key-wise union of other into r. The source is
// snapshotted first, so merging a report into itself is a no-op.
func (r *Report) MergeFrom(other *Report) {
	r.MergeSnapshot(other.Snapshot())
}

// MergeSnapshot performs a key-wise union of a snapshot into r.
func (r *Report) MergeSnapshot(s ReportSnapshot) {
	for _, fs := range s.Files {
		f := r.file(fs.URL)
		f.setLines(fs.Lines)

		for _, ps := range fs.Points {
			p := f.point(ps.Location)

			for _, m := range ps.Mutants {
				p.record(m.Description, m.Killed)
			}
		}
	}
}

// ReportSnapshot is an immutable, sorted copy of a report.
type ReportSnapshot struct {
	Files []SourceFileSnapshot
}

// SourceFileSnapshot is the copy of one source file.
type SourceFileSnapshot struct {
	URL    string
	Lines  []string
	Points []SequencePointSnapshot
}

// SequencePointSnapshot is the copy of one location.
type SequencePointSnapshot struct {
	Location Location
	Mutants  []AppliedMutant
}

// Snapshot returns a deep copy with files sorted by URL, points by location
// and mutants by description. Locks are taken one at a time.
func (r *Report) Snapshot() ReportSnapshot {
	r.mu.RLock()
	files := make([]*SourceFile, 0, len(r.files))

	for _, f := range r.files {
		files = append(files, f)
	}
	r.mu.RUnlock()

	snapshot := ReportSnapshot{Files: make([]SourceFileSnapshot, 0, len(files))}

	for _, f := range files {
		f.mu.RLock()
		fs := SourceFileSnapshot{URL: f.url, Lines: slices.Clone(f.lines)}
		points := make([]*SequencePoint, 0, len(f.points))

		for _, p := range f.points {
			points = append(points, p)
		}
		f.mu.RUnlock()

		fs.Points = make([]SequencePointSnapshot, 0, len(points))

		for _, p := range points {
			p.mu.RLock()
			ps := SequencePointSnapshot{Location: p.location, Mutants: slices.Clone(p.mutants)}
			p.mu.RUnlock()

			slices.SortFunc(ps.Mutants, func(a, b AppliedMutant) int {
				return strings.Compare(a.Description, b.Description)
			})

			fs.Points = append(fs.Points, ps)
		}

		slices.SortFunc(fs.Points, func(a, b SequencePointSnapshot) int {
			return a.Location.compare(b.Location)
		})

		snapshot.Files = append(snapshot.Files, fs)
	}

	slices.SortFunc(snapshot.Files, func(a, b SourceFileSnapshot) int {
		return strings.Compare(a.URL, b.URL)
	})

	return snapshot
}

// ReportFromSnapshot rebuilds a report.
func ReportFromSnapshot(s ReportSnapshot) *Report {
	r := NewReport()
	r.MergeSnapshot(s)

	return r
}

// Summary totals a report.
type Summary struct {
	Files     int
	Locations int
	Mutants   int
	Killed    int
	Survived  int
}

// Score is the share of killed mutants in percent; 100 when nothing was recorded.
func (s Summary) Score() float64 {
	if s.Mutants == 0 {
		return 100
	}

	return float64(s.Killed) / float64(s.Mutants) * 100
}

// Summary totals the report.
func (r *Report) Summary() Summary {
	snapshot := r.Snapshot()
	summary := Summary{Files: len(snapshot.Files)}

	for _, f := range snapshot.Files {
		summary.Locations += len(f.Points)

		for _, p := range f.Points {
			for _, m := range p.Mutants {
				summary.Mutants++

				if m.Killed {
					summary.Killed++
				} else {
					summary.Survived++
				}
			}
		}
	}

	return summary
}
