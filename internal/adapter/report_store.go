package adapter

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

// ErrUnsupportedReportFormat is returned for report paths whose extension is
// neither .xml nor .yaml/.yml.
var ErrUnsupportedReportFormat = errors.New("unsupported report format")

// ReportStore persists mutation reports.
type ReportStore interface {
	// Write replaces the report at path.
	Write(ctx context.Context, path m.Path, report *m.Report) error
	// Read loads the report at path.
	Read(ctx context.Context, path m.Path) (*m.Report, error)
	// Merge folds report into the one at path, creating it when absent.
	// Entries already in the file win over entries of report.
	Merge(ctx context.Context, path m.Path, report *m.Report) error
}

// FileReportStore stores reports as XML or YAML documents, chosen by
// extension.
type FileReportStore struct {
	fs afero.Fs
}

// NewReportStore creates a store over fs.
func NewReportStore(fs afero.Fs) *FileReportStore {
	return &FileReportStore{fs: fs}
}

type reportCodec struct {
	marshal   func(reportDoc) ([]byte, error)
	unmarshal func([]byte) (reportDoc, error)
}

func codecFor(path m.Path) (reportCodec, error) {
	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".xml":
		return reportCodec{marshal: marshalXML, unmarshal: unmarshalXML}, nil
	case ".yaml", ".yml":
		return reportCodec{marshal: marshalYAML, unmarshal: unmarshalYAML}, nil
	default:
		return reportCodec{}, fmt.Errorf("%w: %s", ErrUnsupportedReportFormat, path)
	}
}

// Write implements ReportStore.
func (s *FileReportStore) Write(ctx context.Context, path m.Path, report *m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	codec, err := codecFor(path)
	if err != nil {
		return err
	}

	data, err := codec.marshal(docFromSnapshot(report.Snapshot()))
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", path, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	tmp := string(path) + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}

	if err := s.fs.Rename(tmp, string(path)); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}

	return nil
}

// Read implements ReportStore.
func (s *FileReportStore) Read(ctx context.Context, path m.Path) (*m.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	codec, err := codecFor(path)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}

	doc, err := codec.unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}

	return m.ReportFromSnapshot(doc.snapshot()), nil
}

// Merge implements ReportStore.
func (s *FileReportStore) Merge(ctx context.Context, path m.Path, report *m.Report) error {
	existing, err := s.Read(ctx, path)

	switch {
	case err == nil:
		existing.MergeFrom(report)
	case errors.Is(err, os.ErrNotExist):
		existing = report
	default:
		return err
	}

	return s.Write(ctx, path, existing)
}

type reportDoc struct {
	XMLName xml.Name  `xml:"MutationTestingReport" yaml:"-"`
	Files   []fileDoc `xml:"SourceFile"            yaml:"files"`
}

type fileDoc struct {
	URL    string     `xml:"Url,attr"      yaml:"url"`
	Lines  []lineDoc  `xml:"Lines>Line"    yaml:"-"`
	Text   []string   `xml:"-"             yaml:"lines,omitempty"`
	Points []pointDoc `xml:"SequencePoint" yaml:"sequence_points"`
}

type lineDoc struct {
	Number int    `xml:"Number,attr"`
	Text   string `xml:",chardata"`
}

type pointDoc struct {
	StartLine   int         `xml:"StartLine,attr"   yaml:"start_line"`
	StartColumn int         `xml:"StartColumn,attr" yaml:"start_column"`
	EndLine     int         `xml:"EndLine,attr"     yaml:"end_line"`
	EndColumn   int         `xml:"EndColumn,attr"   yaml:"end_column"`
	Mutants     []mutantDoc `xml:"AppliedMutant"    yaml:"mutants,omitempty"`
}

type mutantDoc struct {
	Description string `xml:"Description,attr" yaml:"description"`
	Killed      bool   `xml:"Killed,attr"      yaml:"killed"`
}

func docFromSnapshot(s m.ReportSnapshot) reportDoc {
	doc := reportDoc{Files: make([]fileDoc, 0, len(s.Files))}

	for _, f := range s.Files {
		fd := fileDoc{URL: f.URL, Text: f.Lines, Points: make([]pointDoc, 0, len(f.Points))}

		for i, line := range f.Lines {
			fd.Lines = append(fd.Lines, lineDoc{Number: i + 1, Text: line})
		}

		for _, p := range f.Points {
			pd := pointDoc{
				StartLine:   p.Location.StartLine,
				StartColumn: p.Location.StartColumn,
				EndLine:     p.Location.EndLine,
				EndColumn:   p.Location.EndColumn,
			}

			for _, mutant := range p.Mutants {
				pd.Mutants = append(pd.Mutants, mutantDoc{Description: mutant.Description, Killed: mutant.Killed})
			}

			fd.Points = append(fd.Points, pd)
		}

		doc.Files = append(doc.Files, fd)
	}

	return doc
}

func (d reportDoc) snapshot() m.ReportSnapshot {
	s := m.ReportSnapshot{Files: make([]m.SourceFileSnapshot, 0, len(d.Files))}

	for _, fd := range d.Files {
		f := m.SourceFileSnapshot{URL: fd.URL, Lines: fd.Text}

		for _, pd := range fd.Points {
			p := m.SequencePointSnapshot{Location: m.Location{
				StartLine:   pd.StartLine,
				StartColumn: pd.StartColumn,
				EndLine:     pd.EndLine,
				EndColumn:   pd.EndColumn,
			}}

			for _, md := range pd.Mutants {
				p.Mutants = append(p.Mutants, m.AppliedMutant{Description: md.Description, Killed: md.Killed})
			}

			f.Points = append(f.Points, p)
		}

		s.Files = append(s.Files, f)
	}

	return s
}

func marshalXML(doc reportDoc) ([]byte, error) {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), append(data, '\n')...), nil
}

func unmarshalXML(data []byte) (reportDoc, error) {
	var doc reportDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return reportDoc{}, err
	}

	for i := range doc.Files {
		lines := doc.Files[i].Lines
		if len(lines) == 0 {
			continue
		}

		text := make([]string, 0, len(lines))
		for _, line := range lines {
			text = append(text, line.Text)
		}

		doc.Files[i].Text = text
	}

	return doc, nil
}

func marshalYAML(doc reportDoc) ([]byte, error) {
	return yaml.Marshal(&doc)
}

func unmarshalYAML(data []byte) (reportDoc, error) {
	var doc reportDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return reportDoc{}, err
	}

	return doc, nil
}
