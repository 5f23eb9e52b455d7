package adapter

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

func sampleReport() *m.Report {
	r := m.NewReport()
	add := m.Location{StartLine: 11, StartColumn: 9, EndLine: 11, EndColumn: 22}
	pick := m.Location{StartLine: 18, StartColumn: 9, EndLine: 18, EndColumn: 32}

	r.RecordResult("src/Calculator.cs", add, "IL_0003: add => sub", true)
	r.RecordResult("src/Calculator.cs", add, "IL_0003: add => div", false)
	r.RegisterLocation("src/Calculator.cs", pick)
	r.SetSourceLines("src/Calculator.cs", []string{"namespace Calc {", "    return a < b && \"x\";", ""})

	return r
}

func TestFileReportStore_RoundTrip(t *testing.T) {
	for _, path := range []m.Path{"/out/report.xml", "/out/report.yaml", "/out/report.yml"} {
		t.Run(string(path), func(t *testing.T) {
			store := NewReportStore(afero.NewMemMapFs())
			ctx := context.Background()
			report := sampleReport()

			require.NoError(t, store.Write(ctx, path, report))

			got, err := store.Read(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, report.Snapshot(), got.Snapshot())
		})
	}
}

func TestFileReportStore_XMLShape(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewReportStore(fs)

	require.NoError(t, store.Write(context.Background(), "/report.xml", sampleReport()))

	data, err := afero.ReadFile(fs, "/report.xml")
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "<MutationTestingReport>")
	assert.Contains(t, text, `<SourceFile Url="src/Calculator.cs">`)
	assert.Contains(t, text, `<SequencePoint StartLine="11" StartColumn="9" EndLine="11" EndColumn="22">`)
	assert.Contains(t, text, `<AppliedMutant Description="IL_0003: add =&gt; sub" Killed="true"></AppliedMutant>`)
	assert.Contains(t, text, `<Line Number="2">    return a &lt; b &amp;&amp; &#34;x&#34;;</Line>`)

	exists, err := afero.Exists(fs, "/report.xml.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileReportStore_Merge(t *testing.T) {
	store := NewReportStore(afero.NewMemMapFs())
	ctx := context.Background()
	loc := m.Location{StartLine: 3, EndLine: 3}

	first := m.NewReport()
	first.RecordResult("a.cs", loc, "IL_0001: add => sub", true)

	require.NoError(t, store.Merge(ctx, "/r.yaml", first))

	second := m.NewReport()
	second.RecordResult("a.cs", loc, "IL_0001: add => sub", false)
	second.RecordResult("b.cs", loc, "IL_0004: and => or", false)

	require.NoError(t, store.Merge(ctx, "/r.yaml", second))
	require.NoError(t, store.Merge(ctx, "/r.yaml", second))

	got, err := store.Read(ctx, "/r.yaml")
	require.NoError(t, err)

	summary := got.Summary()
	assert.Equal(t, 2, summary.Files)
	assert.Equal(t, 2, summary.Mutants)
	assert.Equal(t, 1, summary.Killed)

	snapshot := got.Snapshot()
	assert.True(t, snapshot.Files[0].Points[0].Mutants[0].Killed)
}

func TestFileReportStore_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewReportStore(fs)
	ctx := context.Background()

	err := store.Write(ctx, "/report.json", m.NewReport())
	require.ErrorIs(t, err, ErrUnsupportedReportFormat)

	_, err = store.Read(ctx, "/missing.xml")
	require.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/broken.xml", []byte("<MutationTestingReport><SourceFile"), 0o644))
	_, err = store.Read(ctx, "/broken.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode report")

	err = store.Merge(ctx, "/broken.xml", m.NewReport())
	require.Error(t, err)
}
