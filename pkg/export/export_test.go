package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Headers: []string{"Code", "Course", "Credits", "Status", "Grade", "Points"},
		Rows: [][]string{
			{"CS101", "Intro to Programming", "3", "COMPLETED", "A", "4.0"},
			{"MATH201", "Linear Algebra", "4", "ACTIVE", "", ""},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, "Code,Course,Credits,Status,Grade,Points")
	assert.Contains(t, body, "CS101,Intro to Programming,3,COMPLETED,A,4.0")
	assert.Contains(t, body, "MATH201,Linear Algebra,4,ACTIVE,,")
}

func TestCSVExporterRenderPadsShortRows(t *testing.T) {
	table := Table{
		Headers: []string{"Code", "Grade"},
		Rows:    [][]string{{"CS101"}},
	}
	out, err := NewCSVExporter().Render(table)
	require.NoError(t, err)
	assert.Contains(t, string(out), "CS101,")
}

func TestCSVExporterRenderNoHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable(), "Transcript - Dana Hale", "Cumulative GPA: 3.40")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Greater(t, len(out), 500)
}

func TestPDFExporterRenderNoHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Table{}, "", "")
	assert.Error(t, err)
}
