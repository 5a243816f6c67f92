package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Date", "Time", "Course", "Room"},
		Rows: []map[string]string{
			{"Date": "2026-01-12", "Time": "09:00", "Course": "CS101", "Room": "D201"},
			{"Date": "2026-01-12", "Time": "13:30", "Course": "CS305", "Room": "D202"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Date", "Time", "Course", "Room"}, records[0])
	assert.Equal(t, "CS305", records[2][2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	payload, err := NewPDFExporter().Render(sampleDataset(), "exam timetable")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestPDFExporterRenderSections(t *testing.T) {
	sections := []Section{
		{
			Heading:  "Room D201",
			Subtitle: "10 rows x 4 columns",
			Data: Dataset{
				Headers: []string{"Row", "Column", "Number", "Name"},
				Rows:    []map[string]string{{"Row": "1", "Column": "1", "Number": "2201", "Name": "A. Student"}},
			},
		},
	}
	payload, err := NewPDFExporter().RenderSections("seating plan", [][2]string{{"Course:", "CS101"}}, sections)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	payload, err := NewXLSXExporter().Render(sampleDataset(), "Timetable")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows("Timetable")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "CS101", rows[1][2])
}
