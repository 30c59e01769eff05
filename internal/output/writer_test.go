package output_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dnviti/k8s-useful-metrics/internal/output"
)

// testReport is a minimal report implementing the tabular view.
type testReport struct {
	Items []testItem `json:"items" yaml:"items"`
}

type testItem struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

func (r *testReport) TableHeaders() []string { return []string{"name", "value"} }

func (r *testReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Items))
	for _, i := range r.Items {
		rows = append(rows, []string{i.Name, "42"})
	}
	return rows
}

func sampleReport() *testReport {
	return &testReport{Items: []testItem{
		{Name: "alpha", Value: 42},
		{Name: "beta", Value: 42},
	}}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    output.Format
		wantErr bool
	}{
		{"table", output.FormatTable, false},
		{"JSON", output.FormatJSON, false},
		{" yaml ", output.FormatYAML, false},
		{"csv", output.FormatCSV, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := output.ParseFormat(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWriterSerializeJSON(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewWriter(output.FormatJSON, &buf)

	require.NoError(t, w.Serialize(sampleReport()))

	var got testReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "alpha", got.Items[0].Name)
	assert.Equal(t, 42, got.Items[0].Value)
}

func TestWriterSerializeYAML(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewWriter(output.FormatYAML, &buf)

	require.NoError(t, w.Serialize(sampleReport()))

	var got testReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "beta", got.Items[1].Name)
}

func TestWriterSerializeCSV(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewWriter(output.FormatCSV, &buf)

	require.NoError(t, w.Serialize(sampleReport()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"name", "value"}, records[0])
	assert.Equal(t, []string{"alpha", "42"}, records[1])
}

func TestWriterSerializeTable(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewWriter(output.FormatTable, &buf)
	w.SetTitle("Test Report")
	w.SetNoColor(true)

	require.NoError(t, w.Serialize(sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "Test Report")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
}

func TestWriterTabularRequired(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewWriter(output.FormatCSV, &buf)

	err := w.Serialize(map[string]string{"not": "tabular"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tabular view")
}

func TestNewFileWriterOrStdout(t *testing.T) {
	path := t.TempDir() + "/report.json"
	w := output.NewFileWriterOrStdout(output.FormatJSON, path)

	require.NoError(t, w.Serialize(sampleReport()))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "alpha")
}
