package destinations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	d, err := c.Lookup("Kobe")
	require.NoError(t, err)
	assert.Equal(t, 34.6795, d.Lat)
	assert.Equal(t, 135.1780, d.Lng)
	assert.Equal(t, "Kobe Station", d.Label)

	names := make([]string, 0)
	for _, e := range c.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"kobe", "osaka", "sannomiya", "tokyo"}, names)

	_, err = c.Lookup("nagoya")
	assert.ErrorIs(t, err, ErrUnknownDestination)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "destinations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
destinations:
  - name: harborland
    lat: 34.6787
    lng: 135.1836
  - name: motomachi
    label: Motomachi Station
    lat: 34.6893
    lng: 135.1866
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Entries(), 2)

	d, err := c.Lookup(" HarborLand ")
	require.NoError(t, err)
	assert.Equal(t, "harborland", d.Label)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "destinations: [oops"},
		{"missing name", "destinations:\n  - lat: 1\n    lng: 2\n"},
		{"latitude out of range", "destinations:\n  - name: x\n    lat: 91\n    lng: 2\n"},
		{"duplicate", "destinations:\n  - name: x\n    lat: 1\n    lng: 2\n  - name: X\n    lat: 1\n    lng: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
