package splitter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="0.0000" lon="85.3000"/>
  <node id="2" lat="0.0000" lon="85.3001"/>
  <node id="3" lat="0.0001" lon="85.3001"/>
  <node id="4" lat="0.0001" lon="85.3000"/>
  <node id="5" lat="-0.0010" lon="85.3005"/>
  <node id="6" lat="0.0010" lon="85.3005"/>
  <node id="7" lat="0.0005" lon="85.3020"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <nd ref="4"/>
    <nd ref="1"/>
    <tag k="building" v="yes"/>
  </way>
  <way id="11">
    <nd ref="5"/>
    <nd ref="6"/>
    <tag k="highway" v="primary"/>
  </way>
  <way id="12">
    <nd ref="5"/>
    <nd ref="7"/>
    <tag k="leisure" v="park"/>
  </way>
  <way id="13">
    <nd ref="6"/>
    <nd ref="99"/>
    <tag k="highway" v="secondary"/>
  </way>
</osm>`

func TestExtractFromOSMFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.osm")
	require.NoError(t, os.WriteFile(path, []byte(sampleOSM), 0644))

	fc, err := ExtractFromOSMFile(context.Background(), path)
	require.NoError(t, err)

	// The park way (neither building nor line) and the way with a missing
	// node are dropped.
	require.Len(t, fc.Features, 2)

	var polygons, lines int
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon:
			polygons++
			assert.Equal(t, "yes", f.Properties["building"])
			assert.Equal(t, "10", f.Properties["osm_id"])
		case orb.LineString:
			lines++
			assert.Equal(t, "primary", f.Properties["highway"])
		}
	}
	assert.Equal(t, 1, polygons)
	assert.Equal(t, 1, lines)
}

func TestExtractFromOSMFile_FeedsExtractInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.osm")
	require.NoError(t, os.WriteFile(path, []byte(sampleOSM), 0644))

	fc, err := ExtractFromOSMFile(context.Background(), path)
	require.NoError(t, err)

	cfg := DefaultConfig()
	lines, buildings := ExtractInputs(fc, &cfg)
	assert.Len(t, lines, 1)
	assert.Len(t, buildings, 1)
}

func TestExtractFromOSMFile_MissingFile(t *testing.T) {
	_, err := ExtractFromOSMFile(context.Background(), "does-not-exist.osm")
	assert.Error(t, err)
}
