package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/banshee-data/scan360/internal/scan/decode"
	"github.com/banshee-data/scan360/internal/scan/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFrame_SchemaShape(t *testing.T) {
	tracked := []track.Tracked{
		{
			ID:       3,
			Centroid: [3]float64{1, 2, 3},
			Velocity: [3]float64{0.1, 0, 0},
			Speed:    0.1,
			BBoxMin:  [3]float64{0, 1, 2},
			BBoxMax:  [3]float64{2, 3, 4},
			Moved:    true,
			Count:    2,
			Points: []decode.Point{
				{X: 1, Y: 2, Z: 3, Theta: 0.5},
				{X: 1.1, Y: 2.1, Z: 3.1, Theta: 0.51},
			},
		},
	}
	noise := []decode.Point{{X: 9, Y: 9, Z: 9, ClusterID: decode.ClusterNoise}}

	raw, err := BuildFrame(tracked, noise, []string{"Cluster 3 ..."})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	points, _ := decoded["points"].([]any)
	assert.Len(t, points, 3, "2 tracked + 1 noise point")

	clusters, _ := decoded["clusters"].(map[string]any)
	_, ok := clusters["3"]
	assert.True(t, ok, "cluster keyed by its string id")

	alerts, _ := decoded["alerts"].([]any)
	assert.Len(t, alerts, 1)
}

func TestBuildFrame_EmptyInputStillProducesValidEmptyArrays(t *testing.T) {
	raw, err := BuildFrame(nil, nil, nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{}, decoded["points"])
	assert.Equal(t, []any{}, decoded["alerts"])
}
