package widget

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAspectRatio(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		want    float64
		flex    bool
		outcome ParseOutcome
	}{
		{"ratio", `<!-- aspect-ratio: 16:9 --><div></div>`, 16.0 / 9.0, false, OutcomeRatio},
		{"tight spacing", `<!--aspect-ratio:4:1-->`, 4, false, OutcomeRatio},
		{"flex", `<!-- aspect-ratio: flex -->`, 0, true, OutcomeFlex},
		{"zero height", `<!-- aspect-ratio: 5:0 -->`, 1.0, false, OutcomeMalformed},
		{"bad numbers", `<!-- aspect-ratio: wide:tall -->`, 1.0, false, OutcomeMalformed},
		{"zero width", `<!-- aspect-ratio: 0:3 -->`, 1.0, false, OutcomeMalformed},
		{"zero over five", `<!-- aspect-ratio: 0:5 -->`, 1.0, false, OutcomeMalformed},
		{"absent", `<div class="clock"></div>`, 2.0, false, OutcomeAbsent},
		{"no colon", `<!-- aspect-ratio: wide -->`, 2.0, false, OutcomeAbsent},
		{"too many parts", `<!-- aspect-ratio: 1:2:3 -->`, 2.0, false, OutcomeAbsent},
		{"not a comment", `aspect-ratio: 3:1`, 2.0, false, OutcomeAbsent},
		{"first declaration wins", "<!-- aspect-ratio: 3:1 -->\n<!-- aspect-ratio: flex -->", 3, false, OutcomeRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, outcome := ParseAspectRatio(tt.markup)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.flex, ratio.IsFlex())
			if !tt.flex {
				assert.InDelta(t, tt.want, ratio.Value(), 1e-9)
			}
		})
	}
}

func TestAspectRatio_WidthFor(t *testing.T) {
	w, ok := Ratio(2.0).WidthFor(100)
	assert.True(t, ok)
	assert.Equal(t, 200, w)

	w, ok = Ratio(16.0 / 9.0).WidthFor(100)
	assert.True(t, ok)
	assert.Equal(t, 178, w)

	_, ok = Flex.WidthFor(100)
	assert.False(t, ok)
}

func TestAspectRatio_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]AspectRatio{"a": Ratio(1.5), "b": Flex})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":"flex"}`, string(data))

	var decoded map[string]AspectRatio
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded["b"].IsFlex())
	assert.Equal(t, 1.5, decoded["a"].Value())

	var bad AspectRatio
	assert.Error(t, json.Unmarshal([]byte(`"wide"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}
