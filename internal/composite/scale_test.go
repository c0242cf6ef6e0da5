package composite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReflectanceFromDN(t *testing.T) {
	t.Parallel()

	// Collection 2 reference point: DN 20000 is 0.35 reflectance.
	assert.InDelta(t, 0.35, ReflectanceFromDN(20000), 1e-9)
	assert.InDelta(t, -0.2, ReflectanceFromDN(0), 1e-9)
	assert.InDelta(t, 1.6025, ReflectanceFromDN(65535), 1e-4)
}

func TestKelvinFromDN(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 149.0, KelvinFromDN(0), 1e-9)
	assert.InDelta(t, 299.39288, KelvinFromDN(44000), 1e-6)
}

func TestKelvinCelsiusRoundTrip(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, KelvinToCelsius(273.15), 1e-9)
	assert.InDelta(t, 26.85, KelvinToCelsius(300), 1e-9)
	assert.InDelta(t, 300.0, CelsiusToKelvin(KelvinToCelsius(300)), 1e-9)
	assert.InDelta(t, -273.15, KelvinToCelsius(0), 1e-9)
}

func TestCloudShadowBits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 40, CloudShadowBits) // bits 3 and 5
}

func TestClearPixel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		qa   int
		want bool
	}{
		{"all clear", 0, true},
		{"cloud bit", 1 << QABitCloud, false},
		{"shadow bit", 1 << QABitShadow, false},
		{"cloud and shadow", 1<<QABitCloud | 1<<QABitShadow, false},
		{"unrelated bits only", 0b1010111, true}, // bits 0,1,2,4,6
		{"cloud plus unrelated", 1<<QABitCloud | 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClearPixel(tt.qa))
		})
	}
}
