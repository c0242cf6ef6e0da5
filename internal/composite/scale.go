// Package composite assembles annual cloud-free Landsat composites as
// server-side engine expressions: filter, mask, rescale, composite, fill,
// clip. All pixel math runs remotely; this package only describes it.
package composite

// Landsat Collection 2 Level-2 band names.
const (
	BandBlue    = "SR_B2"
	BandGreen   = "SR_B3"
	BandRed     = "SR_B4"
	BandNIR     = "SR_B5"
	BandSWIR1   = "SR_B6"
	BandSWIR2   = "SR_B7"
	BandThermal = "ST_B10"
	BandQA      = "QA_PIXEL"
	BandNDVI    = "NDVI"
)

// Collection 2 Level-2 rescale factors. Optical DNs become surface
// reflectance, thermal DNs become surface temperature in Kelvin.
const (
	OpticalScale  = 0.0000275
	OpticalOffset = -0.2
	ThermalScale  = 0.00341802
	ThermalOffset = 149.0
)

// QA_PIXEL flag bits. A pixel is usable only when both are unset.
const (
	QABitCloud  = 3
	QABitShadow = 5
)

// CloudShadowBits is the QA_PIXEL mask covering cloud and cloud shadow.
const CloudShadowBits = 1<<QABitCloud | 1<<QABitShadow

const kelvinOffset = 273.15

// ReflectanceFromDN converts an optical band DN to surface reflectance.
func ReflectanceFromDN(dn float64) float64 {
	return dn*OpticalScale + OpticalOffset
}

// KelvinFromDN converts a thermal band DN to surface temperature in Kelvin.
func KelvinFromDN(dn float64) float64 {
	return dn*ThermalScale + ThermalOffset
}

// KelvinToCelsius converts a surface temperature to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - kelvinOffset
}

// CelsiusToKelvin converts a surface temperature to Kelvin.
func CelsiusToKelvin(c float64) float64 {
	return c + kelvinOffset
}

// ClearPixel reports whether a QA_PIXEL value marks a usable pixel: neither
// the cloud bit nor the cloud-shadow bit is set.
func ClearPixel(qa int) bool {
	return qa&CloudShadowBits == 0
}
