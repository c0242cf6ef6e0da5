package earthengine

// Image is a server-side image expression. Methods build new expressions and
// never fetch pixels; materialization happens through Client calls.
type Image struct {
	expr *Expr
}

// Select keeps only the named bands.
func (im Image) Select(bands ...string) Image {
	return Image{expr: invoke("Image.select",
		refArg("input", im.expr),
		constArg("bandSelectors", bands),
	)}
}

// Rename renames the image bands in order.
func (im Image) Rename(names ...string) Image {
	return Image{expr: invoke("Image.rename",
		refArg("input", im.expr),
		constArg("names", names),
	)}
}

// AddBands appends all bands of other to the image. When overwrite is true,
// bands with colliding names are replaced instead of duplicated.
func (im Image) AddBands(other Image, overwrite bool) Image {
	return Image{expr: invoke("Image.addBands",
		refArg("dstImg", im.expr),
		refArg("srcImg", other.expr),
		constArg("overwrite", overwrite),
	)}
}

// Multiply scales every band by a constant.
func (im Image) Multiply(v float64) Image {
	return Image{expr: invoke("Image.multiply",
		refArg("image1", im.expr),
		constArg("image2", v),
	)}
}

// Add offsets every band by a constant.
func (im Image) Add(v float64) Image {
	return Image{expr: invoke("Image.add",
		refArg("image1", im.expr),
		constArg("image2", v),
	)}
}

// Subtract subtracts a constant from every band.
func (im Image) Subtract(v float64) Image {
	return Image{expr: invoke("Image.subtract",
		refArg("image1", im.expr),
		constArg("image2", v),
	)}
}

// BitwiseAnd masks every band with an integer bit pattern.
func (im Image) BitwiseAnd(bits int) Image {
	return Image{expr: invoke("Image.bitwiseAnd",
		refArg("image1", im.expr),
		constArg("image2", bits),
	)}
}

// Eq compares every band against a constant, producing a 0/1 image.
func (im Image) Eq(v float64) Image {
	return Image{expr: invoke("Image.eq",
		refArg("image1", im.expr),
		constArg("image2", v),
	)}
}

// NormalizedDifference computes (b1 - b2) / (b1 + b2) as a single band named
// "nd".
func (im Image) NormalizedDifference(b1, b2 string) Image {
	return Image{expr: invoke("Image.normalizedDifference",
		refArg("input", im.expr),
		constArg("bandNames", []string{b1, b2}),
	)}
}

// UpdateMask marks pixels invalid wherever mask is zero.
func (im Image) UpdateMask(mask Image) Image {
	return Image{expr: invoke("Image.updateMask",
		refArg("image", im.expr),
		refArg("mask", mask.expr),
	)}
}

// FocalMean smooths the image with a square neighborhood mean of the given
// pixel radius, applied iterations times. Used for filling masked holes.
func (im Image) FocalMean(radius float64, iterations int) Image {
	return Image{expr: invoke("Image.focalMean",
		refArg("image", im.expr),
		constArg("radius", radius),
		constArg("kernelType", "square"),
		constArg("units", "pixels"),
		constArg("iterations", iterations),
	)}
}

// Blend overlays top onto the image wherever top has valid pixels.
func (im Image) Blend(top Image) Image {
	return Image{expr: invoke("Image.blend",
		refArg("image1", im.expr),
		refArg("image2", top.expr),
	)}
}

// Clip restricts the image to the given geometry.
func (im Image) Clip(g Geometry) Image {
	return Image{expr: invoke("Image.clip",
		refArg("input", im.expr),
		constArg("geometry", g.GeoJSON()),
	)}
}

// Visualize bakes visualization parameters into the expression, producing a
// 3-band display image the engine can rasterize directly.
func (im Image) Visualize(v VisParams) Image {
	args := []argument{refArg("image", im.expr)}
	if len(v.Bands) > 0 {
		args = append(args, constArg("bands", v.Bands))
	}
	if len(v.Min) > 0 {
		args = append(args, constArg("min", v.Min))
	}
	if len(v.Max) > 0 {
		args = append(args, constArg("max", v.Max))
	}
	if len(v.Palette) > 0 {
		args = append(args, constArg("palette", v.Palette))
	}
	return Image{expr: invoke("Image.visualize", args...)}
}

// ReduceRegion aggregates the image's pixels inside geometry with the given
// reducer at the given scale in meters, yielding a computable dictionary of
// per-band statistics.
func (im Image) ReduceRegion(r Reducer, g Geometry, scale float64) Value {
	return Value{expr: invoke("Image.reduceRegion",
		refArg("image", im.expr),
		refArg("reducer", r.expr),
		constArg("geometry", g.GeoJSON()),
		constArg("scale", scale),
		constArg("bestEffort", true),
	)}
}

// Expr exposes the underlying expression node for serialization.
func (im Image) Expr() *Expr { return im.expr }

// Reducer identifies a server-side aggregation.
type Reducer struct {
	expr *Expr
}

// MeanReducer averages pixel values per band.
func MeanReducer() Reducer { return Reducer{expr: invoke("Reducer.mean")} }

// MinMaxReducer computes per-band minima and maxima.
func MinMaxReducer() Reducer { return Reducer{expr: invoke("Reducer.minMax")} }

// Value is a computable scalar or dictionary expression.
type Value struct {
	expr *Expr
}

// Expr exposes the underlying expression node for serialization.
func (v Value) Expr() *Expr { return v.expr }

// VisParams controls how an image expression is rasterized for display.
type VisParams struct {
	Bands   []string  `json:"bands,omitempty"`
	Min     []float64 `json:"min,omitempty"`
	Max     []float64 `json:"max,omitempty"`
	Palette []string  `json:"palette,omitempty"`
}
