package earthengine

import "time"

// isoDate is the calendar-date layout the engine accepts in date filters.
const isoDate = "2006-01-02"

// Collection is a server-side image collection expression. All methods build
// new expressions; nothing is evaluated until a materialize call on Client.
type Collection struct {
	expr *Expr
}

// ImageCollection starts an expression from a catalog collection ID, e.g.
// "LANDSAT/LC08/C02/T1_L2".
func ImageCollection(id string) Collection {
	return Collection{expr: invoke("ImageCollection.load", constArg("id", id))}
}

// FilterBounds keeps images intersecting the given geometry.
func (c Collection) FilterBounds(g Geometry) Collection {
	return Collection{expr: invoke("ImageCollection.filterBounds",
		refArg("collection", c.expr),
		constArg("geometry", g.GeoJSON()),
	)}
}

// FilterDate keeps images acquired in [start, end).
func (c Collection) FilterDate(start, end time.Time) Collection {
	return Collection{expr: invoke("ImageCollection.filterDate",
		refArg("collection", c.expr),
		constArg("start", start.Format(isoDate)),
		constArg("end", end.Format(isoDate)),
	)}
}

// FilterMetadata keeps images whose named property satisfies the comparison,
// e.g. FilterMetadata("CLOUD_COVER", "less_than", 20).
func (c Collection) FilterMetadata(name, operator string, value any) Collection {
	return Collection{expr: invoke("ImageCollection.filterMetadata",
		refArg("collection", c.expr),
		constArg("name", name),
		constArg("operator", operator),
		constArg("value", value),
	)}
}

// Sort orders the collection by a metadata property.
func (c Collection) Sort(property string, ascending bool) Collection {
	return Collection{expr: invoke("ImageCollection.sort",
		refArg("collection", c.expr),
		constArg("property", property),
		constArg("ascending", ascending),
	)}
}

// Map applies fn to every image in the collection server-side. The callback
// runs once at build time against a placeholder image and must be pure
// expression assembly.
func (c Collection) Map(fn func(Image) Image) Collection {
	const argName = "_MAPPING_VAR_0_img"
	body := fn(Image{expr: argRef(argName)})
	return Collection{expr: invoke("ImageCollection.map",
		refArg("collection", c.expr),
		refArg("baseAlgorithm", funcDef([]string{argName}, body.expr)),
	)}
}

// Median reduces the collection to its per-pixel median composite.
func (c Collection) Median() Image {
	return Image{expr: invoke("ImageCollection.median", refArg("collection", c.expr))}
}

// Mosaic composites the collection by stacking images in order, last on top.
func (c Collection) Mosaic() Image {
	return Image{expr: invoke("ImageCollection.mosaic", refArg("collection", c.expr))}
}

// First returns the first image of the collection in its current order.
func (c Collection) First() Image {
	return Image{expr: invoke("ImageCollection.first", refArg("collection", c.expr))}
}

// Size returns the number of images in the collection as a computable value.
func (c Collection) Size() Value {
	return Value{expr: invoke("ImageCollection.size", refArg("collection", c.expr))}
}

// Expr exposes the underlying expression node for serialization.
func (c Collection) Expr() *Expr { return c.expr }
