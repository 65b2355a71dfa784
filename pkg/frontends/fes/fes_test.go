package fes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/ruslano69/geofilter/pkg/core/ast"
)

func attr(name string) *ast.Attribute { return &ast.Attribute{Name: name} }

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ast.Node
	}{
		{
			name: "comparison",
			input: `<fes:Filter xmlns:fes="http://www.opengis.net/fes/2.0">
				<fes:PropertyIsEqualTo>
					<fes:ValueReference>attr</fes:ValueReference>
					<fes:Literal type="xsd:string">value</fes:Literal>
				</fes:PropertyIsEqualTo>
			</fes:Filter>`,
			want: &ast.Comparison{LHS: attr("attr"), RHS: "value", Op: ast.ComparisonEq},
		},
		{
			name: "and with untyped literals",
			input: `<Filter>
				<And>
					<PropertyIsLessThan>
						<ValueReference>a</ValueReference>
						<Literal>5</Literal>
					</PropertyIsLessThan>
					<PropertyIsGreaterThanOrEqualTo>
						<ValueReference>b</ValueReference>
						<Literal>1.5</Literal>
					</PropertyIsGreaterThanOrEqualTo>
				</And>
			</Filter>`,
			want: ast.NewAnd(
				&ast.Comparison{LHS: attr("a"), RHS: int64(5), Op: ast.ComparisonLt},
				&ast.Comparison{LHS: attr("b"), RHS: 1.5, Op: ast.ComparisonGe},
			),
		},
		{
			name: "not null",
			input: `<Filter>
				<Not>
					<PropertyIsNull>
						<ValueReference>attr</ValueReference>
					</PropertyIsNull>
				</Not>
			</Filter>`,
			want: &ast.Not{Sub: &ast.IsNull{LHS: attr("attr")}},
		},
		{
			name: "like carries token attributes verbatim",
			input: `<Filter>
				<PropertyIsLike wildCard="*" singleChar="#" escapeChar="!" matchCase="false">
					<ValueReference>attr</ValueReference>
					<Literal>some*</Literal>
				</PropertyIsLike>
			</Filter>`,
			want: &ast.Like{
				LHS: attr("attr"), Pattern: "some*", NoCase: true,
				Wildcard: "*", SingleChar: "#", EscapeChar: "!",
			},
		},
		{
			name: "between with boundaries",
			input: `<Filter>
				<PropertyIsBetween>
					<ValueReference>attr</ValueReference>
					<LowerBoundary><Literal>2</Literal></LowerBoundary>
					<UpperBoundary><Literal>5</Literal></UpperBoundary>
				</PropertyIsBetween>
			</Filter>`,
			want: &ast.Between{LHS: attr("attr"), Low: int64(2), High: int64(5)},
		},
		{
			name: "bbox with gml envelope",
			input: `<Filter xmlns:gml="http://www.opengis.net/gml/3.2">
				<BBOX>
					<ValueReference>geometry</ValueReference>
					<gml:Envelope srsName="EPSG:4326">
						<gml:lowerCorner>0 1</gml:lowerCorner>
						<gml:upperCorner>2 3</gml:upperCorner>
					</gml:Envelope>
				</BBOX>
			</Filter>`,
			want: &ast.BBox{
				LHS:  attr("geometry"),
				MinX: 0, MinY: 1, MaxX: 2, MaxY: 3,
				CRS: "EPSG:4326",
			},
		},
		{
			name: "intersects with gml point",
			input: `<Filter xmlns:gml="http://www.opengis.net/gml/3.2">
				<Intersects>
					<ValueReference>geometry</ValueReference>
					<gml:Point><gml:pos>1 2</gml:pos></gml:Point>
				</Intersects>
			</Filter>`,
			want: &ast.SpatialComparison{
				LHS: attr("geometry"),
				RHS: &ast.Geometry{Geometry: orb.Point{1, 2}},
				Op:  ast.SpatialIntersects,
			},
		},
		{
			name: "dwithin",
			input: `<Filter xmlns:gml="http://www.opengis.net/gml/3.2">
				<DWithin>
					<ValueReference>geometry</ValueReference>
					<gml:Point><gml:pos>1 2</gml:pos></gml:Point>
					<Distance uom="m">10</Distance>
				</DWithin>
			</Filter>`,
			want: &ast.SpatialDistance{
				LHS:      attr("geometry"),
				RHS:      &ast.Geometry{Geometry: orb.Point{1, 2}},
				Distance: 10, Units: "m",
				Op: ast.DistanceWithin,
			},
		},
		{
			name: "within envelope operand",
			input: `<Filter>
				<Within>
					<ValueReference>geometry</ValueReference>
					<Envelope>
						<lowerCorner>0 0</lowerCorner>
						<upperCorner>2 2</upperCorner>
					</Envelope>
				</Within>
			</Filter>`,
			want: &ast.SpatialComparison{
				LHS: attr("geometry"),
				RHS: &ast.Envelope{X1: 0, X2: 2, Y1: 0, Y2: 2},
				Op:  ast.SpatialWithin,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		``,
		`<Filter></Filter>`,
		`<Filter><Unsupported/></Filter>`,
		`<Filter><PropertyIsEqualTo><ValueReference>a</ValueReference></PropertyIsEqualTo></Filter>`,
		`not xml`,
	}
	for _, input := range inputs {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("Parse(%q): expected error", input)
		}
	}
}
