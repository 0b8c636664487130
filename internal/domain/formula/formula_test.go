package formula_test

import (
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gincana/internal/domain/formula"
	"github.com/okian/gincana/internal/domain/model"
)

func TestDetect(t *testing.T) {
	Convey("Given cells checked for formulas", t, func() {
		tests := []struct {
			name  string
			cell  model.Cell
			loose bool
			want  bool
		}{
			{name: "quantity times unit points", cell: "=G5*H5", want: true},
			{name: "lower case references", cell: "=g12*h12", want: true},
			{name: "absolute references", cell: "=$G$5*$H$5", want: true},
			{name: "only quantity referenced", cell: "=G5*2", want: false},
			{name: "organic text with equals", cell: "bonus=sim", want: false},
			{name: "numeric cell", cell: 12.0, want: false},
			{name: "nil cell", cell: nil, want: false},
			{name: "loose rule accepts any equals", cell: "bonus=sim", loose: true, want: true},
			{name: "loose rule still needs equals", cell: "G5*H5", loose: true, want: false},
		}

		for _, tt := range tests {
			Convey("When the cell is a "+tt.name, func() {
				var opts []formula.Option
				if tt.loose {
					opts = append(opts, formula.WithLooseDetection())
				}
				So(formula.New(opts...).Detect(tt.cell), ShouldEqual, tt.want)
			})
		}
	})
}

func TestResolve(t *testing.T) {
	Convey("Given a row with quantity 3 and unit points 5", t, func() {
		row := model.Row{model.ColQuantity: 3.0, model.ColUnitPoints: 5.0}

		tests := []struct {
			name   string
			cell   model.Cell
			loose  bool
			want   float64
			wantOK bool
		}{
			{name: "leading quantity reference", cell: "=G5*H5", want: 3, wantOK: true},
			{name: "absolute leading reference", cell: "=$G$5*$H$5", want: 3, wantOK: true},
			{name: "leading unit points reference", cell: "=H5*G5", want: 5, wantOK: true},
			{name: "literal leading factor", cell: "=4*H5", want: 4, wantOK: true},
			{name: "comma decimal literal", cell: "=2,5*H5", want: 2.5, wantOK: true},
			{name: "unreadable factor", cell: "=SUM(G5)*H5", want: 0, wantOK: false},
			{name: "non string cell", cell: 7.0, want: 0, wantOK: false},
			{name: "legacy extraction glues row numbers", cell: "=G5*H5", loose: true, want: 55, wantOK: true},
			{name: "legacy extraction on text", cell: "obs=ok", loose: true, want: 0, wantOK: false},
		}

		for _, tt := range tests {
			Convey("When resolving a "+tt.name, func() {
				var opts []formula.Option
				if tt.loose {
					opts = append(opts, formula.WithLooseDetection())
				}
				got, ok := formula.New(opts...).Resolve(tt.cell, row)
				So(ok, ShouldEqual, tt.wantOK)
				So(got, ShouldAlmostEqual, tt.want, 1e-9)
			})
		}
	})

	Convey("Given custom column letters", t, func() {
		c := formula.New(formula.WithColumnLetters("c", "d"))
		row := model.Row{model.ColQuantity: 8.0, model.ColUnitPoints: 2.0}

		Convey("Then only the configured references are formulas", func() {
			So(c.Detect("=C9*D9"), ShouldBeTrue)
			So(c.Detect("=G9*H9"), ShouldBeFalse)

			got, ok := c.Resolve("=C9*D9", row)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, 8.0)
		})
	})
}

func TestCoerceRow(t *testing.T) {
	Convey("Given a donation row with mixed cells", t, func() {
		c := formula.New()
		raw := model.Row{
			model.ColName:           "Ana Paula",
			model.ColQuantity:       "3",
			model.ColUnitPoints:     5,
			model.ColPointsSubtotal: "=G5*H5",
			model.ColBonus:          "abc",
			model.ColPointsTotal:    nil,
		}

		Convey("When coercing the row", func() {
			out, stats := c.CoerceRow(raw)

			Convey("Then numeric columns hold float64 values", func() {
				So(out[model.ColQuantity], ShouldEqual, 3.0)
				So(out[model.ColUnitPoints], ShouldEqual, 5.0)
				So(out[model.ColPointsSubtotal], ShouldEqual, 3.0)
				So(out[model.ColBonus], ShouldEqual, 0.0)
				So(out[model.ColPointsTotal], ShouldEqual, 0.0)
				So(out[model.ColName], ShouldEqual, "Ana Paula")
				So(stats, ShouldResemble, formula.Stats{Resolved: 1, Defaulted: 2})
			})

			Convey("Then the input row is left untouched", func() {
				So(raw[model.ColPointsSubtotal], ShouldEqual, "=G5*H5")
				So(raw[model.ColQuantity], ShouldEqual, "3")
			})
		})
	})

	Convey("Given a row with negative numeric cells", t, func() {
		c := formula.New()
		raw := model.Row{
			model.ColQuantity:       "-4",
			model.ColUnitPoints:     10.0,
			model.ColPointsSubtotal: "=G5*H5",
			model.ColBonus:          -2,
			model.ColPointsTotal:    -40.0,
		}

		Convey("When coercing the row", func() {
			out, stats := c.CoerceRow(raw)

			Convey("Then every negative value becomes 0", func() {
				So(out[model.ColQuantity], ShouldEqual, 0.0)
				So(out[model.ColPointsSubtotal], ShouldEqual, 0.0)
				So(out[model.ColBonus], ShouldEqual, 0.0)
				So(out[model.ColPointsTotal], ShouldEqual, 0.0)
				So(out[model.ColUnitPoints], ShouldEqual, 10.0)
			})

			Convey("Then the clamped cells count as defaulted", func() {
				So(stats, ShouldResemble, formula.Stats{Resolved: 1, Defaulted: 3})
			})
		})

		Convey("When a formula resolves to a negative reference", func() {
			v, st := c.Value("=H5*G5", model.Row{model.ColUnitPoints: -10.0})

			Convey("Then it is clamped and not counted as resolved", func() {
				So(v, ShouldEqual, 0.0)
				So(st, ShouldResemble, formula.Stats{Defaulted: 1})
			})
		})
	})

	Convey("Given a quantity cell that references itself", t, func() {
		c := formula.New(formula.WithNumericColumns(model.ColQuantity))
		out, stats := c.CoerceRow(model.Row{model.ColQuantity: "=G5*H5"})

		So(out[model.ColQuantity], ShouldEqual, 0.0)
		So(stats.Defaulted, ShouldEqual, 1)
		So(stats.Resolved, ShouldEqual, 0)
	})

	Convey("Given custom numeric columns", t, func() {
		c := formula.New(formula.WithNumericColumns(model.ColBonus))
		out, _ := c.CoerceRow(model.Row{model.ColBonus: "20", model.ColQuantity: "x"})

		So(out[model.ColBonus], ShouldEqual, 20.0)
		So(out[model.ColQuantity], ShouldEqual, "x")
		So(c.Columns(), ShouldResemble, []string{model.ColBonus})
	})
}

func TestNumber(t *testing.T) {
	Convey("Given cells of every shape", t, func() {
		tests := []struct {
			name string
			cell model.Cell
			want float64
		}{
			{name: "float", cell: 2.5, want: 2.5},
			{name: "int", cell: 4, want: 4},
			{name: "int64", cell: int64(9), want: 9},
			{name: "padded string", cell: "  7 ", want: 7},
			{name: "comma decimal", cell: "2,5", want: 2.5},
			{name: "thousands and comma", cell: "1.234,5", want: 0},
			{name: "text", cell: "dez", want: 0},
			{name: "blank", cell: "   ", want: 0},
			{name: "nil", cell: nil, want: 0},
			{name: "nan", cell: math.NaN(), want: 0},
			{name: "inf", cell: math.Inf(1), want: 0},
			{name: "nan text", cell: "NaN", want: 0},
			{name: "date", cell: time.Now(), want: 0},
			{name: "true", cell: true, want: 1},
		}

		for _, tt := range tests {
			Convey("When the cell is "+tt.name, func() {
				So(formula.Number(tt.cell), ShouldEqual, tt.want)
			})
		}
	})
}

func TestStatsAdd(t *testing.T) {
	Convey("Given stats from two rows", t, func() {
		s := formula.Stats{Resolved: 1}
		s.Add(formula.Stats{Resolved: 2, Defaulted: 3})

		So(s, ShouldResemble, formula.Stats{Resolved: 3, Defaulted: 3})
	})
}
