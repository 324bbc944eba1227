package render

import (
	"math"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/internal/scale"
)

const noColor = "#888"

// BarPainter is the default bar drawer: a rounded bar,
// its label on the left and its value on the right.
type BarPainter struct {
	cfg    *Config
	layout *Layout
	scene  *Scene
}

// NewBarPainter returns a bar painter for the layout.
func NewBarPainter(cfg *Config, layout *Layout, scene *Scene) *BarPainter {
	return &BarPainter{
		cfg:    cfg,
		layout: layout,
		scene:  scene,
	}
}

// DrawBar draws the record.
func (bp *BarPainter) DrawBar(c Context, rec *frame.Record, f *frame.Frame) {
	if rec.Alpha <= 0 {
		return
	}

	col, ok := bp.scene.Color(rec)
	if !ok {
		col = noColor
	}

	width := bp.layout.PlotWidth()

	var xScale *scale.Linear
	if bp.scene.Axis != nil {
		xScale = bp.scene.Axis.Scale(f.Index, width)
	} else {
		xScale = scale.NewLinear(0, f.Max, 0, width)
	}

	x := bp.layout.Inner.Left
	y := bp.layout.Y(rec.Pos)
	w := xScale.Map(rec.Value)
	if math.IsNaN(w) || w < 0 {
		w = 0
	}
	h := bp.layout.BarHeight

	c.SetGlobalAlpha(rec.Alpha)
	c.SetFillStyle(col)
	c.FillRoundRect(x, y, w, h, min(bp.cfg.BarRadius, h/2))

	c.SetFontSize(h)
	baseline := y + h*barHeightRatio

	c.SetTextAlign(TextAlignRight)
	c.FillText(bp.scene.Label(rec), x-bp.cfg.LabelPadding, baseline)

	c.SetTextAlign(TextAlignLeft)
	c.FillText(bp.scene.ValueFormat(rec.Value), x+w+bp.cfg.LabelPadding, baseline)

	c.SetGlobalAlpha(1)
}
