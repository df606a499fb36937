package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Oculis-Navigate/go-routesight"
	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering overlay text with gocv
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Pad is the padding placed around label text
	Pad int
}

// DefaultFont returns default overlay font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		Pad:       4,
	}
}

// boxLabel carries a prepared label so all labels can be drawn as the
// top most layer
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// DetectionBoxes maps detections into the image and draws a box around
// each with a label naming it and its confidence.  The Mat's own size is
// the viewport the boxes are mapped onto.
func DetectionBoxes(img *gocv.Mat, dets []routesight.Detection,
	src AspectRatio, o Orientation, font Font, lineThickness int) {

	vp := Viewport{Width: img.Cols(), Height: img.Rows()}

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(dets))

	for i, det := range dets {

		rect := MapBox(det.Box, vp, src, o)

		if rect.Empty() {
			continue
		}

		useClr := ClassColor(i)

		// draw rectangle around the detection
		gocv.Rectangle(img, rect, useClr, lineThickness)

		// create text for label
		text := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale,
			font.Thickness)

		// label sits on a filled box along the top edge of the detection
		labelPos := image.Pt(rect.Min.X+font.Pad, rect.Min.Y-font.Pad)

		bRect := image.Rect(rect.Min.X,
			rect.Min.Y-textSize.Y-2*font.Pad,
			rect.Min.X+textSize.X+2*font.Pad, rect.Min.Y)

		// record label rendering details
		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPos,
		})
	}

	// draw all precalculated box labels so they are the top most layer on
	// the image and don't get overlapped by neighbouring boxes
	for _, bl := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, bl.rect, bl.clr, -1)

		// draw the label over the box
		gocv.PutTextWithParams(img, bl.text, bl.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// Announcement draws the current route identifier in a banner across the
// top of the image.  Nothing is drawn for an empty identifier.
func Announcement(img *gocv.Mat, text string, font Font) {

	if text == "" {
		return
	}

	// banner text is double the label scale
	scale := font.Scale * 2

	textSize := gocv.GetTextSize(text, font.Face, scale, font.Thickness)

	bannerH := textSize.Y + 3*font.Pad

	gocv.Rectangle(img, image.Rect(0, 0, img.Cols(), bannerH), Black, -1)

	pos := image.Pt((img.Cols()-textSize.X)/2, bannerH-font.Pad)

	gocv.PutTextWithParams(img, text, pos, font.Face, scale, Yellow,
		font.Thickness+1, font.LineType, false)
}
