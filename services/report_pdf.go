package services

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var cellBorderColor = &props.Color{Red: 150, Green: 150, Blue: 150}

type pdfImage struct {
	data []byte
	ext  extension.Type
}

// pdfRenderer holds every image a page tree needs, loaded up front so a
// broken asset fails the export before any page is drawn.
type pdfRenderer struct {
	images map[string]pdfImage
	labels map[string][]byte
}

// RenderPDF draws a page tree as an A4 PDF and returns the document bytes.
func RenderPDF(ctx context.Context, tree PageTree, assets AssetLoader) ([]byte, error) {
	r, err := newPDFRenderer(ctx, tree, assets)
	if err != nil {
		return nil, err
	}

	b := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(pdfOrientation(tree.Orientation)).
		WithMaxGridSize(GridSize).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		})

	if tree.Watermark {
		wm, err := DraftWatermark(tree.WatermarkText, tree.Orientation)
		if err != nil {
			return nil, fmt.Errorf("failed to render watermark: %w", err)
		}
		b = b.WithBackgroundImage(wm, extension.Png)
	}

	m := maroto.New(b.Build())

	if len(tree.Header) > 0 {
		if err := m.RegisterHeader(r.rows(tree.Header)...); err != nil {
			return nil, fmt.Errorf("failed to register header: %w", err)
		}
	}
	if len(tree.Footer) > 0 {
		if err := m.RegisterFooter(r.rows(tree.Footer)...); err != nil {
			return nil, fmt.Errorf("failed to register footer: %w", err)
		}
	}

	m.AddRows(r.rows(tree.Body)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func newPDFRenderer(ctx context.Context, tree PageTree, assets AssetLoader) (*pdfRenderer, error) {
	r := &pdfRenderer{
		images: map[string]pdfImage{},
		labels: map[string][]byte{},
	}

	for _, ref := range tree.Images() {
		if assets == nil {
			return nil, fmt.Errorf("no asset loader for %s", shortRef(ref))
		}
		a, err := assets.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load image: %w", err)
		}
		data, isPNG, err := asPNGOrJPEG(a)
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", shortRef(ref), err)
		}
		ext := extension.Jpg
		if isPNG {
			ext = extension.Png
		}
		r.images[ref] = pdfImage{data: data, ext: ext}
	}

	var labelErr error
	tree.eachCell(func(c Cell) {
		if !c.Vertical || c.Text == "" || labelErr != nil {
			return
		}
		if _, ok := r.labels[c.Text]; ok {
			return
		}
		png, err := VerticalLabel(c.Text)
		if err != nil {
			labelErr = fmt.Errorf("failed to render side label: %w", err)
			return
		}
		r.labels[c.Text] = png
	})
	if labelErr != nil {
		return nil, labelErr
	}

	return r, nil
}

func (r *pdfRenderer) rows(sections []Section) []core.Row {
	var out []core.Row
	for _, s := range sections {
		for _, rw := range s.Rows {
			if len(rw.Cells) == 0 {
				if rw.Height > 0 {
					out = append(out, row.New(rw.Height))
				}
				continue
			}

			var cols []core.Col
			for _, c := range rw.Cells {
				cols = append(cols, r.col(c))
			}

			if rw.Height > 0 {
				out = append(out, row.New(rw.Height).Add(cols...))
			} else {
				out = append(out, row.New().Add(cols...))
			}
		}
	}
	return out
}

func (r *pdfRenderer) col(c Cell) core.Col {
	cl := col.New(c.Width)

	switch {
	case c.Image != "":
		img := r.images[c.Image]
		cl.Add(image.NewFromBytes(img.data, img.ext, props.Rect{Percent: 90, Center: true}))
	case c.Vertical && c.Text != "":
		cl.Add(image.NewFromBytes(r.labels[c.Text], extension.Png, props.Rect{Percent: 95, Center: true}))
	case c.Text != "":
		cl.Add(text.New(c.Text, pdfText(c.Style)))
	}

	if cs := pdfCell(c.Style); cs != nil {
		cl = cl.WithStyle(cs)
	}
	return cl
}

func pdfText(st CellStyle) props.Text {
	t := props.Text{
		Size:  st.Size,
		Style: pdfFontStyle(st.Bold, st.Italic),
		Align: pdfAlign(st.Align),
		Color: pdfColor(st.Color),
	}
	if t.Size == 0 {
		t.Size = 8
	}
	if st.Border {
		t.Top = 1
		t.Left = 1
		t.Right = 1
	}
	return t
}

func pdfCell(st CellStyle) *props.Cell {
	if st.Background == nil && !st.Border {
		return nil
	}
	cs := &props.Cell{BackgroundColor: pdfColor(st.Background)}
	if st.Border {
		cs.BorderType = border.Full
		cs.BorderColor = cellBorderColor
		cs.BorderThickness = 0.2
	}
	return cs
}

func pdfColor(c *RGB) *props.Color {
	if c == nil {
		return nil
	}
	return &props.Color{Red: c.R, Green: c.G, Blue: c.B}
}

func pdfFontStyle(bold, italic bool) fontstyle.Type {
	switch {
	case bold && italic:
		return fontstyle.BoldItalic
	case bold:
		return fontstyle.Bold
	case italic:
		return fontstyle.Italic
	default:
		return fontstyle.Normal
	}
}

func pdfAlign(a Align) align.Type {
	switch a {
	case AlignCenter:
		return align.Center
	case AlignRight:
		return align.Right
	default:
		return align.Left
	}
}

func pdfOrientation(o Orientation) orientation.Type {
	if o == Landscape {
		return orientation.Horizontal
	}
	return orientation.Vertical
}
