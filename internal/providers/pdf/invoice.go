package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}

func (r *MarotoRenderer) Invoice(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(6, "INVOICE", props.Text{
			Size:  22,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(6, doc.Status, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(18,
		col.New(6).Add(
			text.New("Invoice #: "+doc.InvoiceNumber, props.Text{Size: 9}),
			text.New("Issue date: "+doc.IssueDate, props.Text{Size: 9, Top: 5}),
			text.New("Due date: "+doc.DueDate, props.Text{Size: 9, Top: 10}),
		),
		col.New(6).Add(paidOn(doc)...),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("FROM", props.Text{Size: 10, Style: fontstyle.Bold}),
			text.New(doc.IssuerName, props.Text{Size: 9, Top: 6}),
			text.New(doc.IssuerEmail, props.Text{Size: 9, Top: 11}),
		),
		col.New(6).Add(
			text.New("BILL TO", props.Text{Size: 10, Style: fontstyle.Bold}),
			text.New(doc.ClientName, props.Text{Size: 9, Top: 6}),
			text.New(doc.ClientEmail, props.Text{Size: 9, Top: 11}),
			text.New(doc.ClientAddress, props.Text{Size: 9, Top: 16}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, item := range doc.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, doc.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "TOTAL DUE", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(2, doc.Total, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	if doc.Notes != "" {
		m.AddRow(20,
			col.New(12).Add(
				text.New("NOTES", props.Text{Size: 9, Style: fontstyle.Bold, Top: 4}),
				text.New(doc.Notes, props.Text{Size: 8, Top: 10}),
			),
		)
	}

	if doc.PayLink != "" && doc.PaidOn == "" {
		m.AddRow(24,
			col.New(12).Add(
				text.New("PAYMENT", props.Text{Size: 10, Style: fontstyle.Bold, Top: 4}),
				text.New("Pay online: "+doc.PayLink, props.Text{Size: 9, Top: 10}),
				text.New(doc.PayOnlineNote, props.Text{Size: 8, Top: 16}),
			),
		)
	}

	m.AddRow(8,
		text.NewCol(12, "Invoice powered by Chaseless", props.Text{Size: 7, Align: align.Center, Top: 2}),
	)

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

func paidOn(doc Document) []core.Component {
	if doc.PaidOn == "" {
		return nil
	}
	return []core.Component{
		text.New("Paid on "+doc.PaidOn, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	}
}
