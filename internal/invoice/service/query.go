package service

import (
	"context"

	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
)

// List returns the issuer's invoices newest issue date first, each with its
// display status.
func (s *Service) List(ctx context.Context) ([]invoicedomain.Invoice, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx, s.db, issuerID)
	if err != nil {
		return nil, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, s.decorate(row))
	}
	return invoices, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, issuerID, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, invoice.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice.Items = items
	return s.decorate(*invoice), nil
}

// NextNumber previews the number the next invoice issued this year would
// get. Nothing is reserved.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return "", err
	}
	return s.sequence.Peek(ctx, s.db, issuerID, s.clock.Now().Year())
}

func (s *Service) Rules(ctx context.Context, id string) (invoicedomain.Rules, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Rules{}, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Rules{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, issuerID, invoiceID)
	if err != nil {
		return invoicedomain.Rules{}, err
	}
	if invoice == nil {
		return invoicedomain.Rules{}, invoicedomain.ErrNotFound
	}
	return invoice.Rules(), nil
}

// GetPublic is the unauthenticated payer read. Every successful read counts
// as a view.
func (s *Service) GetPublic(ctx context.Context, id string) (invoicedomain.PublicInvoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.PublicInvoice{}, invoicedomain.ErrNotFound
	}

	found, err := s.repo.IncrementViewCount(ctx, s.db, invoiceID, s.clock.Now())
	if err != nil {
		return invoicedomain.PublicInvoice{}, err
	}
	if !found {
		return invoicedomain.PublicInvoice{}, invoicedomain.ErrNotFound
	}

	view, err := s.repo.FindPublic(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.PublicInvoice{}, err
	}
	if view == nil {
		return invoicedomain.PublicInvoice{}, invoicedomain.ErrNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.PublicInvoice{}, err
	}
	view.Items = items
	view.Invoice = s.decorate(view.Invoice)
	return *view, nil
}

// Export returns the full document view of an issuer's invoice without
// counting a view.
func (s *Service) Export(ctx context.Context, id string) (invoicedomain.PublicInvoice, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.PublicInvoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.PublicInvoice{}, err
	}

	owned, err := s.repo.FindByID(ctx, s.db, issuerID, invoiceID)
	if err != nil {
		return invoicedomain.PublicInvoice{}, err
	}
	if owned == nil {
		return invoicedomain.PublicInvoice{}, invoicedomain.ErrNotFound
	}

	view, err := s.repo.FindPublic(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.PublicInvoice{}, err
	}
	if view == nil {
		return invoicedomain.PublicInvoice{}, invoicedomain.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.PublicInvoice{}, err
	}
	view.Items = items
	view.Invoice = s.decorate(view.Invoice)
	return *view, nil
}
