package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfcastellanos/negobot/internal/domain"
)

type DebtorStore struct {
	db *pgxpool.Pool
}

func NewDebtorStore(db *pgxpool.Pool) *DebtorStore {
	return &DebtorStore{db: db}
}

func (s *DebtorStore) LookupByDocument(ctx context.Context, document string) (*domain.Debtor, error) {
	d := &domain.Debtor{}
	err := s.db.QueryRow(ctx,
		`SELECT documento, nombre, COALESCE(banco, ''), COALESCE(producto, ''),
		        saldo_total, COALESCE(oferta_1, 0), COALESCE(oferta_2, 0),
		        COALESCE(porcentaje_desc_1, 0), COALESCE(porcentaje_desc_2, 0),
		        COALESCE(pago_minimo, 0), COALESCE(num_cuotas, 0)
		 FROM debtors WHERE documento = $1`,
		document,
	).Scan(&d.Document, &d.Name, &d.Bank, &d.Product,
		&d.Balance, &d.Offer1, &d.Offer2,
		&d.DiscountPct1, &d.DiscountPct2,
		&d.MinPayment, &d.Installments)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDebtorNotFound
		}
		return nil, err
	}
	return d, nil
}
