package postgres

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
)

// Numerics travel as text (amount::text) so no precision is lost in float conversion.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: numeric %q: %v", domain.ErrReadDatabaseRow, s, err)
	}
	return d, nil
}

func holderFrom(kind string, id int64) model.Holder {
	return model.Holder{Kind: model.HolderKind(kind), ID: id}
}

// isUUID guards id lookups; a malformed id cannot match any row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
