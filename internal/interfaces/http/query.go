package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// pageFrom lee limit/offset de la query con los valores por defecto.
func pageFrom(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// timeRange lee from/to en RFC3339 o YYYY-MM-DD. Vacíos quedan en nil.
func timeRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	parse := func(field string) (*time.Time, error) {
		raw := c.Query(field)
		if raw == "" {
			return nil, nil
		}
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if t, err := time.Parse(layout, raw); err == nil {
				return &t, nil
			}
		}
		return nil, &domain.ValidationError{Field: field, Reason: "fecha inválida, use RFC3339 o YYYY-MM-DD"}
	}
	if from, err = parse("from"); err != nil {
		return nil, nil, err
	}
	if to, err = parse("to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
