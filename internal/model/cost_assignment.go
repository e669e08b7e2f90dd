package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rpattn/candh/internal/candh"
)

// CostAssignment distributes an amount over cost centres.
type CostAssignment struct {
	ID         uuid.UUID             `json:"id" yaml:"id"`
	Name       string                `json:"name" yaml:"name"`
	Amount     decimal.Decimal       `json:"amount" yaml:"amount"`
	ValidFrom  time.Time             `json:"valid_from" yaml:"validFrom"`
	Owner      *User                 `json:"owner,omitempty" yaml:"owner,omitempty"`
	Lines      []*CostAssignmentLine `json:"lines" yaml:"lines"`
	Created    time.Time             `json:"created" yaml:"created"`
	LastUpdate time.Time             `json:"last_update" yaml:"lastUpdate"`
}

// CostAssignmentLine is one share of a CostAssignment.
type CostAssignmentLine struct {
	ID         uuid.UUID       `json:"id" yaml:"id"`
	Index      int             `json:"index" yaml:"index"`
	Percentage decimal.Decimal `json:"percentage" yaml:"percentage"`
	Target     string          `json:"target" yaml:"target"`
}

func (c *CostAssignment) IdentityKey() (string, bool) {
	if c == nil || c.ID == uuid.Nil {
		return "", false
	}
	return c.ID.String(), true
}

func (l *CostAssignmentLine) IdentityKey() (string, bool) {
	if l == nil || l.ID == uuid.Nil {
		return "", false
	}
	return l.ID.String(), true
}

// CostAssignmentLineSchema describes a line; the index is owned by the
// parent collection.
func CostAssignmentLineSchema() *candh.Schema {
	return candh.NewSchema[CostAssignmentLine]("CostAssignmentLine",
		candh.Field("id",
			func(l *CostAssignmentLine) uuid.UUID { return l.ID },
			func(l *CostAssignmentLine, v uuid.UUID) { l.ID = v },
			candh.Identity()),
		candh.Field("index",
			func(l *CostAssignmentLine) int { return l.Index },
			func(l *CostAssignmentLine, v int) { l.Index = v }),
		candh.Field("percentage",
			func(l *CostAssignmentLine) decimal.Decimal { return l.Percentage },
			func(l *CostAssignmentLine, v decimal.Decimal) { l.Percentage = v }),
		candh.Field("target",
			func(l *CostAssignmentLine) string { return l.Target },
			func(l *CostAssignmentLine, v string) { l.Target = v }),
	)
}

// CostAssignmentSchema describes the walked properties of CostAssignment.
func CostAssignmentSchema() *candh.Schema {
	return candh.NewSchema[CostAssignment]("CostAssignment",
		candh.Field("id",
			func(c *CostAssignment) uuid.UUID { return c.ID },
			func(c *CostAssignment, v uuid.UUID) { c.ID = v },
			candh.Identity()),
		candh.Field("name",
			func(c *CostAssignment) string { return c.Name },
			func(c *CostAssignment, v string) { c.Name = v }),
		candh.Field("amount",
			func(c *CostAssignment) decimal.Decimal { return c.Amount },
			func(c *CostAssignment, v decimal.Decimal) { c.Amount = v }),
		candh.Field("validFrom",
			func(c *CostAssignment) time.Time { return c.ValidFrom },
			func(c *CostAssignment, v time.Time) { c.ValidFrom = v },
			candh.Precision(candh.Day)),
		candh.Field("owner",
			func(c *CostAssignment) *User { return c.Owner },
			func(c *CostAssignment, v *User) { c.Owner = v }),
		candh.Collection("lines",
			func(c *CostAssignment) []*CostAssignmentLine { return c.Lines },
			func(c *CostAssignment, v []*CostAssignmentLine) { c.Lines = v },
			CostAssignmentLineSchema(),
			candh.OrderedBy("index")),
		candh.Field("created",
			func(c *CostAssignment) time.Time { return c.Created },
			func(c *CostAssignment, v time.Time) { c.Created = v },
			candh.Created()),
		candh.Field("lastUpdate",
			func(c *CostAssignment) time.Time { return c.LastUpdate },
			func(c *CostAssignment, v time.Time) { c.LastUpdate = v },
			candh.LastUpdate()),
	)
}
