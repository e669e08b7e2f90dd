package candh

import (
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type entry struct {
	ID     int64
	Pos    int
	Amount decimal.Decimal
	Memo   string
}

func (e *entry) IdentityKey() (string, bool) {
	if e == nil || e.ID == 0 {
		return "", false
	}
	return strconv.FormatInt(e.ID, 10), true
}

type account struct {
	ID       int64
	Name     string
	Nickname *string
	Balance  decimal.Decimal
	Limit    decimal.NullDecimal
	Opened   time.Time
	Reviewed time.Time
	Synced   time.Time
	Seen     *time.Time
	Parent   *account
	Entries  []*entry
	Payload  any
	Cached   string
	Created  time.Time
	Updated  time.Time
}

func (a *account) IdentityKey() (string, bool) {
	if a == nil || a.ID == 0 {
		return "", false
	}
	return strconv.FormatInt(a.ID, 10), true
}

func entrySchema() *Schema {
	return NewSchema[entry]("Entry",
		Field("id", func(e *entry) int64 { return e.ID }, func(e *entry, v int64) { e.ID = v }, Identity()),
		Field("pos", func(e *entry) int { return e.Pos }, func(e *entry, v int) { e.Pos = v }),
		Field("amount", func(e *entry) decimal.Decimal { return e.Amount }, func(e *entry, v decimal.Decimal) { e.Amount = v }),
		Field("memo", func(e *entry) string { return e.Memo }, func(e *entry, v string) { e.Memo = v }),
	)
}

func accountSchema() *Schema {
	return NewSchema[account]("Account",
		Field("id", func(a *account) int64 { return a.ID }, func(a *account, v int64) { a.ID = v }, Identity()),
		Field("name", func(a *account) string { return a.Name }, func(a *account, v string) { a.Name = v }),
		Field("nickname", func(a *account) *string { return a.Nickname }, func(a *account, v *string) { a.Nickname = v }),
		Field("balance", func(a *account) decimal.Decimal { return a.Balance }, func(a *account, v decimal.Decimal) { a.Balance = v }),
		Field("limit", func(a *account) decimal.NullDecimal { return a.Limit }, func(a *account, v decimal.NullDecimal) { a.Limit = v }),
		Field("opened", func(a *account) time.Time { return a.Opened }, func(a *account, v time.Time) { a.Opened = v }, Precision(Day)),
		Field("reviewed", func(a *account) time.Time { return a.Reviewed }, func(a *account, v time.Time) { a.Reviewed = v }),
		Field("synced", func(a *account) time.Time { return a.Synced }, func(a *account, v time.Time) { a.Synced = v }, Precision(time.Second)),
		Field("seen", func(a *account) *time.Time { return a.Seen }, func(a *account, v *time.Time) { a.Seen = v }, Minor()),
		Field("parent", func(a *account) *account { return a.Parent }, func(a *account, v *account) { a.Parent = v }),
		Collection("entries", func(a *account) []*entry { return a.Entries }, func(a *account, v []*entry) { a.Entries = v },
			entrySchema(), OrderedBy("pos")),
		Field("payload", func(a *account) any { return a.Payload }, func(a *account, v any) { a.Payload = v }),
		Field("cached", func(a *account) string { return a.Cached }, func(a *account, v string) { a.Cached = v }, Transient()),
		Field("created", func(a *account) time.Time { return a.Created }, func(a *account, v time.Time) { a.Created = v }, Created()),
		Field("updated", func(a *account) time.Time { return a.Updated }, func(a *account, v time.Time) { a.Updated = v }, LastUpdate()),
	)
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistryBuilder().
		Logger(zaptest.NewLogger(t)).
		Schema(accountSchema()).
		Build()
	require.NoError(t, err)
	return reg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(newTestRegistry(t), WithLogger(zaptest.NewLogger(t)))
}

var baseTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newAccount() *account {
	return &account{
		ID:       1,
		Name:     "operating",
		Balance:  decimal.RequireFromString("100.00"),
		Opened:   baseTime,
		Reviewed: baseTime,
		Synced:   baseTime,
		Created:  baseTime,
		Updated:  baseTime,
	}
}

// cloneAccount copies a and its entries so the two can diverge.
func cloneAccount(a *account) *account {
	clone := *a
	if a.Entries != nil {
		clone.Entries = make([]*entry, len(a.Entries))
		for i, e := range a.Entries {
			copied := *e
			clone.Entries[i] = &copied
		}
	}
	return &clone
}

func entries(ids ...int64) []*entry {
	out := make([]*entry, len(ids))
	for i, id := range ids {
		out[i] = &entry{
			ID:     id,
			Pos:    i,
			Amount: decimal.NewFromInt(id * 10),
			Memo:   "entry " + strconv.FormatInt(id, 10),
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func entryNames(audit *Context) []string {
	var names []string
	for _, e := range audit.Entries() {
		names = append(names, e.PropertyName)
	}
	return names
}
