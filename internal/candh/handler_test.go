package candh

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/candh/internal/domain"
)

// nullMatrix describes one nullable property of account for the null
// transition table.
type nullMatrix struct {
	property string
	null     any
	value    any
	equal    any
	other    any
	get      func(a *account) any
	set      func(a *account, v any)
}

func nullMatrices() []nullMatrix {
	berlin := time.FixedZone("CET", 60*60)
	seen := baseTime
	return []nullMatrix{
		{
			property: "nickname",
			null:     (*string)(nil),
			value:    ptr("alpha"),
			equal:    ptr("alpha"),
			other:    ptr("beta"),
			get:      func(a *account) any { return a.Nickname },
			set:      func(a *account, v any) { a.Nickname = v.(*string) },
		},
		{
			property: "limit",
			null:     decimal.NullDecimal{},
			value:    decimal.NewNullDecimal(decimal.RequireFromString("1.00")),
			equal:    decimal.NewNullDecimal(decimal.RequireFromString("1")),
			other:    decimal.NewNullDecimal(decimal.RequireFromString("2.50")),
			get:      func(a *account) any { return a.Limit },
			set:      func(a *account, v any) { a.Limit = v.(decimal.NullDecimal) },
		},
		{
			property: "seen",
			null:     (*time.Time)(nil),
			value:    &seen,
			equal:    ptr(baseTime.In(berlin)),
			other:    ptr(baseTime.Add(time.Hour)),
			get:      func(a *account) any { return a.Seen },
			set:      func(a *account, v any) { a.Seen = v.(*time.Time) },
		},
		{
			property: "parent",
			null:     (*account)(nil),
			value:    &account{ID: 7, Name: "stored"},
			equal:    &account{ID: 7, Name: "incoming"},
			other:    &account{ID: 8},
			get:      func(a *account) any { return a.Parent },
			set:      func(a *account, v any) { a.Parent = v.(*account) },
		},
	}
}

func TestNullTransitions(t *testing.T) {
	engine := newTestEngine(t)

	for _, m := range nullMatrices() {
		tests := []struct {
			name    string
			src     any
			dest    any
			changed bool
			oldNil  bool
			newNil  bool
		}{
			{name: "both nil", src: m.null, dest: m.null},
			{name: "null to value", src: m.value, dest: m.null, changed: true, oldNil: true},
			{name: "value to null", src: m.null, dest: m.value, changed: true, newNil: true},
			{name: "same reference", src: m.value, dest: m.value},
			{name: "equal values", src: m.equal, dest: m.value},
			{name: "different values", src: m.other, dest: m.value, changed: true},
		}
		for _, tt := range tests {
			t.Run(m.property+"/"+tt.name, func(t *testing.T) {
				src, dest := newAccount(), newAccount()
				m.set(src, tt.src)
				m.set(dest, tt.dest)

				audit, err := engine.Compare(src, dest)
				require.NoError(t, err)
				if !tt.changed {
					assert.Empty(t, audit.Entries())
					assert.Equal(t, StatusNone, audit.Status())
					assert.Equal(t, tt.dest, m.get(dest), "dest is left untouched")
					return
				}

				got := audit.Entries()
				require.Len(t, got, 1)
				assert.Equal(t, m.property, got[0].PropertyName)
				assert.Equal(t, domain.PropertyOpUpdate, got[0].Operation)
				assert.Equal(t, tt.oldNil, got[0].OldValue == nil, "old value nil")
				assert.Equal(t, tt.newNil, got[0].NewValue == nil, "new value nil")
				assert.Equal(t, tt.src, m.get(dest), "dest holds the src value")
			})
		}
	}
}

func TestNullDecimalKeepsScaleInHistory(t *testing.T) {
	engine := newTestEngine(t)

	src, dest := newAccount(), newAccount()
	src.Limit = decimal.NewNullDecimal(decimal.RequireFromString("1.00"))
	src.Balance = decimal.RequireFromString("250.50")

	audit, err := engine.Compare(src, dest)
	require.NoError(t, err)
	require.Equal(t, []string{"balance", "limit"}, entryNames(audit))

	balance, limit := audit.Entries()[0], audit.Entries()[1]
	assert.Equal(t, "100.00", *balance.OldValue)
	assert.Equal(t, "250.50", *balance.NewValue)
	assert.Nil(t, limit.OldValue)
	assert.Equal(t, "1.00", *limit.NewValue)
}

func TestDecimalIgnoresScale(t *testing.T) {
	engine := newTestEngine(t)

	src, dest := newAccount(), newAccount()
	src.Balance = decimal.RequireFromString("100")
	dest.Balance = decimal.RequireFromString("100.00")
	audit, err := engine.Compare(src, dest)
	require.NoError(t, err)
	assert.Empty(t, audit.Entries())
	assert.Equal(t, int32(-2), dest.Balance.Exponent(), "dest keeps its scale when equal")

	src.Balance = decimal.RequireFromString("1000")
	audit, err = engine.Compare(src, dest)
	require.NoError(t, err)
	require.Len(t, audit.Entries(), 1)
	assert.Equal(t, "1000", *audit.Entries()[0].NewValue)
	assert.True(t, dest.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestDecimalHandlerNullDecimal(t *testing.T) {
	h := DecimalHandler{}
	p := Property{}

	equal, err := h.ValuesEqual(p, decimal.NullDecimal{}, decimal.NullDecimal{})
	require.NoError(t, err)
	assert.True(t, equal)

	equal, err = h.ValuesEqual(p, decimal.NewNullDecimal(decimal.NewFromInt(1)), decimal.NullDecimal{})
	require.NoError(t, err)
	assert.False(t, equal)

	_, err = h.ValuesEqual(p, decimal.NewFromInt(1), "1")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestTimePrecision(t *testing.T) {
	engine := newTestEngine(t)
	berlin := time.FixedZone("CET", 60*60)

	tests := []struct {
		name    string
		mutate  func(src *account)
		changed string
	}{
		{
			name:   "day precision ignores time of day",
			mutate: func(src *account) { src.Opened = baseTime.Add(10 * time.Hour) },
		},
		{
			name:    "day precision detects other day",
			mutate:  func(src *account) { src.Opened = baseTime.AddDate(0, 0, 4) },
			changed: "opened",
		},
		{
			name:   "same instant in another location",
			mutate: func(src *account) { src.Reviewed = baseTime.In(berlin) },
		},
		{
			name:    "instant precision detects nanoseconds",
			mutate:  func(src *account) { src.Reviewed = baseTime.Add(time.Nanosecond) },
			changed: "reviewed",
		},
		{
			name:   "second precision truncates",
			mutate: func(src *account) { src.Synced = baseTime.Add(900 * time.Millisecond) },
		},
		{
			name:    "second precision detects seconds",
			mutate:  func(src *account) { src.Synced = baseTime.Add(2 * time.Second) },
			changed: "synced",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dest := newAccount(), newAccount()
			tt.mutate(src)
			audit, err := engine.Compare(src, dest)
			require.NoError(t, err)
			if tt.changed == "" {
				assert.Empty(t, audit.Entries())
				return
			}
			assert.Equal(t, []string{tt.changed}, entryNames(audit))
		})
	}
}

func TestTimeRenderingIsUTC(t *testing.T) {
	engine := newTestEngine(t)
	src, dest := newAccount(), newAccount()
	src.Opened = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	audit, err := engine.Compare(src, dest)
	require.NoError(t, err)
	require.Len(t, audit.Entries(), 1)
	assert.Equal(t, "2024-03-01T09:30:00Z", *audit.Entries()[0].OldValue)
	assert.Equal(t, "2024-03-05T00:00:00Z", *audit.Entries()[0].NewValue)
}

func TestReferenceComparesIdentity(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("same key different instance", func(t *testing.T) {
		src, dest := newAccount(), newAccount()
		src.Parent = &account{ID: 7, Name: "renamed"}
		original := &account{ID: 7, Name: "parent"}
		dest.Parent = original

		audit, err := engine.Compare(src, dest)
		require.NoError(t, err)
		assert.Empty(t, audit.Entries())
		assert.Same(t, original, dest.Parent)
		assert.Equal(t, "parent", dest.Parent.Name, "references are not descended into")
	})

	t.Run("different key", func(t *testing.T) {
		src, dest := newAccount(), newAccount()
		src.Parent = &account{ID: 8}
		dest.Parent = &account{ID: 7}

		audit, err := engine.Compare(src, dest)
		require.NoError(t, err)
		require.Len(t, audit.Entries(), 1)
		got := audit.Entries()[0]
		assert.Equal(t, "parent", got.PropertyName)
		assert.Equal(t, "7", *got.OldValue)
		assert.Equal(t, "8", *got.NewValue)
		assert.Same(t, src.Parent, dest.Parent)
	})

	t.Run("unsaved instances", func(t *testing.T) {
		h := ReferenceHandler{}
		unsaved := &account{Name: "draft"}

		equal, err := h.ValuesEqual(Property{}, unsaved, unsaved)
		require.NoError(t, err)
		assert.True(t, equal)

		equal, err = h.ValuesEqual(Property{}, unsaved, &account{Name: "draft"})
		require.NoError(t, err)
		assert.False(t, equal)
	})
}

func TestMinorPropertyYieldsMinorStatus(t *testing.T) {
	engine := newTestEngine(t)

	src, dest := newAccount(), newAccount()
	src.Seen = ptr(baseTime.Add(time.Hour))
	status, err := engine.CopyValues(src, dest)
	require.NoError(t, err)
	assert.Equal(t, StatusMinor, status)
	require.NotNil(t, dest.Seen)

	src.Name = "renamed"
	src.Seen = ptr(baseTime.Add(2 * time.Hour))
	status, err = engine.CopyValues(src, dest)
	require.NoError(t, err)
	assert.Equal(t, StatusMajor, status)
}

func TestTypeMismatchAbortsWalk(t *testing.T) {
	engine := newTestEngine(t)

	src, dest := newAccount(), newAccount()
	src.Name = "renamed"
	src.Payload = "text"
	dest.Payload = 42

	_, err := engine.Compare(src, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPropertyType)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	var unsupported *UnsupportedPropertyTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "payload", unsupported.Property)
	assert.Equal(t, 42, dest.Payload, "the failing property is left untouched")
	assert.Equal(t, "renamed", dest.Name, "earlier properties stay copied")
}

func TestHandlerNames(t *testing.T) {
	assert.Equal(t, "default", DefaultHandler{}.Name())
	assert.Equal(t, "decimal", DecimalHandler{}.Name())
	assert.Equal(t, "time", TimeHandler{}.Name())
	assert.Equal(t, "reference", ReferenceHandler{}.Name())
	assert.Equal(t, "collection", CollectionHandler{}.Name())
}
