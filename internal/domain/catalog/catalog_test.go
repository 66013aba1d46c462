package catalog

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/furniture-store/internal/domain/furniture"
)

func newItem(t *testing.T, kind furniture.Kind, name string, price string) *furniture.Item {
	t.Helper()
	it, err := furniture.New(kind, furniture.Spec{
		Name:  name,
		Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return it
}

func seed(t *testing.T) *Catalog {
	t.Helper()
	c := New()
	_, err := c.Create(newItem(t, furniture.KindChair, "Windsor Chair", "129"), 10)
	require.NoError(t, err)
	_, err = c.Create(newItem(t, furniture.KindTable, "Oak Table", "749"), 3)
	require.NoError(t, err)
	_, err = c.Create(newItem(t, furniture.KindLamp, "Arc Lamp", "179.99"), 5)
	require.NoError(t, err)
	return c
}

func TestCreate_AssignsMonotonicIDs(t *testing.T) {
	c := New()

	a, err := c.Create(newItem(t, furniture.KindChair, "a", "1"), 1)
	require.NoError(t, err)
	b, err := c.Create(newItem(t, furniture.KindChair, "b", "1"), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)
}

func TestCreate_ExplicitIDAdvancesAllocator(t *testing.T) {
	c := New()

	it := newItem(t, furniture.KindChair, "a", "1")
	it.ID = 10
	_, err := c.Create(it, 1)
	require.NoError(t, err)

	next, err := c.Create(newItem(t, furniture.KindChair, "b", "1"), 1)
	require.NoError(t, err)
	assert.Equal(t, 11, next.ID)
}

func TestCreate_DuplicateID(t *testing.T) {
	c := New()

	it := newItem(t, furniture.KindChair, "a", "1")
	it.ID = 5
	_, err := c.Create(it, 1)
	require.NoError(t, err)

	dup := newItem(t, furniture.KindChair, "b", "1")
	dup.ID = 5
	_, err = c.Create(dup, 1)

	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, 5, dupErr.ID)
}

func TestCreate_NegativeQuantity(t *testing.T) {
	c := New()

	_, err := c.Create(newItem(t, furniture.KindChair, "a", "1"), -1)

	var negErr *NegativeQuantityError
	require.ErrorAs(t, err, &negErr)
	assert.Equal(t, -1, negErr.Quantity)
}

func TestSearch_Filters(t *testing.T) {
	c := seed(t)
	min := decimal.NewFromInt(150)
	max := decimal.NewFromInt(200)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"Windsor Chair", "Oak Table", "Arc Lamp"}},
		{"by name substring", Filter{Name: "chair"}, []string{"Windsor Chair"}},
		{"by kind", Filter{Kind: furniture.KindTable}, []string{"Oak Table"}},
		{"by price range", Filter{MinPrice: &min, MaxPrice: &max}, []string{"Arc Lamp"}},
		{"no match", Filter{Name: "sofa"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := c.Search(tt.filter)
			var names []string
			for _, it := range items {
				names = append(names, it.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestFindByName_CaseInsensitive(t *testing.T) {
	c := seed(t)

	it := c.FindByName("oak")
	require.NotNil(t, it)
	assert.Equal(t, "Oak Table", it.Name)

	assert.Nil(t, c.FindByName("wardrobe"))
}

func TestQuantity_UnknownIsZero(t *testing.T) {
	c := seed(t)

	assert.Equal(t, 10, c.Quantity(1))
	assert.Equal(t, 0, c.Quantity(999))
}

func TestUpdate_PatchesOnlySuppliedFields(t *testing.T) {
	c := seed(t)
	name := "Windsor Classic"
	qty := 20

	updated, err := c.Update(1, Patch{Name: &name, Quantity: &qty})
	require.NoError(t, err)

	assert.Equal(t, "Windsor Classic", updated.Name)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(129)), "price untouched")
	assert.Equal(t, 20, c.Quantity(1))
}

func TestUpdate_Errors(t *testing.T) {
	c := seed(t)
	negPrice := decimal.NewFromInt(-5)
	negQty := -1

	_, err := c.Update(999, Patch{})
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = c.Update(1, Patch{Price: &negPrice})
	assert.ErrorIs(t, err, furniture.ErrNegativePrice)

	_, err = c.Update(1, Patch{Quantity: &negQty})
	var negErr *NegativeQuantityError
	assert.ErrorAs(t, err, &negErr)
}

func TestDelete(t *testing.T) {
	c := seed(t)

	require.NoError(t, c.Delete(2))
	_, ok := c.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	var notFound *NotFoundError
	assert.ErrorAs(t, c.Delete(2), &notFound)
}

func TestAdjustQuantity(t *testing.T) {
	c := seed(t)

	require.NoError(t, c.AdjustQuantity(1, -4))
	assert.Equal(t, 6, c.Quantity(1))

	require.NoError(t, c.AdjustQuantity(1, 2))
	assert.Equal(t, 8, c.Quantity(1))
}

func TestAdjustQuantity_Shortfall(t *testing.T) {
	c := seed(t)

	err := c.AdjustQuantity(2, -4)
	var stock *InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 4, stock.Requested)
	assert.Equal(t, 3, stock.Available)
	assert.Equal(t, 3, c.Quantity(2), "failed adjustment leaves stock untouched")
}

func TestAdjustQuantity_UnknownID(t *testing.T) {
	c := seed(t)

	// Unknown ID behaves as quantity zero for decrements.
	err := c.AdjustQuantity(999, -1)
	var stock *InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 0, stock.Available)

	var notFound *NotFoundError
	assert.ErrorAs(t, c.AdjustQuantity(999, 1), &notFound)
}

func TestAdjustQuantity_ConcurrentDecrementsNeverGoNegative(t *testing.T) {
	c := New()
	_, err := c.Create(newItem(t, furniture.KindChair, "a", "1"), 50)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.AdjustQuantity(1, -1)
		}()
	}
	wg.Wait()

	// 100 attempts against 50 units: exactly 50 succeed.
	assert.Equal(t, 0, c.Quantity(1))
}

func TestReserve_AllOrNothing(t *testing.T) {
	c := seed(t)

	err := c.Reserve([]Line{
		{FurnitureID: 1, Quantity: 2},
		{FurnitureID: 2, Quantity: 5}, // only 3 available
	})
	var stock *InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 2, stock.ID)

	// Nothing was decremented, including the satisfiable first line.
	assert.Equal(t, 10, c.Quantity(1))
	assert.Equal(t, 3, c.Quantity(2))
}

func TestReserve_Success(t *testing.T) {
	c := seed(t)

	require.NoError(t, c.Reserve([]Line{
		{FurnitureID: 1, Quantity: 2},
		{FurnitureID: 2, Quantity: 3},
	}))
	assert.Equal(t, 8, c.Quantity(1))
	assert.Equal(t, 0, c.Quantity(2))
}

func TestReserve_DuplicateLinesAccumulate(t *testing.T) {
	c := seed(t)

	// Two lines for item 2 (stock 3): each fits alone, together they do not.
	err := c.Reserve([]Line{
		{FurnitureID: 2, Quantity: 2},
		{FurnitureID: 2, Quantity: 2},
	})
	var stock *InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 4, stock.Requested)
	assert.Equal(t, 3, c.Quantity(2))
}

func TestSnapshotRestore_Roundtrip(t *testing.T) {
	c := seed(t)

	entries := c.Snapshot()
	require.Len(t, entries, 3)

	restored := New()
	restored.Restore(entries)

	assert.Equal(t, entries, restored.Snapshot())

	// The allocator continues past the highest restored ID.
	next, err := restored.Create(newItem(t, furniture.KindSofa, "new", "1"), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, next.ID)
}
