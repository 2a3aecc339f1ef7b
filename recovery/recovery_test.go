package recovery

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kusinahub/kusina-api/models"
)

type fakeCatalog map[string]*models.Product

func (f fakeCatalog) ProductByName(name string) (*models.Product, error) {
	return f[name], nil
}

func price(v float64) *float64 { return &v }

func liveCatalog() fakeCatalog {
	itemA := &models.Product{Name: "Item A", BasePrice: price(60), Available: true}
	itemA.ID = 1
	itemA.Options = []models.Option{
		{ProductID: 1, GroupName: "Size", Name: "Large", AdditionalPrice: 15, Available: true},
		{ProductID: 1, GroupName: "Size", Name: "Small", Available: true},
	}

	itemB := &models.Product{Name: "Item B", BasePrice: price(40), Available: true}
	itemB.ID = 2

	return fakeCatalog{"Item A": itemA, "Item B": itemB}
}

func declinedItems() []models.OrderItem {
	return []models.OrderItem{
		{
			ProductName: "Item A",
			Quantity:    2,
			Price:       75,
			Options:     datatypes.JSONMap{"Size": "Large"},
			GroupTag:    "Ana",
		},
		{
			ProductName: "Item B",
			Quantity:    1,
			Price:       40,
			Options:     datatypes.JSONMap{},
			GroupTag:    "",
		},
	}
}

func TestRebuildPreservesQuantitiesAndTags(t *testing.T) {
	rebuilt, err := Rebuild(declinedItems(), liveCatalog(), RepriceFromCatalog)
	require.NoError(t, err)

	items := rebuilt.Items()
	require.Len(t, items, 2)

	assert.Equal(t, "Item A", items[0].ProductName)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Ana", items[0].GroupTag)
	require.Len(t, items[0].Options, 1)
	assert.Equal(t, "Large", items[0].Options[0].Name)

	assert.Equal(t, "Item B", items[1].ProductName)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Empty(t, items[1].GroupTag)
	assert.Empty(t, items[1].Options)
}

func TestRebuildSkipsMissingProducts(t *testing.T) {
	catalog := liveCatalog()
	delete(catalog, "Item A")

	rebuilt, err := Rebuild(declinedItems(), catalog, RepriceFromCatalog)
	require.NoError(t, err)

	// Partial reconstruction, not a hard failure.
	require.Equal(t, 1, rebuilt.Len())
	assert.Equal(t, "Item B", rebuilt.Items()[0].ProductName)
}

func TestRebuildSkipsUnavailableProducts(t *testing.T) {
	catalog := liveCatalog()
	catalog["Item A"].Available = false

	rebuilt, err := Rebuild(declinedItems(), catalog, RepriceFromCatalog)
	require.NoError(t, err)
	require.Equal(t, 1, rebuilt.Len())
	assert.Equal(t, "Item B", rebuilt.Items()[0].ProductName)
}

func TestRebuildDropsRemovedOptions(t *testing.T) {
	catalog := liveCatalog()
	catalog["Item A"].Options = nil

	rebuilt, err := Rebuild(declinedItems(), catalog, RepriceFromCatalog)
	require.NoError(t, err)

	items := rebuilt.Items()
	require.Len(t, items, 2)
	assert.Empty(t, items[0].Options)
	assert.Equal(t, 60.0, items[0].UnitPrice())
}

func TestRebuildRepricesFromCatalog(t *testing.T) {
	catalog := liveCatalog()
	// Prices moved since the order was declined.
	catalog["Item A"].BasePrice = price(70)
	catalog["Item A"].Options[0].AdditionalPrice = 20

	rebuilt, err := Rebuild(declinedItems(), catalog, RepriceFromCatalog)
	require.NoError(t, err)

	itemA := rebuilt.Items()[0]
	assert.Equal(t, 90.0, itemA.UnitPrice())
}

func TestRebuildKeepQuotedPrice(t *testing.T) {
	catalog := liveCatalog()
	catalog["Item A"].BasePrice = price(70)
	catalog["Item A"].Options[0].AdditionalPrice = 20

	rebuilt, err := Rebuild(declinedItems(), catalog, KeepQuotedPrice)
	require.NoError(t, err)

	// Line totals stay at the originally quoted prices.
	itemA := rebuilt.Items()[0]
	assert.Equal(t, 75.0, itemA.UnitPrice())
	itemB := rebuilt.Items()[1]
	assert.Equal(t, 40.0, itemB.UnitPrice())
}

func TestRebuildUnknownPolicy(t *testing.T) {
	_, err := Rebuild(declinedItems(), liveCatalog(), Policy("auction"))
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestRebuildMergesLinesSharingASignature(t *testing.T) {
	items := []models.OrderItem{
		{ProductName: "Item B", Quantity: 1, Price: 40, Options: datatypes.JSONMap{}, GroupTag: "Ana"},
		{ProductName: "Item B", Quantity: 2, Price: 40, Options: datatypes.JSONMap{}, GroupTag: "Ben"},
	}

	rebuilt, err := Rebuild(items, liveCatalog(), RepriceFromCatalog)
	require.NoError(t, err)

	// Identical product and options share one signature, so the lines
	// merge and the last reapplied tag wins.
	require.Equal(t, 1, rebuilt.Len())
	merged := rebuilt.Items()[0]
	assert.Equal(t, 3, merged.Quantity)
	assert.Equal(t, "Ben", merged.GroupTag)
}

func TestDBCatalog(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Option{}))

	product := models.Product{Name: "Item A", BasePrice: price(60), Available: true}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Create(&models.Option{
		ProductID: product.ID, GroupName: "Size", Name: "Large", AdditionalPrice: 15, Available: true,
	}).Error)

	catalog := DBCatalog{DB: db}

	found, err := catalog.ProductByName("Item A")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, product.ID, found.ID)
	require.Len(t, found.Options, 1)
	assert.Equal(t, "Large", found.Options[0].Name)

	missing, err := catalog.ProductByName("Item Z")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
