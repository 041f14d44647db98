package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
)

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", v, err)
	}
	return d
}

func simpleSource(t *testing.T, retail, wholesale string) catalog.Priceable {
	t.Helper()
	source, err := catalog.Resolve(&models.Product{
		ID:             uuid.New(),
		Name:           "Grinder",
		SKU:            "GR-1",
		ProductType:    enums.ProductTypeSimple,
		RetailPrice:    dec(t, retail),
		WholesalePrice: dec(t, wholesale),
		StockQuantity:  100,
		IsActive:       true,
	}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return source
}

func TestUnitPriceSelectsTier(t *testing.T) {
	engine := NewEngine(dec(t, "0.08"))
	source := simpleSource(t, "24.99", "18.99")

	if got := engine.UnitPrice(source, Retail()); !got.Equal(dec(t, "24.99")) {
		t.Fatalf("retail price expected 24.99 got %s", got)
	}
	wholesale := Context{IsWholesale: true, VolumeDiscountRate: decimal.Zero}
	if got := engine.UnitPrice(source, wholesale); !got.Equal(dec(t, "18.99")) {
		t.Fatalf("wholesale price expected 18.99 got %s", got)
	}
}

func TestUnitPriceIgnoresDiscountForRetail(t *testing.T) {
	engine := NewEngine(dec(t, "0.08"))
	source := simpleSource(t, "24.99", "18.99")

	ctx := Context{IsWholesale: false, VolumeDiscountRate: dec(t, "0.10")}
	if got := engine.UnitPrice(source, ctx); !got.Equal(dec(t, "24.99")) {
		t.Fatalf("retail users never get the volume discount, got %s", got)
	}
}

// Retail user buys 2 x 24.99 with 15.00 shipping.
func TestTotalsRetailScenario(t *testing.T) {
	engine := NewEngine(dec(t, "0.08"))
	source := simpleSource(t, "24.99", "18.99")

	unit := engine.UnitPrice(source, Retail())
	totals := engine.Totals([]Line{{UnitPrice: unit, Quantity: 2}}, dec(t, "15.00"))

	if !totals.Subtotal.Equal(dec(t, "49.98")) {
		t.Fatalf("subtotal expected 49.98 got %s", totals.Subtotal)
	}
	if !totals.Tax.Equal(dec(t, "4.00")) {
		t.Fatalf("tax expected 4.00 got %s", totals.Tax)
	}
	if !totals.Shipping.Equal(dec(t, "15.00")) {
		t.Fatalf("shipping expected 15.00 got %s", totals.Shipping)
	}
	if !totals.Total.Equal(dec(t, "68.98")) {
		t.Fatalf("total expected 68.98 got %s", totals.Total)
	}
}

// Wholesale user past the volume threshold buys 5 x 18.99 at 10% off.
func TestUnitPriceWholesaleVolumeScenario(t *testing.T) {
	engine := NewEngine(dec(t, "0.08"))
	source := simpleSource(t, "24.99", "18.99")

	ctx := Context{IsWholesale: true, VolumeDiscountRate: dec(t, "0.10")}
	unit := engine.UnitPrice(source, ctx)
	if !unit.Equal(dec(t, "17.091")) {
		t.Fatalf("unit expected 17.091 got %s", unit)
	}

	line := Line{UnitPrice: unit, Quantity: 5}
	if !line.Total().Equal(dec(t, "85.455")) {
		t.Fatalf("line total expected 85.455 got %s", line.Total())
	}

	totals := engine.Totals([]Line{line}, decimal.Zero)
	if !totals.Subtotal.Equal(dec(t, "85.46")) {
		t.Fatalf("subtotal expected 85.46 (half away from zero) got %s", totals.Subtotal)
	}
	if !totals.Tax.Equal(dec(t, "6.84")) {
		t.Fatalf("tax expected 6.84 got %s", totals.Tax)
	}
	if !totals.Total.Equal(dec(t, "92.30")) {
		t.Fatalf("total expected 92.30 got %s", totals.Total)
	}
}

func TestTotalsRoundsOnlyOnceAcrossLines(t *testing.T) {
	engine := NewEngine(decimal.Zero)
	lines := []Line{
		{UnitPrice: dec(t, "0.005"), Quantity: 1},
		{UnitPrice: dec(t, "0.005"), Quantity: 1},
	}
	totals := engine.Totals(lines, decimal.Zero)
	if !totals.Subtotal.Equal(dec(t, "0.01")) {
		t.Fatalf("expected sum before rounding (0.01) got %s", totals.Subtotal)
	}
}

func TestMinimumQuantity(t *testing.T) {
	product := &models.Product{MOQ: 6}
	if got := Retail().MinimumQuantity(product); got != 1 {
		t.Fatalf("retail minimum expected 1 got %d", got)
	}

	wholesale := Context{IsWholesale: true, MinLineQuantity: 3}
	if got := wholesale.MinimumQuantity(product); got != 6 {
		t.Fatalf("product moq above floor expected 6 got %d", got)
	}
	if got := wholesale.MinimumQuantity(&models.Product{MOQ: 1}); got != 3 {
		t.Fatalf("wholesale floor expected 3 got %d", got)
	}
}
