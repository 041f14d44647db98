// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
)

// partialIndexes are declared only in the goose migrations; gorm tags cannot express
// their WHERE clauses.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_user_product_simple
		ON cart_items (user_id, product_id) WHERE variant_id IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_user_product_variant
		ON cart_items (user_id, product_id, variant_id) WHERE variant_id IS NOT NULL`,
}

// NewSQLite returns a client on a private in-memory sqlite database with every model
// migrated, including the partial unique indexes of the cart. The database lives until
// the test finishes.
func NewSQLite(t *testing.T) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	for _, stmt := range partialIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create index: %v", err)
		}
	}
	return db.NewFromConn(conn)
}
