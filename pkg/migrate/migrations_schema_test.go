package migrate_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(migrate.Files(), "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := fs.ReadFile(migrate.Files(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.Validate(migrate.Files()); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestProductsMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_products_table"), []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (discount >= 0 AND discount <= 100)",
		"CHECK (rating >= 0 AND rating <= 5)",
		"CHECK (stock >= 0)",
		"CREATE INDEX IF NOT EXISTS idx_products_category",
		"DROP TABLE IF EXISTS products",
	})
}

func TestUsersMigrationNamesEmailConstraint(t *testing.T) {
	assertContains(t, readMigration(t, "create_users_table"), []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CONSTRAINT users_email_key UNIQUE (email)",
		"DROP TABLE IF EXISTS users",
	})
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders_tables"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"'pending', 'processing', 'shipped', 'delivered', 'cancelled'",
		"'credit_card', 'paypal', 'apple_pay', 'google_pay'",
		"position integer NOT NULL DEFAULT 0",
		"DROP TABLE IF EXISTS order_items",
	})
}

func TestOutboxMigrationContainsTables(t *testing.T) {
	assertContains(t, readMigration(t, "create_outbox_tables"), []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"WHERE published_at IS NULL",
		"payload_json jsonb NOT NULL",
		"DROP TABLE IF EXISTS outbox_dlq",
	})
}

func TestSeedMigrationMatchesReferenceCatalog(t *testing.T) {
	content := readMigration(t, "seed_reference_products")
	for _, product := range catalog.SeedProducts() {
		if !strings.Contains(content, "'"+product.ID.String()+"', '"+product.Name+"', "+product.Price.StringFixed(2)) {
			t.Errorf("seed migration missing %s (%s)", product.Name, product.ID)
		}
	}
	if !strings.Contains(content, "ON CONFLICT (id) DO NOTHING") {
		t.Error("seed migration should be idempotent")
	}
}
