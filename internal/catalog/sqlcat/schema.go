package sqlcat

// Schema contains the SQL definitions for the catalog database. The
// catalog database is the source of truth for which metadata document is
// current for every table and materialized view; the documents
// themselves live in the object store.

// CreateEntitiesTableSQL creates the entity table. One row per table or
// materialized view, keyed by catalog name, encoded namespace token, and
// entity name. metadata_location is the pointer the commit protocol
// swaps.
const CreateEntitiesTableSQL = `
CREATE TABLE IF NOT EXISTS firn_tables (
    catalog_name TEXT NOT NULL,
    namespace TEXT NOT NULL,
    name TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    metadata_location TEXT NOT NULL,
    previous_metadata_location TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (catalog_name, namespace, name)
)`

// CreateNamespacePropertiesTableSQL creates the namespace properties
// table. A namespace exists when it has at least one property row or one
// registered entity.
const CreateNamespacePropertiesTableSQL = `
CREATE TABLE IF NOT EXISTS firn_namespace_properties (
    catalog_name TEXT NOT NULL,
    namespace TEXT NOT NULL,
    property_key TEXT NOT NULL,
    property_value TEXT,
    PRIMARY KEY (catalog_name, namespace, property_key)
)`

// CreateEntitiesIndexesSQL creates indexes for namespace-scoped listing.
var CreateEntitiesIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_firn_tables_namespace ON firn_tables(catalog_name, namespace)`,
}

// AllSchemaSQL returns all SQL statements needed to initialize the
// catalog database.
func AllSchemaSQL() []string {
	statements := []string{
		CreateEntitiesTableSQL,
		CreateNamespacePropertiesTableSQL,
	}
	statements = append(statements, CreateEntitiesIndexesSQL...)
	return statements
}
