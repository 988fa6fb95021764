// Package sqlcat implements the catalog contract on SQLite. Entity rows
// carry the current metadata-location pointer; the guarded UPDATE in
// UpdateTable is the compare-and-swap the whole commit protocol rests on.
package sqlcat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/firndb/firn/internal/catalog"
	ferrors "github.com/firndb/firn/internal/errors"
	"github.com/firndb/firn/internal/manifest"
	"github.com/firndb/firn/internal/observability"
	"github.com/firndb/firn/internal/storage"
	"github.com/firndb/firn/internal/table"
	"github.com/firndb/firn/internal/view"
	"github.com/firndb/firn/pkg/types"

	_ "github.com/mattn/go-sqlite3"
)

// Entity type discriminators stored in the entity_type column.
const (
	entityTable = "TABLE"
	entityView  = "MATERIALIZED_VIEW"
)

// namespaceExistsKey marks a namespace created without properties.
const namespaceExistsKey = "exists"

// Catalog is a SQLite-backed catalog. A single write connection in WAL
// mode serializes pointer swaps and registrations; a read-only pool
// serves lookups and listings. Handles it constructs share one decoded
// manifest cache and one commit-stats collector.
type Catalog struct {
	name   string
	dbPath string
	store  storage.ObjectStore

	db     *sql.DB // write connection (single writer)
	readDB *sql.DB // read connection pool (concurrent readers)
	mu     sync.Mutex

	loadStmt *sql.Stmt // hot-path entity lookup on the read connection

	manifests *manifest.Cache
	stats     *observability.CommitStats
}

var _ catalog.Catalog = (*Catalog)(nil)

// Open opens (creating if absent) the catalog database at dbPath.
// Metadata documents for the entities it tracks are read from and
// written to store.
func Open(name, dbPath string, store storage.ObjectStore) (*Catalog, error) {
	if name == "" {
		return nil, ferrors.NewValidationError(ferrors.CodeInvalidRequest,
			"catalog name is empty")
	}

	// Write connection: single writer with WAL mode
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlcat: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &Catalog{
		name:      name,
		dbPath:    dbPath,
		store:     store,
		db:        db,
		manifests: manifest.NewCache(manifest.DefaultCacheEntries),
		stats:     observability.NewCommitStats(observability.DefaultSampleSize, time.Hour),
	}

	// Schema bootstrap has to run on the write connection before any
	// read-only connection can attach to the WAL files.
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlcat: initialize schema: %w", err)
	}

	// Read connection pool: concurrent readers via read-only mode
	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlcat: open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	c.readDB = readDB

	loadStmt, err := readDB.Prepare(
		`SELECT entity_type, metadata_location FROM firn_tables
		 WHERE catalog_name = ? AND namespace = ? AND name = ?`)
	if err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("sqlcat: prepare load statement: %w", err)
	}
	c.loadStmt = loadStmt

	return c, nil
}

// initSchema creates all required tables and indexes.
func (c *Catalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// WithCache replaces the shared decoded-manifest cache attached to
// table handles this catalog constructs.
func (c *Catalog) WithCache(cache *manifest.Cache) *Catalog {
	if cache != nil {
		c.manifests = cache
	}
	return c
}

// WithStats replaces the shared commit-stats collector attached to
// table handles this catalog constructs.
func (c *Catalog) WithStats(stats *observability.CommitStats) *Catalog {
	if stats != nil {
		c.stats = stats
	}
	return c
}

// Name returns the catalog's name, the first component of every row key.
func (c *Catalog) Name() string {
	return c.name
}

// Stats returns the commit-stats collector shared by every table handle
// this catalog has constructed.
func (c *Catalog) Stats() *observability.CommitStats {
	return c.stats
}

// Close closes the catalog database connections.
func (c *Catalog) Close() error {
	if c.loadStmt != nil {
		c.loadStmt.Close()
	}
	if err := c.readDB.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}

// CreateNamespace registers a namespace. Registering the distinguished
// empty namespace or an already registered one fails.
func (c *Catalog) CreateNamespace(ctx context.Context, ns catalog.Namespace, props map[string]string) error {
	if ns.IsEmpty() {
		return ferrors.NewValidationError(ferrors.CodeInvalidNamespace,
			"cannot create the empty namespace")
	}
	token := ns.Encode()

	c.mu.Lock()
	defer c.mu.Unlock()

	exists, err := c.namespaceExistsWrite(ctx, token)
	if err != nil {
		return err
	}
	if exists {
		return ferrors.NewCatalogError(ferrors.CodeAlreadyExists,
			fmt.Sprintf("namespace %s already exists in catalog %s", ns, c.name), nil)
	}

	if len(props) == 0 {
		props = map[string]string{namespaceExistsKey: "true"}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlcat: begin transaction: %w", err)
	}
	defer tx.Rollback()

	for k, v := range props {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO firn_namespace_properties (catalog_name, namespace, property_key, property_value)
			 VALUES (?, ?, ?, ?)`,
			c.name, token, k, v,
		); err != nil {
			return fmt.Errorf("sqlcat: insert namespace property %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlcat: commit namespace %s: %w", ns, err)
	}
	return nil
}

// ListNamespaces returns every namespace with at least one property row
// or one registered entity.
func (c *Catalog) ListNamespaces(ctx context.Context) ([]catalog.Namespace, error) {
	rows, err := c.readDB.QueryContext(ctx,
		`SELECT namespace FROM firn_tables WHERE catalog_name = ?
		 UNION
		 SELECT namespace FROM firn_namespace_properties WHERE catalog_name = ?
		 ORDER BY namespace`,
		c.name, c.name,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlcat: query namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces []catalog.Namespace
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("sqlcat: scan namespace: %w", err)
		}
		ns, err := catalog.DecodeNamespace(token)
		if err != nil {
			return nil, fmt.Errorf("sqlcat: decode namespace token %q: %w", token, err)
		}
		namespaces = append(namespaces, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlcat: iterate namespaces: %w", err)
	}
	return namespaces, nil
}

// LoadNamespaceProperties returns a namespace's property map.
func (c *Catalog) LoadNamespaceProperties(ctx context.Context, ns catalog.Namespace) (map[string]string, error) {
	token := ns.Encode()
	exists, err := c.namespaceExists(ctx, token)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ferrors.NewCatalogError(ferrors.CodeNotFound,
			fmt.Sprintf("namespace %s not found in catalog %s", ns, c.name), nil)
	}

	rows, err := c.readDB.QueryContext(ctx,
		`SELECT property_key, property_value FROM firn_namespace_properties
		 WHERE catalog_name = ? AND namespace = ?`,
		c.name, token,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlcat: query namespace properties: %w", err)
	}
	defer rows.Close()

	props := make(map[string]string)
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("sqlcat: scan namespace property: %w", err)
		}
		props[k] = v.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlcat: iterate namespace properties: %w", err)
	}
	return props, nil
}

// CreateTable provisions a table: builds its initial metadata document,
// writes it to the object store, registers the pointer row, and returns
// the loaded handle.
func (c *Catalog) CreateTable(ctx context.Context, ident catalog.Identifier, req catalog.CreateTableRequest) (catalog.Tabular, error) {
	if ident.IsZero() {
		return nil, ferrors.NewValidationError(ferrors.CodeInvalidRequest,
			"table identifier is empty")
	}
	if req.Location == "" {
		return nil, ferrors.NewValidationError(ferrors.CodeInvalidRequest,
			fmt.Sprintf("table %s: location is required", ident))
	}
	if err := c.requireNamespace(ctx, ident.Namespace()); err != nil {
		return nil, err
	}

	b, err := types.NewMetadataBuilder(req.Location, req.Schema, req.PartitionSpec, req.SortOrder)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCategoryValidation, ferrors.CodeInvalidRequest,
			fmt.Sprintf("table %s: invalid creation request", ident), err)
	}
	for k, v := range req.Properties {
		b.SetProperty(k, v)
	}
	meta, err := b.Build()
	if err != nil {
		return nil, ferrors.NewInternalError(fmt.Sprintf("table %s: build metadata", ident), err)
	}
	data, err := meta.Encode()
	if err != nil {
		return nil, ferrors.NewInternalError(fmt.Sprintf("table %s: encode metadata", ident), err)
	}
	location := meta.NewMetadataLocation()
	if err := c.store.Put(ctx, location, data); err != nil {
		return nil, fmt.Errorf("sqlcat: write metadata for %s: %w", ident, err)
	}

	if err := c.registerEntity(ctx, ident, entityTable, location); err != nil {
		return nil, err
	}
	return c.LoadTabular(ctx, ident)
}

// CreateMaterializedView provisions a materialized view together with
// its backing storage table. The storage table is registered first so
// the view document never names an unregistered table; both pointer
// rows land in one database transaction.
func (c *Catalog) CreateMaterializedView(ctx context.Context, ident catalog.Identifier, req catalog.CreateViewRequest) (catalog.Tabular, error) {
	if ident.IsZero() {
		return nil, ferrors.NewValidationError(ferrors.CodeInvalidRequest,
			"view identifier is empty")
	}
	if req.Location == "" {
		return nil, ferrors.NewValidationError(ferrors.CodeInvalidRequest,
			fmt.Sprintf("view %s: location is required", ident))
	}
	if req.Definition == "" {
		return nil, ferrors.NewValidationError(ferrors.CodeInvalidRequest,
			fmt.Sprintf("view %s: definition is required", ident))
	}
	if err := c.requireNamespace(ctx, ident.Namespace()); err != nil {
		return nil, err
	}

	storageIdent := req.StorageIdentifier
	if storageIdent.IsZero() {
		storageIdent, _ = catalog.NewIdentifier(ident.Namespace(), "__"+ident.Name()+"_storage")
	} else if !storageIdent.Namespace().Equal(ident.Namespace()) {
		if err := c.requireNamespace(ctx, storageIdent.Namespace()); err != nil {
			return nil, err
		}
	}
	storageLocation := req.StorageLocation
	if storageLocation == "" {
		storageLocation = req.Location + "/storage"
	}

	sb, err := types.NewMetadataBuilder(storageLocation, req.Schema, req.PartitionSpec, types.UnsortedOrder())
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCategoryValidation, ferrors.CodeInvalidRequest,
			fmt.Sprintf("view %s: invalid storage table request", ident), err)
	}
	storageMeta, err := sb.Build()
	if err != nil {
		return nil, ferrors.NewInternalError(fmt.Sprintf("view %s: build storage metadata", ident), err)
	}
	storageData, err := storageMeta.Encode()
	if err != nil {
		return nil, ferrors.NewInternalError(fmt.Sprintf("view %s: encode storage metadata", ident), err)
	}

	viewMeta, err := types.NewViewMetadata(req.Location, req.Definition, storageIdent.String())
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCategoryValidation, ferrors.CodeInvalidRequest,
			fmt.Sprintf("view %s: invalid view metadata", ident), err)
	}
	if len(req.Properties) > 0 {
		viewMeta.Properties = make(map[string]string, len(req.Properties))
		for k, v := range req.Properties {
			viewMeta.Properties[k] = v
		}
	}
	viewData, err := viewMeta.Encode()
	if err != nil {
		return nil, ferrors.NewInternalError(fmt.Sprintf("view %s: encode view metadata", ident), err)
	}

	storagePointer := storageMeta.NewMetadataLocation()
	if err := c.store.Put(ctx, storagePointer, storageData); err != nil {
		return nil, fmt.Errorf("sqlcat: write storage metadata for %s: %w", ident, err)
	}
	viewPointer := viewMeta.NewMetadataLocation()
	if err := c.store.Put(ctx, viewPointer, viewData); err != nil {
		return nil, fmt.Errorf("sqlcat: write view metadata for %s: %w", ident, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range []catalog.Identifier{storageIdent, ident} {
		taken, err := c.entityExistsWrite(ctx, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ferrors.NewCatalogError(ferrors.CodeAlreadyExists,
				fmt.Sprintf("%s already exists in catalog %s", id, c.name), nil)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlcat: begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, insertEntitySQL,
		c.name, storageIdent.Namespace().Encode(), storageIdent.Name(),
		entityTable, storagePointer, now, now,
	); err != nil {
		return nil, fmt.Errorf("sqlcat: register storage table %s: %w", storageIdent, err)
	}
	if _, err := tx.ExecContext(ctx, insertEntitySQL,
		c.name, ident.Namespace().Encode(), ident.Name(),
		entityView, viewPointer, now, now,
	); err != nil {
		return nil, fmt.Errorf("sqlcat: register view %s: %w", ident, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlcat: commit view registration %s: %w", ident, err)
	}

	return c.LoadTabular(ctx, ident)
}

const insertEntitySQL = `
INSERT INTO firn_tables (catalog_name, namespace, name, entity_type, metadata_location, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

// registerEntity inserts a single pointer row after checking the key is
// free.
func (c *Catalog) registerEntity(ctx context.Context, ident catalog.Identifier, entityType, location string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	taken, err := c.entityExistsWrite(ctx, ident)
	if err != nil {
		return err
	}
	if taken {
		return ferrors.NewCatalogError(ferrors.CodeAlreadyExists,
			fmt.Sprintf("%s already exists in catalog %s", ident, c.name), nil)
	}

	now := time.Now().Unix()
	if _, err := c.db.ExecContext(ctx, insertEntitySQL,
		c.name, ident.Namespace().Encode(), ident.Name(),
		entityType, location, now, now,
	); err != nil {
		return fmt.Errorf("sqlcat: register %s: %w", ident, err)
	}
	return nil
}

// LoadTabular resolves an identifier to its current table or view
// handle, reading the metadata document from the object store.
func (c *Catalog) LoadTabular(ctx context.Context, ident catalog.Identifier) (catalog.Tabular, error) {
	var entityType, location string
	err := c.loadStmt.QueryRowContext(ctx, c.name, ident.Namespace().Encode(), ident.Name()).
		Scan(&entityType, &location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferrors.NewCatalogError(ferrors.CodeNotFound,
			fmt.Sprintf("%s not found in catalog %s", ident, c.name), err)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlcat: load %s: %w", ident, err)
	}

	switch entityType {
	case entityTable:
		return c.loadTable(ctx, ident, location)
	case entityView:
		return c.loadView(ctx, ident, location)
	default:
		return nil, ferrors.NewInternalError(
			fmt.Sprintf("catalog row for %s has unknown entity type %q", ident, entityType), nil)
	}
}

func (c *Catalog) loadTable(ctx context.Context, ident catalog.Identifier, location string) (*table.Table, error) {
	data, err := c.store.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("sqlcat: read metadata for %s at %s: %w", ident, location, err)
	}
	meta, err := types.ParseTableMetadata(data)
	if err != nil {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptMetadata,
			fmt.Sprintf("%s: metadata document at %s", ident, location), err)
	}
	return table.New(ident, meta, location, c, c.store).
		WithCache(c.manifests).
		WithStats(c.stats), nil
}

func (c *Catalog) loadView(ctx context.Context, ident catalog.Identifier, location string) (*view.MaterializedView, error) {
	data, err := c.store.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("sqlcat: read metadata for %s at %s: %w", ident, location, err)
	}
	meta, err := types.ParseViewMetadata(data)
	if err != nil {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptMetadata,
			fmt.Sprintf("%s: view metadata document at %s", ident, location), err)
	}
	return view.New(ident, meta, location, c, c.store), nil
}

// UpdateTable atomically swaps ident's metadata pointer from
// prevLocation to newLocation and returns the freshly loaded handle.
// The swap is a guarded UPDATE; zero rows affected means the pointer
// moved (CONFLICT), the row is gone (CATALOG), or the entity is not a
// table (VALIDATION).
func (c *Catalog) UpdateTable(ctx context.Context, ident catalog.Identifier, newLocation, prevLocation string) (catalog.Tabular, error) {
	if err := c.swapPointer(ctx, ident, newLocation, prevLocation); err != nil {
		return nil, err
	}
	return c.LoadTabular(ctx, ident)
}

const swapPointerSQL = `
UPDATE firn_tables
   SET metadata_location = ?, previous_metadata_location = ?, updated_at = ?
 WHERE catalog_name = ? AND namespace = ? AND name = ?
   AND entity_type = ? AND metadata_location = ?`

func (c *Catalog) swapPointer(ctx context.Context, ident catalog.Identifier, newLocation, prevLocation string) error {
	token := ident.Namespace().Encode()

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, swapPointerSQL,
		newLocation, prevLocation, time.Now().Unix(),
		c.name, token, ident.Name(), entityTable, prevLocation,
	)
	if err != nil {
		return fmt.Errorf("sqlcat: swap pointer for %s: %w", ident, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlcat: swap pointer for %s: %w", ident, err)
	}
	if n > 0 {
		return nil
	}

	// The guard failed. Look at the row to tell the cases apart.
	var entityType, current string
	err = c.db.QueryRowContext(ctx,
		`SELECT entity_type, metadata_location FROM firn_tables
		 WHERE catalog_name = ? AND namespace = ? AND name = ?`,
		c.name, token, ident.Name(),
	).Scan(&entityType, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return ferrors.NewCatalogError(ferrors.CodeNotFound,
			fmt.Sprintf("%s not found in catalog %s", ident, c.name), err)
	}
	if err != nil {
		return fmt.Errorf("sqlcat: inspect pointer for %s: %w", ident, err)
	}
	if entityType != entityTable {
		return ferrors.NewValidationError(ferrors.CodeNotATable,
			fmt.Sprintf("%s is a %s, not a table", ident, entityType))
	}
	return ferrors.NewConflictError(
		fmt.Sprintf("%s: stale metadata pointer: catalog holds %s, commit expected %s",
			ident, current, prevLocation))
}

// DropTable removes an entity's pointer row. Its metadata objects stay
// in the object store for the maintenance sweep.
func (c *Catalog) DropTable(ctx context.Context, ident catalog.Identifier) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx,
		`DELETE FROM firn_tables WHERE catalog_name = ? AND namespace = ? AND name = ?`,
		c.name, ident.Namespace().Encode(), ident.Name(),
	)
	if err != nil {
		return fmt.Errorf("sqlcat: drop %s: %w", ident, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlcat: drop %s: %w", ident, err)
	}
	if n == 0 {
		return ferrors.NewCatalogError(ferrors.CodeNotFound,
			fmt.Sprintf("%s not found in catalog %s", ident, c.name), nil)
	}
	return nil
}

// ListTables returns every entity registered under a namespace, tables
// and materialized views alike, ordered by name.
func (c *Catalog) ListTables(ctx context.Context, ns catalog.Namespace) ([]catalog.Identifier, error) {
	token := ns.Encode()
	exists, err := c.namespaceExists(ctx, token)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ferrors.NewCatalogError(ferrors.CodeNotFound,
			fmt.Sprintf("namespace %s not found in catalog %s", ns, c.name), nil)
	}

	rows, err := c.readDB.QueryContext(ctx,
		`SELECT name FROM firn_tables
		 WHERE catalog_name = ? AND namespace = ?
		 ORDER BY name`,
		c.name, token,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlcat: list tables in %s: %w", ns, err)
	}
	defer rows.Close()

	var idents []catalog.Identifier
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlcat: scan entity name: %w", err)
		}
		ident, err := catalog.NewIdentifier(ns, name)
		if err != nil {
			return nil, fmt.Errorf("sqlcat: entity name %q in %s: %w", name, ns, err)
		}
		idents = append(idents, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlcat: iterate entities in %s: %w", ns, err)
	}
	return idents, nil
}

// requireNamespace fails with a CATALOG error when ns is unregistered.
func (c *Catalog) requireNamespace(ctx context.Context, ns catalog.Namespace) error {
	exists, err := c.namespaceExists(ctx, ns.Encode())
	if err != nil {
		return err
	}
	if !exists {
		return ferrors.NewCatalogError(ferrors.CodeNotFound,
			fmt.Sprintf("namespace %s not found in catalog %s", ns, c.name), nil)
	}
	return nil
}

// namespaceExists reports whether the namespace token has any property
// row or registered entity, using the read pool.
func (c *Catalog) namespaceExists(ctx context.Context, token string) (bool, error) {
	return c.namespaceExistsOn(ctx, c.readDB, token)
}

// namespaceExistsWrite is namespaceExists on the write connection, for
// checks that must observe rows written under the same lock.
func (c *Catalog) namespaceExistsWrite(ctx context.Context, token string) (bool, error) {
	return c.namespaceExistsOn(ctx, c.db, token)
}

func (c *Catalog) namespaceExistsOn(ctx context.Context, db *sql.DB, token string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM firn_namespace_properties WHERE catalog_name = ? AND namespace = ? LIMIT 1`,
		c.name, token,
	).Scan(&one)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("sqlcat: check namespace %q: %w", token, err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT 1 FROM firn_tables WHERE catalog_name = ? AND namespace = ? LIMIT 1`,
		c.name, token,
	).Scan(&one)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("sqlcat: check namespace %q: %w", token, err)
	}
	return false, nil
}

// entityExistsWrite reports whether an entity row exists, on the write
// connection. Callers hold c.mu.
func (c *Catalog) entityExistsWrite(ctx context.Context, ident catalog.Identifier) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM firn_tables WHERE catalog_name = ? AND namespace = ? AND name = ? LIMIT 1`,
		c.name, ident.Namespace().Encode(), ident.Name(),
	).Scan(&one)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("sqlcat: check entity %s: %w", ident, err)
	}
	return false, nil
}
