// Package view implements materialized views: a defining query whose
// result set is materialized into a backing storage table, plus the
// staleness protocol that decides whether that result is still current
// with respect to the query's base tables. The view's own metadata
// document is small and nearly static; all refresh state lives in the
// storage table's snapshot summaries.
package view

import (
	"context"
	"fmt"

	"github.com/firndb/firn/internal/catalog"
	ferrors "github.com/firndb/firn/internal/errors"
	"github.com/firndb/firn/internal/storage"
	"github.com/firndb/firn/internal/table"
	"github.com/firndb/firn/pkg/types"
)

// MaterializedView is a handle on a view's published metadata version.
type MaterializedView struct {
	ident            catalog.Identifier
	metadata         *types.ViewMetadata
	metadataLocation string
	catalog          catalog.Catalog
	store            storage.ObjectStore
}

// New constructs a view handle for a published metadata version.
func New(ident catalog.Identifier, metadata *types.ViewMetadata, metadataLocation string, cat catalog.Catalog, store storage.ObjectStore) *MaterializedView {
	return &MaterializedView{
		ident:            ident,
		metadata:         metadata,
		metadataLocation: metadataLocation,
		catalog:          cat,
		store:            store,
	}
}

// Identifier returns the view's catalog identifier.
func (v *MaterializedView) Identifier() catalog.Identifier {
	return v.ident
}

// MetadataLocation returns the location of the metadata version this
// handle observes.
func (v *MaterializedView) MetadataLocation() string {
	return v.metadataLocation
}

// Metadata returns the observed metadata document. Callers must treat
// it as read-only.
func (v *MaterializedView) Metadata() *types.ViewMetadata {
	return v.metadata
}

// Definition returns the view's defining query text.
func (v *MaterializedView) Definition() string {
	return v.metadata.Definition
}

// StorageTable resolves the view's backing table through the catalog
// and wraps it with the refresh protocol.
func (v *MaterializedView) StorageTable(ctx context.Context) (*StorageTable, error) {
	ident, err := catalog.ParseIdentifier(v.metadata.StorageTable)
	if err != nil {
		return nil, err
	}
	tab, err := v.catalog.LoadTabular(ctx, ident)
	if err != nil {
		return nil, err
	}
	tbl, ok := tab.(*table.Table)
	if !ok {
		return nil, ferrors.NewValidationError(ferrors.CodeNotATable,
			fmt.Sprintf("view %s: storage table %s resolved to %T", v.ident, v.metadata.StorageTable, tab))
	}
	return &StorageTable{
		Table:      tbl,
		definition: v.metadata.Definition,
		catalog:    v.catalog,
		store:      v.store,
	}, nil
}
