package http

import (
	"context"
	"net/http"

	"github.com/mind-engage/mindengage-cat/internal/itembank"
	"github.com/mind-engage/mindengage-cat/internal/presets"
)

// ItemImporter adds or replaces items in the bank.
type ItemImporter interface {
	Import(ctx context.Context, items []itembank.Item) error
}

// MemoryImporter adapts a MemoryBank to ItemImporter.
type MemoryImporter struct{ Bank *itembank.MemoryBank }

func (m MemoryImporter) Import(_ context.Context, items []itembank.Item) error {
	return m.Bank.Add(items...)
}

func CategoriesHandler(bank itembank.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := bank.Categories(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if cats == nil {
			cats = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
	}
}

// POST /bank/items accepts a JSON array of items; the whole batch is
// rejected if any item is invalid.
func ImportItemsHandler(imp ItemImporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := itembank.LoadJSON(http.MaxBytesReader(w, r.Body, 8<<20))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := imp.Import(r.Context(), items); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"imported": len(items)})
	}
}

func ListPresetsHandler(catalog *presets.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"presets": catalog.List()})
	}
}
