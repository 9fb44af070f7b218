package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/entity"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
)

type mockCatalog struct {
	entity.Catalog
	Notes string `db:"notes" json:"notes"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expectedCols := []string{
		"id", "deletion_mark", "version", "code", "name", "active", "notes",
	}

	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
}

func TestStructToMap(t *testing.T) {
	cat := mockCatalog{
		Catalog: entity.Catalog{
			BaseCatalog: entity.BaseCatalog{
				BaseEntity: entity.BaseEntity{
					ID:           id.New(),
					DeletionMark: true,
					Version:      5,
				},
			},
			Code:   "PECH",
			Name:   "Pechuga",
			Active: true,
		},
		Notes: "sin hueso",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "PECH", m["code"])
	assert.Equal(t, "Pechuga", m["name"])
	assert.Equal(t, true, m["active"])
	assert.Equal(t, "sin hueso", m["notes"])
}
