package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"orgregistry/internal/core/entity"
	"orgregistry/internal/core/id"
)

type mockRecord struct {
	entity.Base
	Name    string `db:"name" json:"name"`
	Acronym string `db:"acronym" json:"acronym"`
	Ignored string `db:"-"`
	NoTag   string
	Parent  *id.ID `db:"parent_id"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockRecord]()

	expected := []string{
		"id", "version", "attributes", "created_at", "updated_at", "updated_by",
		"name", "acronym", "parent_id",
	}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, len(expected))
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	parent := id.New()
	rec := mockRecord{
		Base: entity.Base{
			ID:        id.New(),
			Version:   5,
			CreatedAt: now,
			UpdatedAt: now,
			UpdatedBy: "user-1",
		},
		Name:    "Red Cross",
		Acronym: "RC",
		Ignored: "should not appear",
		Parent:  &parent,
	}

	m := StructToMap(rec)

	assert.Equal(t, rec.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "user-1", m["updated_by"])
	assert.Equal(t, "Red Cross", m["name"])
	assert.Equal(t, "RC", m["acronym"])
	assert.Equal(t, &parent, m["parent_id"])
	_, hasIgnored := m["-"]
	assert.False(t, hasIgnored)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap("str"))
}
