package repository

import (
	"sync"
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// FindByIDForUpdate loads line items ordered by created_at after locking the
// parent row, so the column must exist on both line-item tables.
func TestLineItemTablesCarryCreatedAt(t *testing.T) {
	for _, m := range []interface{}{&model.POLineItem{}, &model.GRNLineItem{}} {
		s, err := schema.Parse(m, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)
		require.Contains(t, s.FieldsByDBName, "created_at", "table %s", s.Table)
	}
}
