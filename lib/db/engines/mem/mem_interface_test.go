package mem

import (
	"testing"

	"github.com/colorful-bubbles/idb-keyval/lib/db"
	dbtesting "github.com/colorful-bubbles/idb-keyval/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunDatabaseTests(t, "MemDB", func() db.Database {
		return NewMemDB()
	})
}
