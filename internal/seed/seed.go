package seed

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/maeknit/dashboard/internal/settings"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// Run stores the default document for every variant that has none. Existing
// documents are never touched, so running it again is a no-op.
func Run(db *sqlx.DB, variants []settings.Variant) (Stats, error) {
	tx, err := db.Beginx()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	for _, v := range variants {
		if err := ensureDocument(tx, v, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureDocument(tx *sqlx.Tx, v settings.Variant, stats *Stats) error {
	var exists bool
	if err := tx.Get(&exists, tx.Rebind(`SELECT EXISTS(SELECT 1 FROM app_settings WHERE id = ?)`), v.Key); err != nil {
		return fmt.Errorf("check %s existence: %w", v.Key, err)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	data, err := v.DefaultDocument()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(tx.Rebind(`
		INSERT INTO app_settings (id, data, schema_version)
		VALUES (?, ?, ?)
	`), v.Key, string(data), v.Version); err != nil {
		return fmt.Errorf("insert default %s: %w", v.Key, err)
	}
	stats.Inserts++
	return nil
}
