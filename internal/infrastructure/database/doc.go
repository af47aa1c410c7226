// Package database opens the SQLite file that holds xcomfortd's durable
// state and applies its schema migrations.
//
// The only durable state today is the per-source energy totals table, so
// the schema is small. Migrations are embedded SQL files named
// YYYYMMDD_HHMMSS_description.{up,down}.sql; each is applied in its own
// transaction and recorded in schema_migrations.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
