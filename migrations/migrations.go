// Package migrations embeds the schema for both storage backends.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres holds tern migrations (NNN_name.sql with a create/drop divider).
func Postgres() fs.FS {
	return sub("postgres")
}

// SQLite holds plain forward-only scripts applied in file name order.
func SQLite() fs.FS {
	return sub("sqlite")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return fsys
}
