package sqlite

// tableDef describes a table the catalog needs. create builds it from
// scratch; columns lists what must exist on a table that predates some of
// them. Column definitions only use constant defaults because SQLite rejects
// CURRENT_TIMESTAMP in ADD COLUMN; timestamps are back-filled instead.
type tableDef struct {
	name    string
	create  string
	columns []columnDef
}

type columnDef struct {
	name     string
	ddl      string
	backfill string // runs in the same transaction as the ADD COLUMN
}

type indexDef struct {
	name   string
	create string
}

var schemaTables = []tableDef{
	{
		name: "users",
		create: `CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		columns: []columnDef{
			{name: "username", ddl: "TEXT NOT NULL DEFAULT ''"},
			{name: "password_hash", ddl: "TEXT NOT NULL DEFAULT ''"},
			{
				name:     "created_at",
				ddl:      "TEXT NOT NULL DEFAULT ''",
				backfill: "UPDATE users SET created_at = CURRENT_TIMESTAMP WHERE created_at = ''",
			},
		},
	},
	{
		name: "books",
		create: `CREATE TABLE IF NOT EXISTS books (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id),
	isbn       TEXT,
	title      TEXT NOT NULL,
	authors    TEXT,
	tags       TEXT,
	location   TEXT,
	notes      TEXT,
	status     TEXT NOT NULL DEFAULT 'unread',
	cover_url  TEXT,
	source     TEXT,
	meta_json  TEXT,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		columns: []columnDef{
			// Nullable: rows that predate ownership stay NULL until repaired.
			{name: "user_id", ddl: "INTEGER"},
			{name: "isbn", ddl: "TEXT"},
			{name: "title", ddl: "TEXT NOT NULL DEFAULT '(untitled)'"},
			{name: "authors", ddl: "TEXT"},
			{name: "tags", ddl: "TEXT"},
			{name: "location", ddl: "TEXT"},
			{name: "notes", ddl: "TEXT"},
			{name: "status", ddl: "TEXT NOT NULL DEFAULT 'unread'"},
			{name: "cover_url", ddl: "TEXT"},
			{name: "source", ddl: "TEXT"},
			{name: "meta_json", ddl: "TEXT"},
			{
				name:     "created_at",
				ddl:      "TEXT NOT NULL DEFAULT ''",
				backfill: "UPDATE books SET created_at = CURRENT_TIMESTAMP WHERE created_at = ''",
			},
			{
				name:     "updated_at",
				ddl:      "TEXT NOT NULL DEFAULT ''",
				backfill: "UPDATE books SET updated_at = created_at WHERE updated_at = ''",
			},
		},
	},
	{
		name: "book_locations",
		create: `CREATE TABLE IF NOT EXISTS book_locations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id    INTEGER NOT NULL REFERENCES books(id),
	user_id    INTEGER NOT NULL REFERENCES users(id),
	location   TEXT NOT NULL,
	changed_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		columns: []columnDef{
			{name: "book_id", ddl: "INTEGER NOT NULL DEFAULT 0"},
			{name: "user_id", ddl: "INTEGER NOT NULL DEFAULT 0"},
			{name: "location", ddl: "TEXT NOT NULL DEFAULT ''"},
			{
				name:     "changed_at",
				ddl:      "TEXT NOT NULL DEFAULT ''",
				backfill: "UPDATE book_locations SET changed_at = CURRENT_TIMESTAMP WHERE changed_at = ''",
			},
		},
	},
}

var schemaIndexes = []indexDef{
	{name: "idx_book_locations_book", create: "CREATE INDEX IF NOT EXISTS idx_book_locations_book ON book_locations(book_id)"},
	{name: "idx_book_locations_user", create: "CREATE INDEX IF NOT EXISTS idx_book_locations_user ON book_locations(user_id)"},
	{name: "idx_books_user_isbn", create: "CREATE INDEX IF NOT EXISTS idx_books_user_isbn ON books(user_id, isbn)"},
	{name: "idx_books_user_updated", create: "CREATE INDEX IF NOT EXISTS idx_books_user_updated ON books(user_id, updated_at)"},
}
