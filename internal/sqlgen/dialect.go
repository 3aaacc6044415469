package sqlgen

// Dialect controls how literals are quoted in generated scripts and how
// auto-generated keys are declared in CREATE TABLE.
type Dialect struct {
	Name string
	// ValueQuote wraps char and text values in SET and VALUES lists.
	ValueQuote byte
	// KeyQuote wraps char and text values substituted into key templates.
	KeyQuote byte
	// Serial declares an auto-generated integer primary key.
	Serial string
}

var (
	// DialectDefault double-quotes assigned values and single-quotes key
	// values. SQLite and MySQL (without ANSI_QUOTES) accept both.
	DialectDefault = Dialect{
		Name:       "sqlite",
		ValueQuote: '"',
		KeyQuote:   '\'',
		Serial:     "INTEGER PRIMARY KEY AUTOINCREMENT",
	}

	// DialectMySQL quotes like DialectDefault.
	DialectMySQL = Dialect{
		Name:       "mysql",
		ValueQuote: '"',
		KeyQuote:   '\'',
		Serial:     "INTEGER PRIMARY KEY AUTO_INCREMENT",
	}

	// DialectANSI single-quotes every string literal, as PostgreSQL requires.
	DialectANSI = Dialect{
		Name:       "postgres",
		ValueQuote: '\'',
		KeyQuote:   '\'',
		Serial:     "SERIAL PRIMARY KEY",
	}
)

// DialectFor returns the dialect registered under an engine name,
// falling back to DialectDefault.
func DialectFor(engine string) Dialect {
	switch engine {
	case DialectMySQL.Name:
		return DialectMySQL
	case DialectANSI.Name, "pgx":
		return DialectANSI
	default:
		return DialectDefault
	}
}
