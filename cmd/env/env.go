// Package env defines the environment variables read by the remesas commands
package env

const (
	// Prefix is the prefix of every remesas environment variable.
	// Flags are also read from the environment, ex. REMESAS_LISTEN
	Prefix = "REMESAS"

	// DBURLSuffix is the Postgres connection string (REMESAS_DB_URL)
	DBURLSuffix = "_DB_URL"

	// MongoURLSuffix is the MongoDB connection URI (REMESAS_MONGO_URL)
	MongoURLSuffix = "_MONGO_URL"

	// MongoDBSuffix is the MongoDB database name (REMESAS_MONGO_DB)
	MongoDBSuffix = "_MONGO_DB"
)
