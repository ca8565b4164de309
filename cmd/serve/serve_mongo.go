package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/remesas/cmd/env"
	"github.com/sig-0/remesas/storage/mongo"
)

const defaultMongoDatabase = "remesas"

type serveMongoCfg struct {
	rootCfg *serveCfg
}

// newServeMongoCmd creates the serve mongo command
func newServeMongoCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveMongoCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("mongo", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "mongo",
		ShortUsage: "serve mongo [flags]",
		LongHelp:   "Serves the remesas backend, using a MongoDB datastore (replica set required for live margins)",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveMongoCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if err := c.rootCfg.loadConfig(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	uri := os.Getenv(env.Prefix + env.MongoURLSuffix)
	if uri == "" {
		return fmt.Errorf("missing %s", env.Prefix+env.MongoURLSuffix)
	}

	database := os.Getenv(env.Prefix + env.MongoDBSuffix)
	if database == "" {
		database = defaultMongoDatabase
	}

	client, db, err := mongo.Connect(ctx, uri, database, time.Second*10)
	if err != nil {
		return err
	}

	defer func() {
		closeCtx, cancelFn := context.WithTimeout(context.Background(), time.Second*5)
		defer cancelFn()

		if err := client.Disconnect(closeCtx); err != nil {
			logger.Error(
				"unable to gracefully close mongo connection",
				"err", err,
			)
		}
	}()

	logger.Info("mongo ping success")

	store := mongo.NewStorage(db)

	// Missing indexes slow down the listings, but are not fatal
	if err = store.EnsureIndexes(ctx); err != nil {
		logger.Warn(
			"unable to create mongo indexes",
			"err", err,
		)
	}

	return c.rootCfg.run(ctx, logger, store)
}
