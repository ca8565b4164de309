package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/remesas/cmd/env"
	"github.com/sig-0/remesas/server/config"
)

var errInvalidAdminToken = errors.New("admin tokens must be given as id=token")

// serveCfg wraps the serve configuration
type serveCfg struct {
	config    *config.Config
	providers *ProvidersConfig

	configPath     string
	adminTokens    string
	identitySecret string
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config:    config.DefaultConfig(),
		providers: &ProvidersConfig{},
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve <subcommand> [flags]",
		LongHelp:   "Serves the remesas backend",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newServeSQLCmd(cfg),
		newServeMongoCmd(cfg),
		newServeMemoryCmd(cfg),
	}

	return cmd
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.StringVar(
		&c.adminTokens,
		"admin-tokens",
		"",
		"comma separated id=token pairs of the admins, authenticating with the token as bearer",
	)

	fs.StringVar(
		&c.identitySecret,
		"identity-secret",
		"",
		"the secret signing issued caller identities. If empty, a random one is used",
	)

	c.providers.RegisterFlags(fs)
}

// loadConfig reads the server configuration file, if any,
// and merges in the admin credentials and identity secret given as flags
func (c *serveCfg) loadConfig() error {
	if c.configPath != "" {
		serverCfg, err := config.Read(c.configPath)
		if err != nil {
			return fmt.Errorf("unable to read server config, %w", err)
		}

		c.config = serverCfg
	}

	if c.identitySecret != "" {
		c.config.IdentitySecret = c.identitySecret
	}

	for _, pair := range strings.Split(c.adminTokens, ",") {
		if pair = strings.TrimSpace(pair); pair == "" {
			continue
		}

		id, token, ok := strings.Cut(pair, "=")
		if !ok {
			return errInvalidAdminToken
		}

		if c.config.Admins == nil {
			c.config.Admins = make(map[string]string)
		}

		c.config.Admins[strings.TrimSpace(id)] = strings.TrimSpace(token)
	}

	return nil
}
