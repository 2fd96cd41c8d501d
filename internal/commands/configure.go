package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"time"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
)

func init() {
	Register(&ConfigureCmd{})
}

// ConfigureCmd implements the configure command. With no flags it prints
// the effective settings; otherwise it writes the given ones to config.yaml.
type ConfigureCmd struct {
	baseURL       string
	store         string
	redisAddr     string
	redisPassword string
	redisPrefix   string
	timeout       time.Duration
}

// SetBaseURL sets the API base URL to save (for testing).
func (c *ConfigureCmd) SetBaseURL(u string) { c.baseURL = u }

// SetStore sets the credential store to save (for testing).
func (c *ConfigureCmd) SetStore(s string) { c.store = s }

func (c *ConfigureCmd) Name() string      { return "configure" }
func (c *ConfigureCmd) Aliases() []string { return []string{"config"} }
func (c *ConfigureCmd) Synopsis() string  { return "Show or change settings" }
func (c *ConfigureCmd) Usage() string {
	return "tasker configure [--base-url <url>] [--store file|redis|memory] [--redis-addr <host:port>] [--redis-password <pw>] [--redis-prefix <p>] [--timeout <duration>]"
}
func (c *ConfigureCmd) Access() Access { return AccessNone }

func (c *ConfigureCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.baseURL, "base-url", "", "")
	fs.StringVar(&c.store, "store", "", "")
	fs.StringVar(&c.redisAddr, "redis-addr", "", "")
	fs.StringVar(&c.redisPassword, "redis-password", "", "")
	fs.StringVar(&c.redisPrefix, "redis-prefix", "", "")
	fs.DurationVar(&c.timeout, "timeout", 0, "")
}

func (c *ConfigureCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	changed := false
	if c.baseURL != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fmt.Fprintf(errOut, "error: invalid base url: %s\n", c.baseURL)
			return exitcode.UserError
		}
		cfg.APIBaseURL = c.baseURL
		changed = true
	}
	if c.store != "" {
		if err := config.ValidateStore(c.store); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		cfg.Store = c.store
		changed = true
	}
	if c.redisAddr != "" {
		cfg.RedisAddr = c.redisAddr
		changed = true
	}
	if c.redisPassword != "" {
		cfg.RedisPassword = c.redisPassword
		changed = true
	}
	if c.redisPrefix != "" {
		cfg.RedisPrefix = c.redisPrefix
		changed = true
	}
	if c.timeout < 0 {
		fmt.Fprintf(errOut, "error: invalid timeout: %s\n", c.timeout)
		return exitcode.UserError
	}
	if c.timeout > 0 {
		cfg.Timeout = c.timeout
		changed = true
	}

	if !changed {
		fmt.Fprintf(out, "config:       %s\n", cfg.ConfigPath())
		fmt.Fprintf(out, "api_base_url: %s\n", cfg.APIBaseURL)
		fmt.Fprintf(out, "store:        %s\n", cfg.Store)
		if cfg.Store == config.StoreRedis {
			fmt.Fprintf(out, "redis_addr:   %s\n", cfg.RedisAddr)
			fmt.Fprintf(out, "redis_prefix: %s\n", cfg.RedisPrefix)
		}
		fmt.Fprintf(out, "timeout:      %s\n", cfg.Timeout)
		return exitcode.Success
	}

	if err := cfg.Save(); err != nil {
		fmt.Fprintf(errOut, "error: failed to write %s: %v\n", cfg.ConfigPath(), err)
		return exitcode.UserError
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
