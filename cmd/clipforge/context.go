package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/queue"
)

const clientTimeout = 30 * time.Second

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// baseURL prefers --api and otherwise derives the URL from paths.api_bind.
func (c *commandContext) baseURL() string {
	if c.apiFlag != nil {
		if flag := strings.TrimSpace(*c.apiFlag); flag != "" {
			return api.BaseURL(flag)
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return api.BaseURL(cfg.Paths.APIBind)
	}
	return api.BaseURL(config.Default().Paths.APIBind)
}

func (c *commandContext) client() *api.Client {
	return api.NewClient(c.baseURL(), clientTimeout)
}

// reachable reports whether the daemon answered; a degraded health reply
// still counts.
func reachable(ctx context.Context, client *api.Client) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := client.Health(probeCtx)
	var apiErr *api.APIError
	return err == nil || errors.As(err, &apiErr)
}

// withDaemon runs fn against the daemon API, failing when it is unreachable.
func (c *commandContext) withDaemon(cmd *cobra.Command, fn func(*api.Client) error) error {
	client := c.client()
	if !reachable(cmd.Context(), client) {
		return fmt.Errorf("connect to daemon: no answer at %s; start it with `clipforge daemon start`", c.baseURL())
	}
	return fn(client)
}

// withQueue prefers the daemon API and falls back to opening the queue
// database directly. Exactly one of client and store is non-nil.
func (c *commandContext) withQueue(cmd *cobra.Command, fn func(client *api.Client, store *queue.Store) error) error {
	client := c.client()
	if reachable(cmd.Context(), client) {
		return fn(client, nil)
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue database: %w", err)
	}
	defer store.Close()
	return fn(nil, store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
