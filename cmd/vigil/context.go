package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"vigil/internal/config"
	"vigil/internal/ipc"
)

type commandContext struct {
	socketFlag *string
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) socketPath() string {
	if c.socketFlag == nil {
		return defaultSocketPath()
	}
	if strings.TrimSpace(*c.socketFlag) == "" {
		*c.socketFlag = defaultSocketPath()
	}
	return *c.socketFlag
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

// withQueue prefers the daemon's IPC surface and falls back to direct store
// access when the daemon is not running, so queue inspection works offline.
func (c *commandContext) withQueue(fn func(queueAPI) error) error {
	client, err := c.dialClient()
	if err == nil {
		defer client.Close()
		return fn(&queueIPCAdapter{client: client})
	}

	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return cfgErr
	}
	store, openErr := openQueueStore(cfg)
	if openErr != nil {
		return fmt.Errorf("daemon unreachable and queue store unavailable: %w", openErr)
	}
	defer store.Close()
	return fn(&queueStoreAdapter{store: store})
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `vigil daemon start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func defaultSocketPath() string {
	cfg, _, _, err := config.Load("")
	if err == nil {
		return filepath.Join(cfg.Paths.LogDir, "vigild.sock")
	}

	logDir, err2 := config.ExpandPath("~/.local/share/vigil/logs")
	if err2 != nil {
		return filepath.Join(os.TempDir(), "vigild.sock")
	}
	return filepath.Join(logDir, "vigild.sock")
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
