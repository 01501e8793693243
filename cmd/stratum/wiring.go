package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zulandar/stratum/internal/catalog"
	"github.com/zulandar/stratum/internal/config"
	"github.com/zulandar/stratum/internal/db"
	"github.com/zulandar/stratum/internal/kv"
	"github.com/zulandar/stratum/internal/logger"
	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/notify"
	"github.com/zulandar/stratum/internal/remote"
	"github.com/zulandar/stratum/internal/session"
	"github.com/zulandar/stratum/internal/units"
	"gorm.io/gorm"
)

const defaultConfigPath = "stratum.yaml"

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfigPath, "path to stratum config file")
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Driver, err)
	}

	return cfg, gormDB, nil
}

// newNotifier always reports to the console and adds every chat sink the
// config enables.
func newNotifier(cfg *config.Config, stderr io.Writer) (notify.Notifier, error) {
	sinks := notify.Multi{notify.NewConsole(stderr)}
	if cfg.Notify.Slack.Enabled() {
		s, err := notify.NewSlack(notify.SlackOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Notify.Discord.Enabled() {
		d, err := notify.NewDiscord(notify.DiscordOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, d)
	}
	return sinks, nil
}

// clientEnv is everything an editing command needs: the config, the local
// store, the remote client, the catalog cache and a loaded session.
type clientEnv struct {
	cfg     *config.Config
	log     *logger.Logger
	store   kv.Store
	remote  *remote.Client
	cache   *catalog.Cache
	session *session.Coordinator
	display units.Display
}

// openClient wires a clientEnv from the config file. With load set the
// session fetches the project's assemblies before returning.
func openClient(cmd *cobra.Command, configPath string, load bool) (*clientEnv, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	env := &clientEnv{cfg: cfg, log: log}

	env.store, err = kv.Open(ctx, kv.Options{
		Backend:   cfg.Cache.Backend,
		Path:      cfg.Cache.Path,
		RedisAddr: cfg.Cache.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
	}

	env.remote, err = remote.New(remote.ClientOpts{BaseURL: cfg.Remote.BaseURL, Timeout: cfg.Remote.Timeout})
	if err != nil {
		env.Close()
		return nil, err
	}

	env.cache, err = catalog.New(catalog.Options{
		Store:   env.store,
		Fetcher: env.remote,
		TTL:     cfg.Cache.TTL,
		Logger:  log,
		Keys:    cfg.Cache.Catalogs,
	})
	if err != nil {
		env.Close()
		return nil, err
	}

	env.display, err = units.NewPreferences(env.store).Display(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg, cmd.ErrOrStderr())
	if err != nil {
		env.Close()
		return nil, err
	}
	env.session, err = session.New(session.Options{
		ProjectID: cfg.Project,
		Remote:    env.remote,
		Notifier:  notifier,
		Logger:    log,
		Timeout:   cfg.Remote.Timeout,
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	if load {
		if err := env.session.Load(ctx); err != nil {
			env.Close()
			return nil, fmt.Errorf("load project %s: %w", cfg.Project, err)
		}
	}
	return env, nil
}

// materials resolves material ids for display. A catalog that cannot be
// loaded leaves names unresolved rather than failing the command.
func (e *clientEnv) materials(ctx context.Context) map[string]string {
	idx, err := e.cache.MaterialIndex(ctx)
	if err != nil {
		e.log.Warn("materials catalog unavailable", "error", err)
		return nil
	}
	names := make(map[string]string, len(idx))
	for id, m := range idx {
		names[id] = m.Name
	}
	return names
}

// assembly looks an assembly up in the loaded session.
func (e *clientEnv) assembly(id string) (models.Assembly, error) {
	a, ok := e.session.Assembly(id)
	if !ok {
		return models.Assembly{}, fmt.Errorf("assembly %s not found in project %s", id, e.cfg.Project)
	}
	return a, nil
}

func (e *clientEnv) layer(id string) (models.Layer, error) {
	for _, a := range e.session.Assemblies() {
		for _, l := range a.Layers {
			if l.ID == id {
				return l, nil
			}
		}
	}
	return models.Layer{}, fmt.Errorf("layer %s not found in project %s", id, e.cfg.Project)
}

func (e *clientEnv) segment(id string) (models.Segment, error) {
	for _, a := range e.session.Assemblies() {
		for _, l := range a.Layers {
			for _, s := range l.Segments {
				if s.ID == id {
					return s, nil
				}
			}
		}
	}
	return models.Segment{}, fmt.Errorf("segment %s not found in project %s", id, e.cfg.Project)
}

func (e *clientEnv) Close() {
	if e.session != nil {
		e.session.Close()
	}
	if e.store != nil {
		e.store.Close()
	}
	e.log.Sync()
}
