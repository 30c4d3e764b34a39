package agent

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger"
	"github.com/nplastio/zmkipc/internal/configsvc"
	"github.com/nplastio/zmkipc/internal/hostsim"
	"github.com/nplastio/zmkipc/internal/ipcobserver"
	"github.com/nplastio/zmkipc/internal/kscanipc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// Agent wires the bridge's ingress server, egress broadcaster, and
// simulated firmware host together and supervises them for the
// lifetime of a process.
type Agent struct {
	config Config
	log    *zap.Logger

	db        *badger.DB
	configSvc *configsvc.Service
	ingress   *kscanipc.Server
	egress    *ipcobserver.Broadcaster
	host      *hostsim.Host
	history   *hostsim.History
}

// NewAgent constructs every component but starts none of them; call Run
// to bring the bridge up.
func NewAgent(config Config) (*Agent, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbOptions := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: logger.Named("badger")}

	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	configSvc := configsvc.New(logger.Named("config"))
	ingress := kscanipc.New(logger.Named("kscanipc"), config.KscanSocket)
	egress := ipcobserver.New(logger.Named("ipcobserver"), config.ObserverSocket, ipcobserver.WithMaxClients(config.MaxObservers))
	history := hostsim.NewHistory(db, logger.Named("history"), config.HistoryLimit)
	host := hostsim.New(logger.Named("hostsim"), ingress, egress, configSvc, config.KeymapConfig, history)

	return &Agent{
		config:    config,
		log:       logger,
		db:        db,
		configSvc: configSvc,
		ingress:   ingress,
		egress:    egress,
		host:      host,
		history:   history,
	}, nil
}

func (a *Agent) Close() error {
	return a.db.Close()
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}

// Run starts the config watcher, both IPC endpoints, and the simulated
// host, then blocks until ctx is cancelled or one of them fails.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.configSvc.Start(groupCtx)
	})
	<-a.configSvc.Ready()

	if err := a.ingress.Start(); err != nil {
		return fmt.Errorf("agent: start ingress: %w", err)
	}
	defer a.ingress.Close()

	if err := a.egress.Start(); err != nil {
		return fmt.Errorf("agent: start egress: %w", err)
	}
	defer a.egress.Close()

	if err := a.host.Start(groupCtx); err != nil {
		return fmt.Errorf("agent: start hostsim: %w", err)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("agent failed: %w", err)
	}
	return nil
}

// Host exposes the simulated firmware host. The CLI's inject-key command
// does not use it: that command is a plain socket client.
func (a *Agent) Host() *hostsim.Host {
	return a.host
}

// RecentHistory returns up to n of the most recently recorded
// ingress/egress events, for the CLI's history command.
func (a *Agent) RecentHistory(n int) ([]hostsim.Event, error) {
	return a.history.Recent(n)
}
