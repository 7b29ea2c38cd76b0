package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	backupinadapter "crux/internal/modules/backup/adapter/in"
	backupoutadapter "crux/internal/modules/backup/adapter/out"
	backupservice "crux/internal/modules/backup/service"
	backupusecase "crux/internal/modules/backup/usecase"
	plugininadapter "crux/internal/modules/plugin/adapter/in"
	pluginoutadapter "crux/internal/modules/plugin/adapter/out"
	pluginservice "crux/internal/modules/plugin/service"
	pluginusecase "crux/internal/modules/plugin/usecase"
	routesinadapter "crux/internal/modules/routes/adapter/in"
	routesoutadapter "crux/internal/modules/routes/adapter/out"
	routesservice "crux/internal/modules/routes/service"
	routesusecase "crux/internal/modules/routes/usecase"
	sessioninadapter "crux/internal/modules/session/adapter/in"
	sessionoutadapter "crux/internal/modules/session/adapter/out"
	sessionout "crux/internal/modules/session/port/out"
	sessionservice "crux/internal/modules/session/service"
	sessionusecase "crux/internal/modules/session/usecase"
	"crux/internal/platform/activity"
	"crux/internal/platform/clock"
	"crux/internal/platform/config"
	"crux/internal/platform/id"
	uiapp "crux/internal/ui/app"
)

type App struct {
	SessionCLI sessioninadapter.CLIHandler
	RouteCLI   routesinadapter.CLIHandler
	BackupCLI  backupinadapter.CLIHandler
	PluginCLI  plugininadapter.CLIHandler
	Recorder   activity.Recorder
	Config     config.Config
}

func New(cfg config.Config) (*App, error) {
	clk := clock.SystemClock{}
	ids := id.TimeOrdered{}
	recorder := activity.NewFileRecorder(cfg.HomePath)

	sessionStore, err := sessionoutadapter.NewSQLiteSessionStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	// The legacy flat files convert on startup. Failures land in the activity
	// log; the command that triggered the startup still runs.
	_ = sessionoutadapter.NewLegacyMigrator(sessionStore, cfg.HomePath, ids, recorder).Run(context.Background())

	routeStore, err := routesoutadapter.NewSQLiteRouteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open route store: %w", err)
	}
	routesUC := routesusecase.NewInteractor(
		routesservice.NewRouteService(clk, ids, routeStore, routesoutadapter.NewStdAttachmentProbe()),
		routesoutadapter.NewOSExternalViewer(),
		recorder,
	)

	var journal sessionout.JournalStore
	if cfg.Journal {
		journal = sessionoutadapter.NewMarkdownJournal(filepath.Join(cfg.HomePath, "journal"))
	}
	sessionUC := sessionusecase.NewInteractor(
		sessionservice.NewSessionService(clk, ids, sessionStore, sessionStore),
		routesUC,
		journal,
		recorder,
	)

	backupUC := backupusecase.NewInteractor(
		backupservice.NewBackupService(
			cfg.HomePath,
			clk,
			backupoutadapter.NewFileSnapshotVault(cfg.HomePath),
			backupoutadapter.NewFileDaemonStore(cfg.HomePath),
			backupoutadapter.NewJSONRPCServer(),
			backupoutadapter.NewJSONRPCClient(),
		),
		sessionUC,
		recorder,
	)

	pluginUC := pluginusecase.NewInteractor(pluginservice.NewPluginService(
		pluginoutadapter.NewFileManifestStore(cfg.HomePath),
		pluginoutadapter.NewGRPCHost(),
	))

	return &App{
		SessionCLI: sessioninadapter.NewCLIHandler(sessionUC),
		RouteCLI:   routesinadapter.NewCLIHandler(routesUC),
		BackupCLI:  backupinadapter.NewCLIHandler(backupUC),
		PluginCLI:  plugininadapter.NewCLIHandler(pluginUC),
		Recorder:   recorder,
		Config:     cfg,
	}, nil
}

func RunTUI(app *App) error {
	model := uiapp.NewModel(app.Config, app.SessionCLI, app.RouteCLI, app.BackupCLI, app.PluginCLI, app.Recorder)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
