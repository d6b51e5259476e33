package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/talentloop/talentsync/internal/config"
	"github.com/talentloop/talentsync/internal/connectors"
	"github.com/talentloop/talentsync/internal/connectors/hrflow"
	"github.com/talentloop/talentsync/internal/connectors/warehouse"
	"github.com/talentloop/talentsync/internal/migration"
	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/runner"
	"github.com/talentloop/talentsync/internal/sync/engine"
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/formatter"
	"github.com/talentloop/talentsync/internal/utils"
)

type runFlags struct {
	resource    string
	originID    string
	targetID    string
	where       string
	having      string
	cursorStart string
	cursorMode  string
	sortBy      string
	formatterID string
	batchSize   int
	pushMode    string
	eventsFile  string
	recordsFile string
	dryRun      bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.resource, "resource", "job", "resource to sync (job or profile)")
	cmd.Flags().StringVar(&f.originID, "origin", "", "origin endpoint ID")
	cmd.Flags().StringVar(&f.targetID, "target", "", "target endpoint ID")
	cmd.Flags().StringVar(&f.where, "where", "", "prefilter conditions as a JSON array")
	cmd.Flags().StringVar(&f.having, "having", "", "postfilter conditions as a JSON array")
	cmd.Flags().StringVar(&f.formatterID, "formatter", "", "stored formatter spec ID")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "records per batch (0 uses the engine default)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "count and report without writing")
	cmd.MarkFlagRequired("origin")
	cmd.MarkFlagRequired("target")
}

func newPullCmd(logger zerolog.Logger) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull records from the origin into the target incrementally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd.Context(), logger, models.SyncRunKindPull, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.cursorStart, "cursor-start", "", "override the stored cursor start watermark")
	cmd.Flags().StringVar(&flags.cursorMode, "cursor-mode", "", "cursor mode (updated_at, created_at, id)")
	cmd.Flags().StringVar(&flags.sortBy, "sort", "", "sort order (asc or desc)")
	return cmd
}

func newPushCmd(logger zerolog.Logger) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push records or change events from the origin to the target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd.Context(), logger, models.SyncRunKindPush, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.pushMode, "mode", string(engine.PushModeResources), "push mode (resources or events)")
	cmd.Flags().StringVar(&flags.eventsFile, "events-file", "", "file holding raw event payloads, one JSON document per line")
	cmd.Flags().StringVar(&flags.recordsFile, "records-file", "", "file holding a JSON array of native origin records")
	return cmd
}

func newMigrateCmd(logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			migration.RunMigrations(cfg.DatabaseURL, logger)
			return nil
		},
	}
}

func executeRun(ctx context.Context, logger zerolog.Logger, kind models.SyncRunKind, flags *runFlags) error {
	cfg := config.Load()
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return errors.Wrap(err, "ping database")
	}

	run, err := buildRun(kind, flags)
	if err != nil {
		return err
	}

	registry := connectors.NewRegistry()
	registry.Register(models.ConnectorKindHrflow, func(ep *models.ConnectorEndpoint) (engine.Connector, error) {
		return hrflow.New(ep.Name, ep.BaseURL, ep.Secret)
	})
	registry.Register(models.ConnectorKindWarehouse, func(ep *models.ConnectorEndpoint) (engine.Connector, error) {
		conn, err := warehouse.Open(ep.Name, ep.DSN)
		if err != nil {
			return nil, err
		}
		if err := conn.EnsureSchema(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	})

	formatters := formatter.NewRegistry()
	specs, err := repository.NewFormatterRepository(db).List()
	if err != nil {
		return errors.Wrap(err, "load formatter specs")
	}
	for _, spec := range specs {
		if err := formatters.Put(spec); err != nil {
			logger.Warn().Err(err).Str("formatter_id", spec.ID).Msg("skipping invalid stored formatter")
		}
	}

	secrets, err := utils.NewSecretBox(cfg.EncryptionKey)
	if err != nil {
		return errors.Wrap(err, "endpoint encryption key")
	}
	endpointRepo := repository.NewEndpointRepository(db, secrets)
	if run.Kind == models.SyncRunKindPush {
		switch run.PushMode {
		case string(engine.PushModeEvents):
			if run.Events, err = parseEvents(ctx, flags, run, endpointRepo, registry); err != nil {
				return err
			}
		case string(engine.PushModeResources):
			if run.Records, err = readRecordsFile(flags.recordsFile); err != nil {
				return err
			}
		}
	}

	runRepo := repository.NewRunRepository(db)
	run, err = runRepo.Create(run)
	if err != nil {
		return errors.Wrap(err, "record run")
	}

	executor := runner.New(
		endpointRepo,
		repository.NewCursorRepository(db),
		runRepo,
		registry,
		formatters,
		nil,
		logger,
	)

	execErr := executor.Execute(ctx, run)

	report, err := json.MarshalIndent(run, "", "  ")
	if err == nil {
		fmt.Fprintln(os.Stdout, string(report))
	}
	return execErr
}

func buildRun(kind models.SyncRunKind, flags *runFlags) (*models.SyncRun, error) {
	run := &models.SyncRun{
		Kind:        kind,
		Resource:    flags.resource,
		OriginID:    flags.originID,
		TargetID:    flags.targetID,
		CursorStart: flags.cursorStart,
		CursorMode:  flags.cursorMode,
		SortBy:      flags.sortBy,
		BatchSize:   flags.batchSize,
		PushMode:    flags.pushMode,
		DryRun:      flags.dryRun,
	}
	if flags.formatterID != "" {
		run.FormatterID = &flags.formatterID
	}
	if flags.where != "" {
		if !json.Valid([]byte(flags.where)) {
			return nil, fmt.Errorf("--where is not valid JSON")
		}
		run.Where = json.RawMessage(flags.where)
	}
	if flags.having != "" {
		if !json.Valid([]byte(flags.having)) {
			return nil, fmt.Errorf("--having is not valid JSON")
		}
		run.Having = json.RawMessage(flags.having)
	}
	return run, nil
}

// parseEvents reads raw payloads from the events file and runs each
// through the origin connector's parser. Payloads the connector does not
// claim are dropped.
func parseEvents(ctx context.Context, flags *runFlags, run *models.SyncRun, endpoints repository.EndpointRepository, registry *connectors.Registry) (json.RawMessage, error) {
	if flags.eventsFile == "" {
		return nil, fmt.Errorf("--events-file is required in events mode")
	}
	resource, err := filter.ParseResource(run.Resource)
	if err != nil {
		return nil, err
	}
	payloads, err := readEventsFile(flags.eventsFile)
	if err != nil {
		return nil, err
	}

	ep, err := endpoints.GetWithSecrets(run.OriginID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch origin endpoint")
	}
	origin, err := registry.Build(ep)
	if err != nil {
		return nil, errors.Wrap(err, "build origin connector")
	}
	if closer, ok := origin.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var events []engine.Event
	for i, payload := range payloads {
		ev, err := origin.ParseEvent(resource, payload)
		if err != nil {
			return nil, errors.Wrapf(err, "parse event payload %d", i)
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no payload in %s parsed to a %s event", flags.eventsFile, run.Resource)
	}
	return json.Marshal(events)
}

// readRecordsFile loads the resources-mode seed, a JSON array of native
// origin records.
func readRecordsFile(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, fmt.Errorf("--records-file is required in resources mode")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open records file")
	}
	var records []filter.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrapf(err, "decode records file %s", path)
	}
	return json.Marshal(records)
}

// readEventsFile returns the non-empty lines of the file, one raw payload
// per line.
func readEventsFile(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open events file")
	}
	defer file.Close()

	var payloads [][]byte
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payloads = append(payloads, []byte(line))
	}
	return payloads, scanner.Err()
}
