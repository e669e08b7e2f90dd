package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/candh/internal/audit"
	"github.com/rpattn/candh/internal/auth"
	"github.com/rpattn/candh/internal/candh"
	"github.com/rpattn/candh/internal/config"
	"github.com/rpattn/candh/internal/db"
	"github.com/rpattn/candh/internal/domain"
	"github.com/rpattn/candh/internal/logging"
	"github.com/rpattn/candh/internal/model"
	"github.com/rpattn/candh/internal/repository"
)

// openHistoryStore connects the history store named by the configuration.
// The returned func releases it.
var openHistoryStore = openPostgresStore

func openPostgresStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.HistoryRepository, func(), error) {
	conn, err := db.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(conn.Pool, logger); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return repository.NewPostgresHistoryRepository(conn.Pool, logger), conn.Close, nil
}

type recordOptions struct {
	*rootOptions
	configPath string
	entity     string
	operation  string
	actor      string
	snapshot   bool
}

func newRecordCmd(root *rootOptions) *cobra.Command {
	opts := &recordOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "record FILE [FILE]",
		Short: "Record the history of an entity mutation in the configured store",
		Long: `record runs change detection for one mutation and stores the resulting
history record.

  insert NEW.yaml
  update OLD.yaml NEW.yaml
  delete OLD.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", ".", "directory containing config.yaml")
	cmd.Flags().StringVarP(&opts.entity, "entity", "e", "user", "entity kind: "+strings.Join(kindNames(), ", "))
	cmd.Flags().StringVarP(&opts.operation, "op", "o", "update", "mutation: insert, update or delete")
	cmd.Flags().StringVar(&opts.actor, "actor", "cli", "user recorded as the author of the change")
	cmd.Flags().BoolVar(&opts.snapshot, "snapshot", false, "store every property for inserts and deletes")
	return cmd
}

func runRecord(ctx context.Context, out io.Writer, opts *recordOptions, args []string) error {
	op := domain.EntityOpType(strings.ToUpper(strings.TrimSpace(opts.operation)))
	if !op.Valid() {
		return fmt.Errorf("unknown operation %q, want insert, update or delete", opts.operation)
	}
	want := 1
	if op == domain.EntityOpUpdate {
		want = 2
	}
	if len(args) != want {
		return fmt.Errorf("%s takes %d file(s), got %d", strings.ToLower(string(op)), want, len(args))
	}

	newEntity, ok := entityKinds[opts.entity]
	if !ok {
		return fmt.Errorf("unknown entity kind %q, want one of %s", opts.entity, strings.Join(kindNames(), ", "))
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(opts.logLevel, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	entities := make([]any, len(args))
	for i, path := range args {
		entities[i] = newEntity()
		if err := readEntity(path, entities[i]); err != nil {
			return err
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	repo, release, err := openHistoryStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer release()

	reg, err := model.NewRegistry(logger)
	if err != nil {
		return err
	}
	engine := candh.NewEngine(reg, candh.WithLogger(logger))
	svc := audit.NewService(engine, repo,
		audit.WithLogger(logger),
		audit.WithDebugEntries(cfg.Engine.Debug),
		audit.WithSuppressNoopUpdates(cfg.Engine.SuppressNoopUpdates),
		audit.WithSnapshots(opts.snapshot),
	)

	ctx = auth.ContextWithActor(ctx, opts.actor)
	status := candh.StatusMajor
	var master *domain.HistoryMaster
	switch op {
	case domain.EntityOpInsert:
		master, err = svc.RecordInsert(ctx, entities[0], entityID(entities[0]))
	case domain.EntityOpUpdate:
		status, master, err = svc.RecordUpdate(ctx, entities[1], entities[0], entityID(entities[0]))
	case domain.EntityOpDelete:
		master, err = svc.RecordDelete(ctx, entities[0], entityID(entities[0]))
	}
	if err != nil {
		return err
	}

	if master == nil {
		fmt.Fprintf(out, "no changes to %s %s, nothing recorded\n", opts.entity, entityID(entities[0]))
		return nil
	}
	return printMaster(out, status, master, false)
}
