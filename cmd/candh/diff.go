package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rpattn/candh/internal/audit"
	"github.com/rpattn/candh/internal/auth"
	"github.com/rpattn/candh/internal/candh"
	"github.com/rpattn/candh/internal/domain"
	"github.com/rpattn/candh/internal/logging"
	"github.com/rpattn/candh/internal/model"
	"github.com/rpattn/candh/internal/repository"
)

// entityKinds maps CLI names to constructors of empty entities.
var entityKinds = map[string]func() any{
	"user":            func() any { return &model.User{} },
	"cost-assignment": func() any { return &model.CostAssignment{} },
}

func kindNames() []string {
	names := make([]string, 0, len(entityKinds))
	for name := range entityKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type diffOptions struct {
	*rootOptions
	entity  string
	actor   string
	unified bool
}

func newDiffCmd(root *rootOptions) *cobra.Command {
	opts := &diffOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "diff OLD.yaml NEW.yaml",
		Short: "Dry-run the update of an entity and print the recorded changes",
		Long: `diff loads the stored state from OLD.yaml and the incoming state from
NEW.yaml, runs change detection exactly as an update would, and prints the
history attributes that would be recorded together with the change status.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), cmd.OutOrStdout(), opts, args[0], args[1])
		},
	}
	cmd.Flags().StringVarP(&opts.entity, "entity", "e", "user", "entity kind: "+strings.Join(kindNames(), ", "))
	cmd.Flags().StringVar(&opts.actor, "actor", "cli", "user recorded as the author of the change")
	cmd.Flags().BoolVarP(&opts.unified, "unified", "u", false, "also print the change as a unified diff")
	return cmd
}

func runDiff(ctx context.Context, out io.Writer, opts *diffOptions, oldPath, newPath string) error {
	newEntity, ok := entityKinds[opts.entity]
	if !ok {
		return fmt.Errorf("unknown entity kind %q, want one of %s", opts.entity, strings.Join(kindNames(), ", "))
	}

	logger, err := logging.New(opts.logLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stored := newEntity()
	if err := readEntity(oldPath, stored); err != nil {
		return err
	}
	incoming := newEntity()
	if err := readEntity(newPath, incoming); err != nil {
		return err
	}

	reg, err := model.NewRegistry(logger)
	if err != nil {
		return err
	}
	engine := candh.NewEngine(reg, candh.WithLogger(logger))
	svc := audit.NewService(engine, repository.NewMemoryHistoryRepository(),
		audit.WithLogger(logger),
		audit.WithSuppressNoopUpdates(false),
	)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx = auth.ContextWithActor(ctx, opts.actor)
	status, master, err := svc.RecordUpdate(ctx, incoming, stored, entityID(stored))
	if err != nil {
		return err
	}

	logger.Debug("diff complete", zap.String("status", status.String()), zap.Int("attributes", len(master.Attributes)))
	return printMaster(out, status, master, opts.unified)
}

func entityID(entity any) string {
	if id, ok := entity.(candh.Identifiable); ok {
		if key, persisted := id.IdentityKey(); persisted {
			return key
		}
	}
	return "transient"
}

func readEntity(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func printMaster(out io.Writer, status candh.EntityCopyStatus, master *domain.HistoryMaster, unified bool) error {
	fmt.Fprintf(out, "%s %s/%s by %s: %s, %d change(s)\n",
		master.Operation, master.EntityType, master.EntityID, master.ModifiedBy, status, len(master.Attributes))
	if len(master.Attributes) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(master.Attributes))
	for _, attr := range master.Attributes {
		rows = append(rows, []string{
			attr.PropertyName,
			attr.PropertyType,
			string(attr.Operation),
			display(attr.OldValue),
			display(attr.NewValue),
		})
	}

	table := tablewriter.NewWriter(out)
	table.Header("Property", "Type", "Operation", "Old", "New")
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to render changes: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render changes: %w", err)
	}

	if unified {
		fmt.Fprintln(out)
		fmt.Fprint(out, master.UnifiedDiff())
	}
	return nil
}

func display(value *string) string {
	if value == nil {
		return "<null>"
	}
	return *value
}
