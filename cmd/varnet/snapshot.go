package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/varnet/internal/snapshot"
)

func newSnapshotCmd(configPath, inputPath *string) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record scans and compare usage between them",
	}

	var (
		saveTypes       []string
		saveTag         string
		saveDescription string
	)
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Scan the document and record the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(cmd.Context(), cmd.OutOrStdout(), *configPath, *inputPath, saveTypes, saveTag, saveDescription)
		},
	}
	saveCmd.Flags().StringSliceVar(&saveTypes, "types", nil, "Variable types to scan (default from config)")
	saveCmd.Flags().StringVar(&saveTag, "tag", "", "Tag the new snapshot")
	saveCmd.Flags().StringVar(&saveDescription, "description", "", "Free-form note stored with the snapshot")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(cmd.OutOrStdout(), *configPath)
		},
	}

	var diffJSON bool
	diffCmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two snapshots by id, tag, prefix or \"latest\"",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotDiff(cmd.OutOrStdout(), *configPath, args[0], args[1], diffJSON)
		},
	}
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")

	tagCmd := &cobra.Command{
		Use:   "tag <ref> <tag>",
		Short: "Tag a snapshot, moving the tag off any earlier holder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotTag(cmd.OutOrStdout(), *configPath, args[0], args[1])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotDelete(cmd.OutOrStdout(), *configPath, args[0])
		},
	}

	snapshotCmd.AddCommand(saveCmd, listCmd, diffCmd, tagCmd, deleteCmd)
	return snapshotCmd
}

func openStore(configPath string) (*snapshot.Store, error) {
	cfg, _, err := loadConfig(configPath, "")
	if err != nil {
		return nil, err
	}
	return snapshot.NewStore(cfg.Snapshot.Dir)
}

func runSnapshotSave(ctx context.Context, w io.Writer, configPath, inputPath string, flagTypes []string, tag, description string) error {
	e, err := setup(ctx, configPath, inputPath)
	if err != nil {
		return err
	}
	report, err := e.scan(ctx, flagTypes)
	if err != nil {
		return err
	}

	store, err := snapshot.NewStore(e.cfg.Snapshot.Dir)
	if err != nil {
		return err
	}
	snap, data, err := snapshot.NewSnapshot(report, e.cfg.Document.Path)
	if err != nil {
		return err
	}
	snap.Description = description
	if err := store.Save(snap, data); err != nil {
		return err
	}
	if tag != "" {
		if err := store.Tag(snap.ID, tag); err != nil {
			return err
		}
	}

	e.logger.Info("Snapshot saved", "id", snap.ID, "parent", snap.ParentID, "variables", snap.Stats.Variables)
	fmt.Fprintln(w, snap.ID)
	return nil
}

func runSnapshotList(w io.Writer, configPath string) error {
	store, err := openStore(configPath)
	if err != nil {
		return err
	}
	list := store.List()
	if len(list) == 0 {
		fmt.Fprintln(w, "No snapshots recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTAG\tCREATED\tTYPES\tVARIABLES\tBINDINGS\tDOCUMENT")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.Tag, s.CreatedAt.Format("2006-01-02 15:04:05"), joinTypes(s.Types), s.Variables, s.Bindings, s.DocumentPath)
	}
	return tw.Flush()
}

func runSnapshotDiff(w io.Writer, configPath, oldRef, newRef string, asJSON bool) error {
	store, err := openStore(configPath)
	if err != nil {
		return err
	}
	oldSnap, err := store.Resolve(oldRef)
	if err != nil {
		return err
	}
	newSnap, err := store.Resolve(newRef)
	if err != nil {
		return err
	}

	d := snapshot.Diff(oldSnap, newSnap)
	if asJSON {
		return writeJSON(w, d)
	}
	_, err = io.WriteString(w, snapshot.FormatDiff(d))
	return err
}

func runSnapshotTag(w io.Writer, configPath, ref, tag string) error {
	store, err := openStore(configPath)
	if err != nil {
		return err
	}
	snap, err := store.Resolve(ref)
	if err != nil {
		return err
	}
	if err := store.Tag(snap.ID, tag); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s tagged %s\n", snap.ID, tag)
	return nil
}

func runSnapshotDelete(w io.Writer, configPath, ref string) error {
	store, err := openStore(configPath)
	if err != nil {
		return err
	}
	snap, err := store.Resolve(ref)
	if err != nil {
		return err
	}
	if err := store.Delete(snap.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s deleted\n", snap.ID)
	return nil
}

func joinTypes(types []string) string {
	if len(types) == 0 {
		return "-"
	}
	return strings.Join(types, ",")
}
