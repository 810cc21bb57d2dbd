package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ovis-hpc/ldms-registry/internal/registryclient"
	"github.com/ovis-hpc/ldms-registry/internal/schema"
)

func newClient() *registryclient.Client {
	var opts []registryclient.Option
	if username != "" {
		opts = append(opts, registryclient.WithBasicAuth(username, password))
	}
	return registryclient.New(serverURLs, opts...)
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage schemas registered with the schema registry",
	}

	addCmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Register a schema document read from file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  schemaAdd,
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch the schema stored under id",
		Args:  cobra.ExactArgs(1),
		RunE:  schemaGet,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the schema stored under id",
		Args:  cobra.ExactArgs(1),
		RunE:  schemaDelete,
	}

	namesCmd := &cobra.Command{
		Use:   "names",
		Short: "List every registered schema name",
		RunE:  schemaNames,
	}

	versionsCmd := &cobra.Command{
		Use:   "versions <name>",
		Short: "List every id registered under name",
		Args:  cobra.ExactArgs(1),
		RunE:  schemaVersions,
	}

	digestsCmd := &cobra.Command{
		Use:   "digests",
		Short: "List every distinct content digest",
		RunE:  schemaDigests,
	}

	digestVersionsCmd := &cobra.Command{
		Use:   "digest-versions <hex>",
		Short: "List every id sharing a content digest",
		Args:  cobra.ExactArgs(1),
		RunE:  schemaDigestVersions,
	}

	cmd.AddCommand(addCmd, getCmd, deleteCmd, namesCmd, versionsCmd, digestsCmd, digestVersionsCmd, newPurgeCmd())
	return cmd
}

func readDoc(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func schemaAdd(cmd *cobra.Command, args []string) error {
	data, err := readDoc(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	doc, err := schema.Parse(data)
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	id, err := newClient().AddSchema(context.Background(), doc)
	if err != nil {
		return err
	}
	return printResult(map[string]string{"id": id}, func() {
		fmt.Println(id)
	})
}

func schemaGet(cmd *cobra.Command, args []string) error {
	doc, err := newClient().GetSchema(context.Background(), args[0])
	if err != nil {
		return err
	}
	data, err := doc.AsJSON()
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	fmt.Println()
	return nil
}

func schemaDelete(cmd *cobra.Command, args []string) error {
	if err := newClient().DeleteSchema(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Println("deleted", args[0])
	return nil
}

func schemaNames(cmd *cobra.Command, args []string) error {
	names, err := newClient().ListNames(context.Background())
	if err != nil {
		return err
	}
	return printResult(names, func() { printList(names) })
}

func schemaVersions(cmd *cobra.Command, args []string) error {
	versions, err := newClient().ListVersionsByName(context.Background(), args[0])
	if err != nil {
		return err
	}
	return printResult(versions, func() { printList(versions) })
}

func schemaDigests(cmd *cobra.Command, args []string) error {
	digests, err := newClient().ListDigests(context.Background())
	if err != nil {
		return err
	}
	return printResult(digests, func() { printList(digests) })
}

func schemaDigestVersions(cmd *cobra.Command, args []string) error {
	versions, err := newClient().ListVersionsByDigest(context.Background(), args[0])
	if err != nil {
		return err
	}
	return printResult(versions, func() { printList(versions) })
}

func printList(items []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, item := range items {
		fmt.Fprintln(w, item)
	}
	w.Flush()
}
