package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/rflorenc/deploy-ledger/internal/client"
	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/ledger"
	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:8080"

type remoteFlags struct {
	server   string
	insecure bool
}

func (f *remoteFlags) bind(cmd *cobra.Command) {
	def := os.Getenv("DEPLOYCTL_SERVER")
	if def == "" {
		def = defaultServerURL
	}
	cmd.PersistentFlags().StringVar(&f.server, "server", def, "Base URL of the deployctl server")
	cmd.PersistentFlags().BoolVar(&f.insecure, "insecure", false, "Skip TLS certificate verification")
}

func (f *remoteFlags) client() *client.Client {
	return client.New(f.server, client.Options{Insecure: f.insecure})
}

func newPushCmd() *cobra.Command {
	var flags remoteFlags
	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Upload a log summary or DBMS map to a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			root, err := contract.Parse(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			c := flags.client()
			switch root.Tag {
			case ledger.LogSummaryTag:
				s, err := ledger.DecodeLogSummary(root)
				if err != nil {
					return err
				}
				stored, err := c.PushLog(cmd.Context(), s)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored install log %d\n", stored.ID())
			case dbms.MapTag:
				m, err := dbms.DecodeMap(root)
				if err != nil {
					return err
				}
				if _, err := c.PutDbmsMap(cmd.Context(), m); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replaced dbms map for %s (%d mappings)\n", m.SourceServer(), m.Len())
			default:
				return fmt.Errorf("cannot push document type %q", root.Tag)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newLogsCmd() *cobra.Command {
	var (
		flags remoteFlags
		pkg   string
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List install logs stored on a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := flags.client().ListLogs(cmd.Context(), pkg)
			if err != nil {
				return err
			}
			s := section{
				Title:  "Install logs",
				Header: []string{"Id", "Package", "Object type", "Status", "Archive", "Archive exists", "Transactions"},
			}
			for _, r := range rows {
				s.Rows = append(s.Rows, []string{
					strconv.Itoa(r.ID), r.Package, r.ObjectType, r.Status, r.ArchiveRef,
					yesNo(r.ArchiveExists), strconv.Itoa(r.Transactions),
				})
			}
			ascii := plain || !isatty.IsTerminal(os.Stdout.Fd())
			return renderSections(cmd.OutOrStdout(), []section{s}, ascii)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&pkg, "package", "", "Only list logs for this package name")
	cmd.Flags().BoolVar(&plain, "plain", false, "Use plain ASCII table borders")
	return cmd
}
