package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rflorenc/deploy-ledger/internal/archive"
	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/dependency"
	"github.com/rflorenc/deploy-ledger/internal/idmap"
	"github.com/rflorenc/deploy-ledger/internal/ledger"
	"github.com/rflorenc/deploy-ledger/internal/models"
	"github.com/rflorenc/deploy-ledger/internal/session"
	"github.com/rflorenc/deploy-ledger/internal/validation"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var plain, asXML bool
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a ledger document and print its contents",
		Long: `inspect decodes any ledger document (log summary, log detail, DBMS map,
archive summary, validation results, transaction log, id map, dependency
tree, dependency data, import package or server connection) and prints it
as tables. Decoding is strict, so inspect also serves as a validity check.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if asXML {
				return printIndented(cmd.OutOrStdout(), data)
			}
			sections, err := inspect(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			ascii := plain || !isatty.IsTerminal(os.Stdout.Fd())
			return renderSections(cmd.OutOrStdout(), sections, ascii)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Use plain ASCII table borders")
	cmd.Flags().BoolVar(&asXML, "xml", false, "Print the decoded document as indented XML instead of tables")
	return cmd
}

// section is one titled table of output.
type section struct {
	Title  string
	Header []string
	Rows   [][]string
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// inspect decodes data by its root tag and lays it out as tables.
func inspect(data []byte) ([]section, error) {
	root, err := contract.Parse(data)
	if err != nil {
		return nil, err
	}
	switch root.Tag {
	case ledger.LogSummaryTag:
		s, err := ledger.DecodeLogSummary(root)
		if err != nil {
			return nil, err
		}
		return logSummarySections(s), nil
	case ledger.LogDetailTag:
		d, err := ledger.DecodeLogDetail(root)
		if err != nil {
			return nil, err
		}
		return logDetailSections(d), nil
	case ledger.TransactionLogTag:
		l, err := ledger.DecodeTransactionLog(root)
		if err != nil {
			return nil, err
		}
		return []section{transactionSection(l)}, nil
	case dbms.MapTag:
		m, err := dbms.DecodeMap(root)
		if err != nil {
			return nil, err
		}
		return []section{dbmsSection(m)}, nil
	case archive.SummaryTag:
		s, err := archive.DecodeSummary(root)
		if err != nil {
			return nil, err
		}
		return archiveSections(s), nil
	case validation.ResultsTag:
		rs, err := validation.DecodeResults(root)
		if err != nil {
			return nil, err
		}
		return []section{validationSection(rs)}, nil
	case idmap.MapTag:
		m, err := idmap.DecodeMap(root)
		if err != nil {
			return nil, err
		}
		return []section{idMapSection(m)}, nil
	case dependency.TreeTag:
		t, err := dependency.DecodeTree(root)
		if err != nil {
			return nil, err
		}
		return []section{treeSection(t)}, nil
	case dependency.DataTag:
		d, err := dependency.DecodeData(root)
		if err != nil {
			return nil, err
		}
		return []section{dataSection(d)}, nil
	case session.ImportPackageTag:
		p, err := session.DecodeImportPackage(root)
		if err != nil {
			return nil, err
		}
		out := []section{elementSection(p.Element())}
		if rs := p.Results(); rs != nil {
			out = append(out, validationSection(rs))
		}
		return out, nil
	case models.ServerConnectionTag:
		c, err := models.DecodeServerConnectionInfo(root)
		if err != nil {
			return nil, err
		}
		return []section{{
			Title:  "Server connection",
			Header: []string{"Server", "Port", "User", "Password", "Encrypted"},
			Rows:   [][]string{{c.Server(), strconv.Itoa(c.Port()), c.UserID(), c.MaskedPassword(), yesNo(c.IsPwdEncrypted())}},
		}}, nil
	case models.TracePolicyTag:
		p, err := models.DecodeTracePolicySetting(root)
		if err != nil {
			return nil, err
		}
		return []section{policySection("Trace policy", p.UseSetting(), p.IsTraceEnabled())}, nil
	case models.LogPolicyTag:
		p, err := models.DecodeLogPolicySetting(root)
		if err != nil {
			return nil, err
		}
		return []section{policySection("Log policy", p.UseSetting(), p.IsLogEnabled())}, nil
	}
	return nil, fmt.Errorf("unsupported document type %q", root.Tag)
}

func policySection(title string, use, enabled bool) section {
	return section{
		Title:  title,
		Header: []string{"Use setting", "Enabled"},
		Rows:   [][]string{{yesNo(use), yesNo(enabled)}},
	}
}

func dataSection(d *dependency.Data) section {
	fragment := func(el *etree.Element) string {
		if el == nil {
			return "-"
		}
		return "<" + el.Tag + ">"
	}
	return section{
		Title:  "Dependency data",
		Header: []string{"Key", "Schema", "Data"},
		Rows:   [][]string{{d.Key().String(), fragment(d.Schema()), fragment(d.TableData())}},
	}
}

func elementSection(el *dependency.DeployableElement) section {
	return section{
		Title:  "Deployable element",
		Header: []string{"Name", "Type", "Object type", "Id", "Description"},
		Rows:   [][]string{{el.DisplayName(), el.Type().String(), el.ObjectTypeName(), el.ID(), el.Description()}},
	}
}

func logSummarySections(s *ledger.LogSummary) []section {
	status := "-"
	if p := s.ArchivePackage(); p != nil {
		status = p.Status().String()
	}
	head := section{
		Title:  "Log summary",
		Header: []string{"Log id", "Package", "Status", "Archive", "Archive exists"},
		Rows: [][]string{{
			strconv.Itoa(s.ID()), ledger.PackageName(s.Package()), status,
			s.ArchiveSummary().Info().ArchiveRef(), yesNo(s.ArchiveExists()),
		}},
	}
	out := []section{head, elementSection(s.Package())}
	out = append(out, archiveSections(s.ArchiveSummary())...)
	if d := s.Detail(); d != nil {
		out = append(out, logDetailSections(d)...)
	}
	return out
}

func logDetailSections(d *ledger.LogDetail) []section {
	out := []section{dbmsSection(d.DbmsMap()), transactionSection(d.TransactionLog()), validationSection(d.ValidationResults())}
	if m := d.IDMap(); m != nil {
		out = append(out, idMapSection(m))
	}
	return out
}

func transactionSection(l *ledger.TransactionLog) section {
	s := section{Title: "Transactions", Header: []string{"#", "Log id", "Dependency", "Element", "Action", "Type"}}
	for i, t := range l.Transactions() {
		s.Rows = append(s.Rows, []string{
			strconv.Itoa(i + 1), strconv.Itoa(t.LogID()), t.DepDesc(), t.Element(), t.Action().String(), t.Type(),
		})
	}
	return s
}

func dbmsSection(m *dbms.Map) section {
	s := section{Title: "DBMS map for " + m.SourceServer(), Header: []string{"Source", "Target"}}
	for _, mapping := range m.Mappings() {
		s.Rows = append(s.Rows, []string{mapping.SourceInfo(), mapping.TargetInfo()})
	}
	return s
}

func archiveSections(a *archive.Summary) []section {
	info := a.Info()
	head := section{
		Title:  "Archive",
		Header: []string{"Id", "Reference", "Source server", "Version", "User", "Created"},
		Rows: [][]string{{
			strconv.Itoa(a.ID()), info.ArchiveRef(), info.SourceServer(), info.ServerVersion(),
			info.UserName(), info.Created().Format("2006-01-02 15:04:05Z07:00"),
		}},
	}
	pkgs := section{Title: "Archive packages", Header: []string{"Name", "Type", "Status", "Log id"}}
	for _, p := range a.Packages() {
		pkgs.Rows = append(pkgs.Rows, []string{p.Name(), p.Type(), p.Status().String(), strconv.Itoa(p.LogID())})
	}
	return []section{head, pkgs}
}

func validationSection(rs *validation.Results) section {
	s := section{Title: "Validation results", Header: []string{"Dependency", "Error", "Skippable", "Skipped", "Message"}}
	for _, r := range rs.All() {
		s.Rows = append(s.Rows, []string{r.Key().String(), yesNo(r.IsError()), yesNo(r.AllowSkip()), yesNo(r.Skip()), r.Message()})
	}
	return s
}

func idMapSection(m *idmap.Map) section {
	s := section{Title: "ID map for " + m.SourceServer(), Header: []string{"Object type", "Source id", "Source name", "Parent", "Target id", "Target name", "New"}}
	for _, mapping := range m.Mappings() {
		parent := ""
		if mapping.SourceParentID() != "" {
			parent = mapping.ParentType() + ":" + mapping.SourceParentID()
		}
		s.Rows = append(s.Rows, []string{
			mapping.ObjectType(), mapping.SourceID(), mapping.SourceName(), parent,
			mapping.TargetID(), mapping.TargetName(), yesNo(mapping.IsNewObject()),
		})
	}
	return s
}

func treeSection(t *dependency.Tree) section {
	s := section{Title: "Dependency tree", Header: []string{"Dependency", "Type", "Key"}}
	t.Walk(func(dep *dependency.Dependency, depth int) bool {
		s.Rows = append(s.Rows, []string{strings.Repeat("  ", depth) + dep.DisplayName(), dep.Type().String(), dep.Key().String()})
		return true
	})
	return s
}

func renderSections(w io.Writer, sections []section, ascii bool) error {
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, s.Title)
		table := tablewriter.NewWriter(w)
		table.Options(tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
		}))
		if ascii {
			table.Options(tablewriter.WithSymbols(&tw.SymbolASCII{}))
		}
		headers := make([]any, len(s.Header))
		for j, h := range s.Header {
			headers[j] = h
		}
		table.Header(headers...)
		for _, row := range s.Rows {
			values := make([]any, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := table.Append(values...); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}

func printIndented(w io.Writer, data []byte) error {
	if _, err := inspect(data); err != nil {
		return err
	}
	doc := contract.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return err
	}
	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}
