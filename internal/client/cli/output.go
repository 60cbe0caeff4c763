package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/aikea/internal/bucket"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printRecords(records []bucket.StoredFileRecord) error {
	if a.asJSON {
		return printJSON(a.out, records)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXTERNAL ID\tNAME\tTAGS\tSIZE\tURL")
	for _, r := range records {
		if r.IsDiagnostic() {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\n", r.ID, r.Message)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, dash(r.ExternalID), dash(r.Name), tags(r), size(r.SizeBytes), dash(r.URL))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range records {
		if r.IsDiagnostic() && r.Solution != "" {
			fmt.Fprintf(a.out, "\nhint: %s\n", r.Solution)
		}
	}
	return nil
}

func (a *App) printRecord(r *bucket.StoredFileRecord) error {
	if a.asJSON {
		return printJSON(a.out, r)
	}
	return a.printRecords([]bucket.StoredFileRecord{*r})
}

func (a *App) printStats(s bucket.Stats) error {
	if a.asJSON {
		return printJSON(a.out, s)
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "mode\t%s\n", s.Mode)
	fmt.Fprintf(tw, "configured\t%t\n", s.Configured)
	fmt.Fprintf(tw, "base url\t%s\n", dash(s.BaseURL))
	fmt.Fprintf(tw, "token\t%t\n", s.HasToken)
	fmt.Fprintf(tw, "files\t%d\n", s.TotalFiles)
	fmt.Fprintf(tw, "bytes\t%s\n", size(s.TotalSizeBytes))
	return tw.Flush()
}

func (a *App) printDiagnostics(d bucket.Diagnostics) error {
	if a.asJSON {
		return printJSON(a.out, d)
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "mode\t%s\n", d.Mode)
	fmt.Fprintf(tw, "configured\t%t\n", d.Configured)
	fmt.Fprintf(tw, "reachable\t%t\t%s\n", d.Reachable, status(d.ReachStatus, d.ReachError))
	fmt.Fprintf(tw, "probe\t%s\n", status(d.ProbeStatus, d.ProbeError))
	fmt.Fprintf(tw, "suspected filtering\t%t\n", d.SuspectedFiltering)
	fmt.Fprintf(tw, "token present\t%t\n", d.TokenPresent)
	if d.TokenExpiresAt != nil {
		fmt.Fprintf(tw, "token expires\t%s\texpired=%t\n", d.TokenExpiresAt.Format("2006-01-02 15:04:05Z07:00"), d.TokenExpired)
	}
	if d.TokenError != "" {
		fmt.Fprintf(tw, "token\t%s\n", d.TokenError)
	}
	if d.Message != "" {
		fmt.Fprintf(tw, "note\t%s\n", d.Message)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func tags(r bucket.StoredFileRecord) string {
	out := ""
	for _, t := range []string{r.Tag1, r.Tag2, r.Tag3} {
		if t == "" {
			continue
		}
		if out != "" {
			out += ","
		}
		out += t
	}
	return dash(out)
}

func size(n int64) string {
	if n <= 0 {
		return "-"
	}
	return strconv.FormatInt(n, 10)
}

func status(code int, errText string) string {
	switch {
	case errText != "":
		return errText
	case code != 0:
		return "HTTP " + strconv.Itoa(code)
	default:
		return "-"
	}
}
