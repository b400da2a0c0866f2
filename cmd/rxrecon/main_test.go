package main

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/x-stp/rxrecon/internal/export"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestNoModePrintsUsage(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--log-level", "error"})
	runErr := cmd.Execute()
	_ = w.Close()
	os.Stdout = stdout
	got, _ := io.ReadAll(r)

	if runErr != nil {
		t.Fatalf("Execute: %v", runErr)
	}
	if out := string(got); !strings.Contains(out, "--certificate") || !strings.Contains(out, "--allinfo") {
		t.Errorf("usage not printed to stdout:\n%s", out)
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty", stderr.String())
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.Contains(out, "rxrecon "+version) {
		t.Errorf("version output %q, err %v", out, err)
	}
}

func TestNestedRequiresJSON(t *testing.T) {
	_, err := execute(t, "-d", "example.com", "-f", "csv", "--nested")
	if !errors.Is(err, export.ErrNotDocumentFormat) {
		t.Errorf("err = %v, want ErrNotDocumentFormat", err)
	}
}

func TestInvalidFlags(t *testing.T) {
	if _, err := execute(t, "-d", "example.com", "-f", "xml"); !errors.Is(err, export.ErrUnknownFormat) {
		t.Errorf("format err = %v", err)
	}
	if _, err := execute(t, "-a", "example.com", "--scope", "everything"); err == nil {
		t.Error("expected error for unknown scope")
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "nested.json")
	doc := `[{"domain":"x.com","A":[{"domain":"x.com","rdtype":"A","address":"1.2.3.4"}],"MX":[],"TXT":"v=spf1"}]`
	if err := os.WriteFile(input, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	prefix := filepath.Join(dir, "rows")
	out, err := execute(t, "convert", "--input", input, "-f", "csv", "-o", prefix)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(out, "Exported to") {
		t.Errorf("output = %q", out)
	}
	f, err := os.Open(prefix + ".csv")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d csv records, want header and 2 rows", len(records))
	}
	if strings.Join(records[0], ",") != "domain,record_type,rdtype,address,value" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][1] != "TXT" || records[2][4] != "v=spf1" {
		t.Errorf("fallback row = %v", records[2])
	}
}

func TestConvertPreview(t *testing.T) {
	input := filepath.Join(t.TempDir(), "nested.json")
	if err := os.WriteFile(input, []byte(`{"domain":"x.com","NS":[{"address":"ns1.x.com."}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "convert", "--input", input)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != `{"domain":"x.com","record_type":"NS","address":"ns1.x.com."}` {
		t.Errorf("preview = %q", out)
	}
}

func TestOutputPrefix(t *testing.T) {
	t.Parallel()
	if got := outputPrefix("output", modeDNS, false); got != "output" {
		t.Errorf("single mode prefix = %s", got)
	}
	if got := outputPrefix("output", modeCertificate, true); got != "output-crt" {
		t.Errorf("multi mode prefix = %s", got)
	}
	if n := countModes(&options{certificate: "a", allinfo: "b"}); n != 2 {
		t.Errorf("countModes = %d", n)
	}
}

func TestPreviewRowsLimit(t *testing.T) {
	t.Parallel()
	rows := make([]export.Row, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, export.NewRow("domain", "x.com"))
	}
	var buf bytes.Buffer
	if err := previewRows(&buf, rows, rowPreview); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != rowPreview {
		t.Errorf("printed %d rows, want %d", n, rowPreview)
	}
	buf.Reset()
	if err := previewRows(&buf, rows[:2], certificatePreview); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("printed %d rows, want 2", n)
	}
}

func TestPreviewKeepsIssuerText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	rows := []export.Row{export.NewRow("Issuer Name", "C=US, O=A&B <CA>")}
	if err := previewRows(&buf, rows, certificatePreview); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"Issuer Name":"C=US, O=A&B <CA>"}` {
		t.Errorf("preview = %s", got)
	}
}
