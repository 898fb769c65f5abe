// internal/app/system/csvutil/csvutil.go
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/mail"
	"strings"
)

// MaxRows caps how many data rows a single invite upload may carry.
const MaxRows = 20000

// InviteRow is the normalized row produced by PreScanInviteCSV.
type InviteRow struct {
	FullName string
	Email    string
	Role     string // canonical lower-case; empty means default role
}

// PreScanInviteCSV reads all rows from r, skips a header if present,
// validates each row, and either returns normalized rows or a list of
// problems describing the bad lines. It never writes to a DB; it is safe
// to call before any mutations.
func PreScanInviteCSV(r io.Reader) (rows []InviteRow, problems []string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Pull the first row to check for a header. A UTF-8 BOM on the first
	// field is stripped so exports from spreadsheet tools parse cleanly.
	first, ferr := reader.Read()
	if ferr == io.EOF {
		first = nil
	} else if ferr != nil {
		return nil, []string{ferr.Error()}, nil
	}
	if len(first) > 0 {
		first[0] = strings.TrimPrefix(first[0], "\uFEFF")
	}

	var raw [][]string
	if len(first) >= 2 &&
		(strings.EqualFold(strings.TrimSpace(first[0]), "full name") ||
			strings.EqualFold(strings.TrimSpace(first[0]), "name")) &&
		strings.EqualFold(strings.TrimSpace(first[1]), "email") {
		// header detected, skip it
	} else if first != nil {
		raw = append(raw, first)
	}
	for {
		rec, e := reader.Read()
		if e == io.EOF {
			break
		}
		if e != nil || len(rec) == 0 {
			continue
		}
		raw = append(raw, rec)
		if len(raw) > MaxRows {
			return nil, []string{fmt.Sprintf("too many rows: the limit is %d per upload", MaxRows)}, nil
		}
	}

	allowed := map[string]bool{"member": true, "president": true}
	normalize := func(rec []string) InviteRow {
		var n, e, role string
		if len(rec) > 0 {
			n = strings.TrimSpace(rec[0])
		}
		if len(rec) > 1 {
			e = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 {
			role = strings.ToLower(strings.TrimSpace(rec[2]))
		}
		return InviteRow{FullName: n, Email: e, Role: role}
	}

	for i, rec := range raw {
		row := normalize(rec)
		if row.FullName == "" && row.Email == "" && row.Role == "" {
			continue
		}
		line := i + 1
		if row.FullName == "" {
			problems = append(problems, fmt.Sprintf("row %d: missing full name", line))
		}
		if row.Email == "" {
			problems = append(problems, fmt.Sprintf("row %d: missing email", line))
		} else if _, e := mail.ParseAddress(row.Email); e != nil {
			problems = append(problems, fmt.Sprintf("row %d: %q is not a valid email", line, row.Email))
		}
		if row.Role != "" && !allowed[row.Role] {
			problems = append(problems, fmt.Sprintf("row %d: %q is not a valid role (member, president)", line, row.Role))
		}
		rows = append(rows, row)
	}

	if len(problems) > 0 {
		return nil, problems, nil
	}
	return rows, nil, nil
}

// RosterRow is a flattened member row for CSV export.
type RosterRow struct {
	FullName   string
	Email      string
	Roles      []string
	Registered bool
}

// WriteRoster writes the roster as CSV with a header row. Multiple roles
// are joined with a space so the file stays one column per concern.
func WriteRoster(w io.Writer, rows []RosterRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Full Name", "Email", "Roles", "Registered"}); err != nil {
		return err
	}
	for _, row := range rows {
		registered := "no"
		if row.Registered {
			registered = "yes"
		}
		rec := []string{row.FullName, row.Email, strings.Join(row.Roles, " "), registered}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
