package txlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"luma-live/stagepass/ticket-queue-server/pkg/ticket"
)

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "transactions.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.HasPrefix(string(raw), "first_name,last_name,ticket_type,time,status") {
		t.Fatalf("expected header, got %q", string(raw))
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	registrant := ticket.Registrant{FirstName: "Ada", LastName: "Lovelace"}
	if err := writer.Append(registrant, "VIP", at, ticket.StatusConfirmed); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := writer.Append(registrant, "VIP", at.Add(time.Minute), ticket.StatusCancelled); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows, err := writer.Rows()
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", len(rows))
	}
	want := []string{"Ada", "Lovelace", "VIP", "2025-06-01 12:00:00", "Confirmed"}
	for i, field := range want {
		if rows[0][i] != field {
			t.Fatalf("row field %v: expected %q, got %q", i, field, rows[0][i])
		}
	}
	if rows[1][4] != "Cancelled" {
		t.Fatalf("expected Cancelled, got %q", rows[1][4])
	}
}

func TestCSVWriterKeepsExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")

	first, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	registrant := ticket.Registrant{FirstName: "Ada", LastName: "Lovelace"}
	if err := first.Append(registrant, "VIP", time.Now(), ticket.StatusConfirmed); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Reopening must append, not truncate history.
	second, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("reopen writer: %v", err)
	}
	if err := second.Append(registrant, "VIP", time.Now(), ticket.StatusCancelled); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows, err := second.Rows()
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows across reopen, got %v", len(rows))
	}
}

func TestDiscard(t *testing.T) {
	if err := (Discard{}).Append(ticket.Registrant{}, "VIP", time.Now(), ticket.StatusConfirmed); err != nil {
		t.Fatalf("discard append: %v", err)
	}
}
