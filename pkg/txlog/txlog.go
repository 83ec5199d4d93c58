package txlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"luma-live/stagepass/ticket-queue-server/pkg/ticket"
)

// Writer records every allocation outcome and cancellation. The log is
// an audit trail only, it is never read back to rebuild state.
type Writer interface {
	Append(registrant ticket.Registrant, ticketType ticket.Type, at time.Time, status ticket.Status) error
}

var header = []string{"first_name", "last_name", "ticket_type", "time", "status"}

const timeLayout = "2006-01-02 15:04:05"

// CSVWriter appends transactions to a CSV file, creating it with a
// header row when absent. Appends are serialized by a mutex.
type CSVWriter struct {
	mu   sync.Mutex
	path string
}

func NewCSVWriter(path string) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transaction log dir: %w", err)
		}
	}

	w := &CSVWriter{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := w.write(header); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return w, nil
}

func (w *CSVWriter) Append(registrant ticket.Registrant, ticketType ticket.Type, at time.Time, status ticket.Status) error {
	return w.write([]string{
		registrant.FirstName,
		registrant.LastName,
		string(ticketType),
		at.Format(timeLayout),
		string(status),
	})
}

func (w *CSVWriter) write(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transaction log: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(record); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Rows reads the whole log back, header excluded.
func (w *CSVWriter) Rows() ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.Open(w.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}

// Discard drops every transaction. Used when logging is disabled and
// in engine tests.
type Discard struct{}

func (Discard) Append(ticket.Registrant, ticket.Type, time.Time, ticket.Status) error {
	return nil
}
