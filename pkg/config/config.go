package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"luma-live/stagepass/ticket-queue-server/pkg/ticket"
)

type DuplicatePolicy string

const (
	// Reject a registration while the registrant already has a live
	// entry or confirmed ticket for the same type.
	DuplicateReject DuplicatePolicy = "reject"

	// Replace drops the old pending entry and re-enqueues the
	// registrant at the tail of the queue.
	DuplicateReplace DuplicatePolicy = "replace"
)

type Config struct {
	TicketCapacities *string
	DuplicatePolicy  *string

	NotifyStatsIntervalSeconds *int
	InitAvgWaitSeconds         *int
	AverageWaitWindowSize      *int

	TransactionLogPath *string

	PingIntervalSeconds *int
}

var CFG = &Config{
	TicketCapacities:           flag.String("ticket-capacities", "VIP:3,Regular:5", "Comma separated type:capacity pairs. Listing order doubles as processing priority for process-next without an explicit type."),
	DuplicatePolicy:            flag.String("duplicate-policy", string(DuplicateReject), "What to do when a registrant already holds a live registration for the same type: reject or replace."),
	NotifyStatsIntervalSeconds: flag.Int("notify-stats-interval-seconds", 5, "Interval to push queue stats to connected clients."),
	InitAvgWaitSeconds:         flag.Int("init-avg-wait-seconds", 60, "Initial default value of average wait duration."),
	AverageWaitWindowSize:      flag.Int("average-wait-window-size", 50, "The size of sliding window for calculating average wait time of a queue entry."),
	TransactionLogPath:         flag.String("transaction-log", "data/transactions.csv", "Path of the CSV transaction log. Empty disables logging."),
	PingIntervalSeconds:        flag.Int("ping-interval-seconds", 30, "Send pings to websocket peer with this interval."),
}

// Capacity is one configured ticket type with its initial inventory.
type Capacity struct {
	Type     ticket.Type
	Capacity int
}

// ParseCapacities parses a "VIP:3,Regular:5" spec into ordered
// capacities. Order is preserved so it can serve as processing
// priority. Duplicate types and negative counts are rejected.
func ParseCapacities(spec string) ([]Capacity, error) {
	var capacities []Capacity
	seen := make(map[ticket.Type]bool)

	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, count, found := strings.Cut(pair, ":")
		if !found {
			return nil, fmt.Errorf("invalid capacity pair %q, want type:count", pair)
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty ticket type in pair %q", pair)
		}

		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			return nil, fmt.Errorf("invalid capacity for type %q: %w", name, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative capacity %v for type %q", n, name)
		}

		tt := ticket.Type(name)
		if seen[tt] {
			return nil, fmt.Errorf("duplicate ticket type %q", name)
		}
		seen[tt] = true

		capacities = append(capacities, Capacity{Type: tt, Capacity: n})
	}

	if len(capacities) == 0 {
		return nil, fmt.Errorf("no ticket types configured in %q", spec)
	}
	return capacities, nil
}

// ParsePolicy validates the duplicate-policy flag value.
func ParsePolicy(raw string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(raw) {
	case DuplicateReject, DuplicateReplace:
		return DuplicatePolicy(raw), nil
	default:
		return "", fmt.Errorf("invalid duplicate policy %q, want reject or replace", raw)
	}
}
