// Package changefeed turns postgres NOTIFY payloads from the orders trigger
// into typed events.
package changefeed

import (
	"encoding/json"
	"fmt"
	"menu-service/internal/models"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
)

// Event mirrors the trigger payload. Old is nil for inserts. Rows carry no items.
type Event struct {
	Op    Op            `json:"op"`
	Table string        `json:"table"`
	Old   *models.Order `json:"old,omitempty"`
	New   *models.Order `json:"new"`
}

func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.New == nil {
		return Event{}, fmt.Errorf("decode change event: missing new row")
	}
	return ev, nil
}

// Filter selects which events a subscriber wants.
type Filter func(Event) bool

func ForTable(table string) Filter {
	return func(ev Event) bool { return ev.Table == table }
}

// StatusChanged keeps inserts and updates whose status actually moved.
func StatusChanged(ev Event) bool {
	if ev.Op == OpInsert || ev.Old == nil {
		return true
	}
	return ev.Old.Status != ev.New.Status
}

func All(filters ...Filter) Filter {
	return func(ev Event) bool {
		for _, f := range filters {
			if !f(ev) {
				return false
			}
		}
		return true
	}
}
