package simulator

import (
	"time"

	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

// Event is something that happens at a point in simulated time.
type Event struct {
	time time.Time
	// Breaks ties between events at the same time; events pushed first happen first.
	sequenceNumber int
	// One of submitEvent or completeEvent.
	submitOrComplete any
}

func (e Event) before(other Event) bool {
	if e.time.Equal(other.time) {
		return e.sequenceNumber < other.sequenceNumber
	}
	return e.time.Before(other.time)
}

// submitEvent is a tenant handing job to the scheduler.
type submitEvent struct {
	job *schedulerobjects.Job
}

// completeEvent is an active job finishing.
type completeEvent struct {
	jobId string
}

// EventLog is a min-heap of events; use it through container/heap.
type EventLog []Event

func (el EventLog) Len() int           { return len(el) }
func (el EventLog) Less(i, j int) bool { return el[i].before(el[j]) }
func (el EventLog) Swap(i, j int)      { el[i], el[j] = el[j], el[i] }

func (el *EventLog) Push(x any) {
	*el = append(*el, x.(Event))
}

func (el *EventLog) Pop() any {
	n := len(*el)
	event := (*el)[n-1]
	(*el)[n-1] = Event{}
	*el = (*el)[:n-1]
	return event
}
