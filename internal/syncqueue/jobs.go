package syncqueue

import (
	"sort"
	"time"

	"snapback/internal/dedup"
	"snapback/internal/queue"
	"snapback/internal/replica"
)

// JobInfo describes one queued sync job.
type JobInfo struct {
	ID         string           `json:"id"`
	Type       replica.SyncType `json:"syncType"`
	Wallet     string           `json:"wallet"`
	Primary    string           `json:"primary"`
	Secondary  string           `json:"secondary"`
	Status     string           `json:"status"`
	EnqueuedAt time.Time        `json:"enqueuedAt"`
}

// Jobs lists the waiting and active jobs of both queues.
type Jobs struct {
	ManualWaiting    []JobInfo `json:"manualWaiting"`
	ManualActive     []JobInfo `json:"manualActive"`
	RecurringWaiting []JobInfo `json:"recurringWaiting"`
	RecurringActive  []JobInfo `json:"recurringActive"`
}

func jobInfos(q *syncQueue, statuses ...queue.Status) []JobInfo {
	states := q.Jobs(statuses...)
	out := make([]JobInfo, 0, len(states))
	for _, s := range states {
		req := s.Job.Data
		out = append(out, JobInfo{
			ID:         s.Job.ID,
			Type:       req.Type,
			Wallet:     req.Wallet,
			Primary:    req.PrimaryEndpoint,
			Secondary:  req.SecondaryEndpoint,
			Status:     s.Status.String(),
			EnqueuedAt: s.Job.EnqueuedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

// QueueJobs returns the jobs currently waiting or running.
func (m *Manager) QueueJobs() Jobs {
	return Jobs{
		ManualWaiting:    jobInfos(m.manual, queue.StatusWaiting, queue.StatusDelayed),
		ManualActive:     jobInfos(m.manual, queue.StatusActive),
		RecurringWaiting: jobInfos(m.recurring, queue.StatusWaiting, queue.StatusDelayed),
		RecurringActive:  jobInfos(m.recurring, queue.StatusActive),
	}
}

// Obliterate drops every job of both queues along with their dedup entries.
func (m *Manager) Obliterate() {
	for _, q := range []*syncQueue{m.manual, m.recurring} {
		for _, s := range q.Jobs(queue.StatusWaiting, queue.StatusDelayed) {
			m.dedup.Remove(dedup.KeyOf(s.Job.Data))
		}
		q.Obliterate()
	}
}
