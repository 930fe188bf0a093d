package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/snapetech/panelm3u/internal/pipeline"
)

// JobState is the lifecycle of a playlist job.
type JobState string

const (
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job is one background playlist generation.
type Job struct {
	ID        string
	SessionID string
	FileName  string
	Started   time.Time

	done  atomic.Int64
	total atomic.Int64

	mu       sync.Mutex
	state    JobState
	finished time.Time
	result   pipeline.Result
	err      string
}

func newJob(sessionID, fileName string) *Job {
	return &Job{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		FileName:  fileName,
		Started:   time.Now(),
		state:     JobRunning,
	}
}

func (j *Job) progress(done, total int) {
	j.done.Store(int64(done))
	j.total.Store(int64(total))
}

func (j *Job) finish(res pipeline.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.state = JobDone
	j.finished = time.Now()
}

func (j *Job) fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = msg
	j.state = JobFailed
	j.finished = time.Now()
}

// JobStatus is the JSON view of a job.
type JobStatus struct {
	ID       string             `json:"id"`
	State    JobState           `json:"state"`
	Done     int64              `json:"done"`
	Total    int64              `json:"total"`
	Counts   *pipeline.Counts   `json:"counts,omitempty"`
	Failures *pipeline.Failures `json:"failures,omitempty"`
	Error    string             `json:"error,omitempty"`
	Started  time.Time          `json:"started"`
}

// Status snapshots the job.
func (j *Job) Status() JobStatus {
	st := JobStatus{ID: j.ID, Done: j.done.Load(), Total: j.total.Load(), Started: j.Started}
	j.mu.Lock()
	defer j.mu.Unlock()
	st.State = j.state
	st.Error = j.err
	if j.state == JobDone {
		counts, failures := j.result.Counts, j.result.Failures
		st.Counts, st.Failures = &counts, &failures
	}
	return st
}

// Document returns the rendered playlist once the job is done.
func (j *Job) Document() ([]byte, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobDone {
		return nil, false
	}
	return j.result.Document, true
}

func (j *Job) expired(now time.Time, ttl time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state != JobRunning && now.Sub(j.finished) > ttl
}

// jobs is the in-memory job registry. Finished jobs are dropped ttl after they end.
type jobs struct {
	m   *xsync.MapOf[string, *Job]
	ttl time.Duration
}

func newJobs(ttl time.Duration) *jobs {
	return &jobs{m: xsync.NewMapOf[string, *Job](), ttl: ttl}
}

func (js *jobs) add(j *Job) {
	js.prune(time.Now())
	js.m.Store(j.ID, j)
}

func (js *jobs) get(id string) (*Job, bool) {
	return js.m.Load(id)
}

func (js *jobs) prune(now time.Time) {
	js.m.Range(func(id string, j *Job) bool {
		if j.expired(now, js.ttl) {
			js.m.Delete(id)
		}
		return true
	})
}

func (js *jobs) len() int { return js.m.Size() }
