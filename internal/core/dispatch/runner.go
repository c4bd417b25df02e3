package dispatch

// Runner submits a job for execution outside the request lifetime. The
// default spawns a goroutine per job; a pooled or queued implementation can
// be dropped in without touching the dispatch logic.
type Runner interface {
	Submit(job func())
}

// GoRunner runs each job on its own goroutine, fire-and-forget. There is
// deliberately no admission control: many concurrent requests mean many
// concurrent jobs.
type GoRunner struct{}

func (GoRunner) Submit(job func()) {
	go job()
}
