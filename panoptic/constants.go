package panoptic

const (
	// Job emitted by scheduler and is in pending state.
	TopicPendingJob = "topic.pending_job"
	// Job finished by orchestrator, successfully or not.
	TopicExecutedJob = "topic.executed_job"

	DdogJobStateCounter = "infoflow.panoptic.job_state"
	DdogJobDuration     = "infoflow.panoptic.job_duration"
)

// Job states reported on TopicExecutedJob. Success and failed mirror the
// JobRun status, the other two never create a JobRun.
const (
	JobStateSuccess  = "success"
	JobStateFailed   = "failed"
	JobStateDeferred = "deferred"
	JobStateSkipped  = "skipped"
)
