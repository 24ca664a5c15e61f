package realtime

// Event names carried on the wire. Room-scoped events go to the job's
// room; the rest go to the global marketplace feed.
const (
	EventJobCreated       = "job_created"       // global: {job}
	EventJobTaken         = "job_taken"         // global: {job_id}
	EventJobUpdated       = "job_updated"       // room:   {job}
	EventApplicantAdded   = "applicant_added"   // room:   {job_id, applicant}
	EventApplicantRemoved = "applicant_removed" // room:   {job_id, runner_id}
	EventRunnerReported   = "runner_reported"   // room:   {report_count, is_banned}
	EventBalanceChanged   = "balance_changed"   // global: {user_id, new_balance}
	EventLocationUpdate   = "location_update"   // room:   {job_id, lat, lon}
)

// Event is the wire envelope for every server push.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
