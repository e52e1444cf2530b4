package domain

// JobStatus is the value polled by external callers for one job key.
// Overwritten on every progress tick; a terminal entry stays until cleared
// or superseded.
type JobStatus struct {
	Text     string `json:"text"`
	Complete bool   `json:"complete"`
	Error    bool   `json:"error,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

func StatusProgress(text string) JobStatus {
	return JobStatus{Text: text}
}

func StatusDone(text string) JobStatus {
	return JobStatus{Text: text, Complete: true}
}

func StatusFailed(text string) JobStatus {
	return JobStatus{Text: text, Complete: true, Error: true}
}
