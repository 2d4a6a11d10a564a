package loki

// lokiPushRequest represents the JSON payload sent to Loki.
type lokiPushRequest struct {
	Streams []stream `json:"streams"`
}

// stream represents a log stream with labels and values.
type stream struct {
	Stream map[string]string `json:"stream"`
	Values []streamValue     `json:"values"`
}

// streamValue is a tuple of [timestamp, log_line].
type streamValue []string

// logEntry is a single encoded log line waiting to be shipped.
type logEntry struct {
	timestampNano int64
	line          string
}
