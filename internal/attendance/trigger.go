package attendance

// Trigger identifies what started a check.
//
//go:generate go tool enumer -type=Trigger -trimprefix=Trigger -transform=snake -json
type Trigger int

const (
	// TriggerScheduled is the daily job in persistent mode.
	TriggerScheduled Trigger = iota
	// TriggerManual is the /check command.
	TriggerManual
	// TriggerOneShot is a single-shot process invocation.
	TriggerOneShot
)
