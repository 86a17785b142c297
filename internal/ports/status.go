package ports

// StatusReporter is told whenever the sink connection opens or drops
type StatusReporter interface {
	SetSinkConnected(connected bool)
}

type noopStatus struct{}

func (noopStatus) SetSinkConnected(bool) {}
