package common

type SessionState uint

const (
	ActivityLogView SessionState = iota
	ActorsView
	CreateGroupView
)
