package session

import (
	sess "github.com/abhisek/socratic/internal/session"
	"github.com/abhisek/socratic/internal/tutor"
)

// loadedMsg is sent when the session has been created or fetched.
type loadedMsg struct {
	Session *sess.Session
	Err     error
}

// problemMsg is sent when a submitted problem has been seeded.
type problemMsg struct {
	Session *sess.Session
	Problem *sess.Problem
	Err     error
}

// turnMsg is sent when the tutor has answered a reply.
type turnMsg struct {
	Result *tutor.TurnResult
	Err    error
}

// completedMsg is sent when the student closed the active problem.
type completedMsg struct {
	Session *sess.Session
	Err     error
}
