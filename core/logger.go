package core

type (
	// Logger is any service that can record application events.
	// args may contain errors, maps of extra data and at most one Person (the current caller).
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// Person identifies the authenticated caller attached to a log entry.
	Person struct {
		ID       string
		Username string
		Email    string
	}
)
