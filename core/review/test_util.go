package review

// NewServiceMock returns a Service running its notifications synchronously.
func NewServiceMock(deps Deps) *Service {
	svc := NewService(deps)
	svc.sync = true
	return svc
}
