package logs

type LogOption interface {
	apply(*logOptions)
}

type logOptions struct {
	withNotifier bool
	targets      []string
}

type withNotifierOption struct{}
type withNotifyTargetOption struct {
	targets []string
}

func (o withNotifierOption) apply(opts *logOptions) {
	opts.withNotifier = true
}
func (o withNotifyTargetOption) apply(opts *logOptions) {
	opts.withNotifier = true
	opts.targets = append(opts.targets, o.targets...)
}

// WithNotifier forwards the entry to the notifiers registered for its own level.
func WithNotifier() LogOption {
	return withNotifierOption{}
}

// WithNotifyTarget forwards the entry to the notifiers of the given levels instead.
func WithNotifyTarget(levels ...string) LogOption {
	return withNotifyTargetOption{targets: levels}
}
