package results

// Option configures a sequence at construction. Window and sample
// descriptions are immutable afterwards.
type Option func(*options)

type options struct {
	fetchMin   int
	max        MaxSettings
	window     *WindowStats
	sample     *SampleParameters
	groupNames []string
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithFetchMin sets the minimum number of items pulled per production batch.
func WithFetchMin(n int) Option {
	return func(o *options) { o.fetchMin = n }
}

// WithMaxSettings caps stored and counted items.
func WithMaxSettings(m MaxSettings) Option {
	return func(o *options) { o.max = m }
}

// WithWindowStats marks the sequence as a window of a larger one.
func WithWindowStats(w WindowStats) Option {
	return func(o *options) { o.window = &w }
}

// WithSampleParameters marks the sequence as a sample of a larger one.
func WithSampleParameters(p SampleParameters) Option {
	return func(o *options) { o.sample = &p }
}

// WithGroupNames attaches an empty captured-group set with the given names.
func WithGroupNames(names []string) Option {
	return func(o *options) {
		o.groupNames = append([]string{}, names...)
	}
}
