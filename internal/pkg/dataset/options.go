package dataset

// Option configures a [Loader].
type Option func(*options)

type options struct {
	required []string
	sheet    string
	source   string
}

// WithRequiredColumns declares the columns the source must provide.
//
// Loading fails with a [LoadError] wrapping [ErrMissingColumn] when one of them is absent.
func WithRequiredColumns(columns ...string) Option {
	return func(o *options) {
		o.required = append(o.required, columns...)
	}
}

// WithSheet selects the worksheet to read from an xlsx workbook.
//
// Defaults to the first sheet of the workbook.
func WithSheet(sheet string) Option {
	return func(o *options) {
		o.sheet = sheet
	}
}

// WithSource names the source of a dataset read from a stream, for reporting purposes.
func WithSource(name string) Option {
	return func(o *options) {
		o.source = name
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		source: "-",
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
