package differ

// Option is a functional option for configuring Differ
type Option func(*differ)

// WithIgnoredFields sets site fields to ignore during comparison
// ("updatable", "policy", "platform_url", "previous_plugin_path").
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}
