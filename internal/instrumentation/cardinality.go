package instrumentation

// LabelOther replaces label values outside a known set.
const LabelOther = "other"

// BoundedLabel returns value when allowed reports it as known and LabelOther
// otherwise. Tool names arrive from the completion provider and can be
// arbitrary strings; recording them unfiltered would let a misbehaving model
// create unbounded metric series.
//
// Example:
//
//	BoundedLabel("search_emails", registry.Has)   // "search_emails"
//	BoundedLabel("drop_database", registry.Has)   // "other"
func BoundedLabel(value string, allowed func(string) bool) string {
	if value == "" || allowed == nil || !allowed(value) {
		return LabelOther
	}
	return value
}
