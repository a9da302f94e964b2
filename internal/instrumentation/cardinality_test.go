package instrumentation

import "testing"

func TestBoundedLabel(t *testing.T) {
	known := func(name string) bool { return name == "search_emails" }

	tests := []struct {
		value   string
		allowed func(string) bool
		want    string
	}{
		{value: "search_emails", allowed: known, want: "search_emails"},
		{value: "drop_database", allowed: known, want: LabelOther},
		{value: "", allowed: known, want: LabelOther},
		{value: "search_emails", allowed: nil, want: LabelOther},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := BoundedLabel(tt.value, tt.allowed); got != tt.want {
				t.Errorf("BoundedLabel(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
