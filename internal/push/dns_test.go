package push

import "testing"

func TestSplitDomain(t *testing.T) {
	cases := []struct {
		domain   string
		wantSub  string
		wantRoot string
	}{
		{"app.example.com", "app", "example.com"},
		{"staging.app.example.com", "staging.app", "example.com"},
		{"example.com", "@", "example.com"},
	}
	for _, c := range cases {
		sub, root := SplitDomain(c.domain)
		if sub != c.wantSub || root != c.wantRoot {
			t.Errorf("SplitDomain(%q) = (%q, %q), want (%q, %q)", c.domain, sub, root, c.wantSub, c.wantRoot)
		}
	}
}
